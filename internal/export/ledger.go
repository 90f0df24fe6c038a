// Package export writes a profile's coin and token ledgers to an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/example/studyquest/internal/database"
	"github.com/example/studyquest/internal/tokens"
	"github.com/example/studyquest/pkg/models"
)

// Sheet names of the ledger workbook
const (
	CoinsSheet  = "Coins"
	TokensSheet = "Tokens"
)

const dateLayout = "2006-01-02 15:04"

// Ledger is everything exported for one profile
type Ledger struct {
	Profile      models.Profile
	Coins        models.ProfileCoins
	CoinEntries  []models.CoinTransaction
	Tokens       models.ProfileTokens
	TokenEntries []models.TokenTransaction
}

// Load reads a profile's ledgers
func Load(ctx context.Context, db *database.Database, profileID int64) (*Ledger, error) {
	profile, err := db.Profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	coins, err := db.Coins.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	coinEntries, err := db.Coins.ListTransactions(ctx, profileID)
	if err != nil {
		return nil, err
	}
	tok, err := db.Tokens.Get(ctx, profileID, tokens.DefaultConversionRate)
	if err != nil {
		return nil, err
	}
	tokenEntries, err := db.Tokens.ListTransactions(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		Profile:      *profile,
		Coins:        coins,
		CoinEntries:  coinEntries,
		Tokens:       tok,
		TokenEntries: tokenEntries,
	}, nil
}

// Write saves the ledger workbook to path, rendering times in loc
func Write(l *Ledger, path string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create export directory")
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create header style")
	}

	f.SetSheetName("Sheet1", CoinsSheet)
	coinRows := [][]interface{}{{"Date", "Amount", "Reason"}}
	for _, e := range l.CoinEntries {
		coinRows = append(coinRows, []interface{}{e.CreatedAt.In(loc).Format(dateLayout), e.Amount, e.Reason})
	}
	coinRows = append(coinRows,
		[]interface{}{},
		[]interface{}{"Balance", l.Coins.Balance},
		[]interface{}{"Total earned", l.Coins.TotalEarned},
	)
	if err := writeRows(f, CoinsSheet, coinRows, header); err != nil {
		return err
	}

	if _, err := f.NewSheet(TokensSheet); err != nil {
		return errors.Wrap(err, "failed to create tokens sheet")
	}
	tokenRows := [][]interface{}{{"Date", "Test", "Amount", "Reason"}}
	for _, e := range l.TokenEntries {
		tokenRows = append(tokenRows, []interface{}{e.CreatedAt.In(loc).Format(dateLayout), e.TestID, e.Amount, e.Reason})
	}
	rate := tokens.ClampRate(l.Tokens.ConversionRate)
	tokenRows = append(tokenRows,
		[]interface{}{},
		[]interface{}{"Balance", l.Tokens.Balance},
		[]interface{}{"Conversion rate", rate},
		[]interface{}{"Currency value", tokens.CurrencyValue(l.Tokens.Balance, rate)},
	)
	if err := writeRows(f, TokensSheet, tokenRows, header); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "failed to save ledger workbook")
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write %s row %d", sheet, i+1)
		}
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return errors.Wrap(err, "failed to style header")
	}
	if err := f.SetColWidth(sheet, "A", "A", 18); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", string(rune('A'+len(rows[0])-1)), 40)
}

// Export loads a profile's ledgers and writes them to path
func Export(ctx context.Context, db *database.Database, profileID int64, path string, loc *time.Location) (*Ledger, error) {
	l, err := Load(ctx, db, profileID)
	if err != nil {
		return nil, err
	}
	if err := Write(l, path, loc); err != nil {
		return nil, err
	}
	return l, nil
}

// Summary is a one-line description of an exported ledger
func (l *Ledger) Summary() string {
	return fmt.Sprintf("%s: %d coin entries, %d token entries", l.Profile.Name, len(l.CoinEntries), len(l.TokenEntries))
}
