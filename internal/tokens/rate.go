package tokens

import (
	"math"

	"github.com/example/studyquest/internal/apperr"
	"github.com/example/studyquest/pkg/models"
)

// Conversion rate bounds, in currency units per token
const (
	DefaultConversionRate = 0.10
	MinConversionRate     = 0.0
	MaxConversionRate     = 10.0
)

// ValidateRate rejects rates outside [MinConversionRate, MaxConversionRate]
func ValidateRate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return apperr.InvalidArgument("conversion rate must be a finite number")
	}
	if rate < MinConversionRate || rate > MaxConversionRate {
		return apperr.InvalidArgument("conversion rate %.2f outside [%.0f, %.0f]", rate, MinConversionRate, MaxConversionRate)
	}
	return nil
}

// ClampRate forces a stored rate into range
func ClampRate(rate float64) float64 {
	switch {
	case math.IsNaN(rate):
		return DefaultConversionRate
	case rate < MinConversionRate:
		return MinConversionRate
	case rate > MaxConversionRate:
		return MaxConversionRate
	}
	return rate
}

// NewProfileTokens returns an empty token ledger with the default rate
func NewProfileTokens(profileID int64) models.ProfileTokens {
	return models.ProfileTokens{ProfileID: profileID, ConversionRate: DefaultConversionRate}
}

// Balance summarises a ledger as seen on day today
func Balance(t models.ProfileTokens, today string) models.TokenBalance {
	earned := EarnedToday(t, today)
	rate := ClampRate(t.ConversionRate)
	return models.TokenBalance{
		Balance:        t.Balance,
		DailyEarned:    earned,
		DailyRemaining: DailyRemaining(earned),
		ConversionRate: rate,
		CurrencyValue:  CurrencyValue(t.Balance, rate),
	}
}

// CurrencyValue converts a token balance at rate, rounded to cents
func CurrencyValue(balance int64, rate float64) float64 {
	return math.Round(float64(balance)*rate*100) / 100
}
