package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/example/studyquest/internal/achievements"
	"github.com/example/studyquest/internal/quests"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when a keyed record does not exist
var ErrNotFound = errors.New("record not found")

// Database owns the connection pool and the repositories bound to it
type Database struct {
	Repositories

	db *sqlx.DB
}

// Open connects to the database, applies the schema and seeds definition tables
func Open(driver, dsn string) (*Database, error) {
	switch driver {
	case DriverSQLite:
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, errors.Wrap(err, "failed to create data directory")
			}
		}
	case DriverPostgres:
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to enable foreign keys")
		}
		// SQLite doesn't support multiple writers; one connection also serializes profile updates
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	d := &Database{Repositories: NewRepositories(db), db: db}
	if err := d.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// DB returns the underlying pool
func (d *Database) DB() *sqlx.DB {
	return d.db
}

// Driver returns the driver name the database was opened with
func (d *Database) Driver() string {
	return d.db.DriverName()
}

// Migrate creates missing tables and seeds quest and achievement definitions.
// It is safe to run repeatedly.
func (d *Database) Migrate(ctx context.Context) error {
	for i, stmt := range schema(d.db.DriverName()) {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to apply schema statement %d", i+1)
		}
	}
	if err := d.Quests.Seed(ctx, quests.Definitions); err != nil {
		return err
	}
	return d.Achievements.Seed(ctx, achievements.Definitions)
}

// schema returns the DDL for driver. Column types that differ between dialects are templated.
func schema(driver string) []string {
	id, real, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "REAL", "TIMESTAMP"
	if driver == DriverPostgres {
		id, real, ts = "BIGSERIAL PRIMARY KEY", "DOUBLE PRECISION", "TIMESTAMPTZ"
	}
	r := strings.NewReplacer("{{id}}", id, "{{real}}", real, "{{ts}}", ts)

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id {{id}},
			name TEXT NOT NULL,
			age_group TEXT NOT NULL DEFAULT 'adult',
			role TEXT NOT NULL DEFAULT 'student',
			telegram_chat_id BIGINT,
			last_reminded_on TEXT,
			created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS cards (
			id {{id}},
			subject_id BIGINT NOT NULL,
			theme TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_theme ON cards(theme)`,
		`CREATE TABLE IF NOT EXISTS card_states (
			profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			card_id BIGINT NOT NULL REFERENCES cards(id),
			last_seen {{ts}},
			next_due {{ts}},
			interval_days INTEGER NOT NULL DEFAULT 0,
			ease_factor {{real}} NOT NULL DEFAULT 2.5,
			repetitions INTEGER NOT NULL DEFAULT 0,
			history TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (profile_id, card_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_card_states_due ON card_states(profile_id, next_due)`,
		`CREATE TABLE IF NOT EXISTS profile_stats (
			profile_id BIGINT PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
			total_sessions INTEGER NOT NULL DEFAULT 0,
			total_cards_studied INTEGER NOT NULL DEFAULT 0,
			current_streak INTEGER NOT NULL DEFAULT 0,
			longest_streak INTEGER NOT NULL DEFAULT 0,
			last_session_date TEXT,
			tests_completed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS profile_xp (
			profile_id BIGINT PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
			total_xp BIGINT NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			daily_bonus_date TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS subject_xp (
			profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			subject_id BIGINT NOT NULL,
			xp BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (profile_id, subject_id)
		)`,
		`CREATE TABLE IF NOT EXISTS quests (
			id {{id}},
			code TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			quest_type TEXT NOT NULL,
			metric TEXT NOT NULL,
			target INTEGER NOT NULL,
			xp_reward INTEGER NOT NULL DEFAULT 0,
			coin_reward INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS quest_assignments (
			id {{id}},
			profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			quest_id BIGINT NOT NULL REFERENCES quests(id),
			period_key TEXT NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at {{ts}},
			assigned_at {{ts}} NOT NULL,
			UNIQUE (profile_id, quest_id, period_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quest_assignments_period ON quest_assignments(profile_id, period_key)`,
		`CREATE TABLE IF NOT EXISTS profile_tokens (
			profile_id BIGINT PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
			balance BIGINT NOT NULL DEFAULT 0,
			daily_earned INTEGER NOT NULL DEFAULT 0,
			daily_earned_date TEXT,
			conversion_rate {{real}} NOT NULL DEFAULT 0.1
		)`,
		`CREATE TABLE IF NOT EXISTS token_transactions (
			id {{id}},
			profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			amount INTEGER NOT NULL,
			reason TEXT NOT NULL,
			test_id TEXT NOT NULL DEFAULT '',
			created_at {{ts}} NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS token_test_history (
			profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			test_id TEXT NOT NULL,
			times_completed INTEGER NOT NULL DEFAULT 0,
			best_score INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (profile_id, test_id)
		)`,
		`CREATE TABLE IF NOT EXISTS profile_coins (
			profile_id BIGINT PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
			balance BIGINT NOT NULL DEFAULT 0,
			total_earned BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS coin_transactions (
			id {{id}},
			profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			amount INTEGER NOT NULL,
			reason TEXT NOT NULL,
			created_at {{ts}} NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS achievements (
			id {{id}},
			code TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			metric TEXT NOT NULL,
			threshold BIGINT NOT NULL,
			xp_reward INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS profile_achievements (
			profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			achievement_id BIGINT NOT NULL REFERENCES achievements(id),
			unlocked_at {{ts}} NOT NULL,
			PRIMARY KEY (profile_id, achievement_id)
		)`,
		`CREATE TABLE IF NOT EXISTS sync_batches (
			profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			batch_key TEXT NOT NULL,
			response TEXT NOT NULL,
			created_at {{ts}} NOT NULL,
			PRIMARY KEY (profile_id, batch_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_batches_created ON sync_batches(created_at)`,
	}
	for i := range stmts {
		stmts[i] = r.Replace(stmts[i])
	}
	return stmts
}

// Tx is a transaction with repositories bound to it
type Tx struct {
	Repositories

	tx         *sqlx.Tx
	savepoints int
}

// InTx runs fn inside a transaction, committing when fn returns nil and rolling back otherwise
func (d *Database) InTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	tx := &Tx{Repositories: NewRepositories(sqlTx), tx: sqlTx}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rerr := sqlTx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
				err = errors.Wrapf(err, "rollback failed: %v", rerr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// Savepoint runs fn inside a savepoint. When fn fails only its own writes are undone
// and the surrounding transaction stays usable.
func (t *Tx) Savepoint(ctx context.Context, fn func() error) error {
	t.savepoints++
	name := fmt.Sprintf("sp_%d", t.savepoints)

	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return errors.Wrap(err, "failed to create savepoint")
	}
	if err := fn(); err != nil {
		if _, rerr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rerr != nil {
			return errors.Wrapf(err, "rollback to savepoint failed: %v", rerr)
		}
		if _, rerr := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); rerr != nil {
			return errors.Wrapf(err, "release savepoint failed: %v", rerr)
		}
		return err
	}
	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return errors.Wrap(err, "failed to release savepoint")
	}
	return nil
}

// LockProfile serializes writers of one profile for the rest of the transaction.
// On postgres the profile row is locked; sqlite already runs a single writer.
// It returns ErrNotFound for an unknown profile.
func (t *Tx) LockProfile(ctx context.Context, profileID int64) error {
	query := `SELECT id FROM profiles WHERE id = ?`
	if t.tx.DriverName() == DriverPostgres {
		query += ` FOR UPDATE`
	}
	var id int64
	err := t.tx.GetContext(ctx, &id, t.tx.Rebind(query), profileID)
	if err == sql.ErrNoRows {
		return errors.Wrapf(ErrNotFound, "profile %d", profileID)
	}
	if err != nil {
		return errors.Wrap(err, "failed to lock profile")
	}
	return nil
}

// Repositories groups every repository bound to one connection or transaction
type Repositories struct {
	Profiles     *ProfileRepository
	Cards        *CardRepository
	CardStates   *CardStateRepository
	Statistics   *StatisticsRepository
	XP           *XPRepository
	Quests       *QuestRepository
	Tokens       *TokenRepository
	Coins        *CoinRepository
	Achievements *AchievementRepository
	SyncBatches  *SyncBatchRepository
}

// NewRepositories binds all repositories to q, which is either a pool or a transaction
func NewRepositories(q sqlx.ExtContext) Repositories {
	return Repositories{
		Profiles:     &ProfileRepository{q: q},
		Cards:        &CardRepository{q: q},
		CardStates:   &CardStateRepository{q: q},
		Statistics:   &StatisticsRepository{q: q},
		XP:           &XPRepository{q: q},
		Quests:       &QuestRepository{q: q},
		Tokens:       &TokenRepository{q: q},
		Coins:        &CoinRepository{q: q},
		Achievements: &AchievementRepository{q: q},
		SyncBatches:  &SyncBatchRepository{q: q},
	}
}

// insertReturningID runs an INSERT ... RETURNING id statement
func insertReturningID(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := sqlx.GetContext(ctx, q, &id, q.Rebind(query+" RETURNING id"), args...); err != nil {
		return 0, err
	}
	return id, nil
}
