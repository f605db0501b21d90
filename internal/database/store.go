// Package database implements the dictionary repositories over PostgreSQL
// and SQLite using sqlx.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/jwillikers/content-rating/internal/config"
	"github.com/jwillikers/content-rating/internal/dictionary"
	"github.com/jwillikers/content-rating/internal/domain"
	"github.com/jwillikers/content-rating/internal/logging"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections.
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum connection lifetime.
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultPingTimeout is the default timeout for the startup ping.
	DefaultPingTimeout = 5 * time.Second
)

// Store is the sqlx-backed dictionary.Store. Queries are written with "?"
// placeholders and rebound per driver, so the same repositories serve both
// PostgreSQL and SQLite.
type Store struct {
	db     *sqlx.DB
	logger logging.Logger
}

var _ dictionary.Store = (*Store)(nil)

// Open connects to the configured database, applies pool settings, and
// verifies the connection with a ping.
func Open(cfg config.DatabaseConfig, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	var dsn string
	switch cfg.Driver {
	case "postgres":
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
		)
	case "sqlite3":
		// Serialize writers up front instead of surfacing SQLITE_BUSY.
		dsn = cfg.Path + "?_busy_timeout=5000&_foreign_keys=on"
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}

	db, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "sqlite3" {
		// SQLite allows one writer at a time.
		db.SetMaxOpenConns(1)
	} else {
		maxOpen := cfg.MaxConnections
		if maxOpen <= 0 {
			maxOpen = DefaultMaxOpenConns
		}
		maxIdle := cfg.MaxIdleConns
		if maxIdle <= 0 {
			maxIdle = DefaultMaxIdleConns
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxIdle)
		db.SetConnMaxLifetime(DefaultConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	logger.Info("database connected", logging.String("driver", cfg.Driver))

	return &Store{db: db, logger: logger}, nil
}

// NewStore wraps an existing connection, for tests and embedded use.
func NewStore(db *sqlx.DB, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{db: db, logger: logger}
}

// DB exposes the underlying connection for schema setup.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Repos returns repositories bound to the plain connection, outside any
// transaction.
func (s *Store) Repos() dictionary.Repositories {
	return newRepositories(s.db)
}

// InTx runs fn inside a transaction. Serialization failures and unique
// violations from get-or-create races are mapped to domain.ErrConflict so
// callers can retry.
func (s *Store) InTx(ctx context.Context, fn func(repos dictionary.Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err = fn(newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("rollback failed", logging.Error(rbErr))
		}
		return mapConflict(err)
	}

	if err = tx.Commit(); err != nil {
		return mapConflict(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// mapConflict translates driver-level race signatures into
// domain.ErrConflict, preserving the original error in the chain.
func mapConflict(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"23505": // unique_violation
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy ||
			sqliteErr.Code == sqlite3.ErrLocked ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
	}

	return err
}

func newRepositories(ext sqlx.ExtContext) dictionary.Repositories {
	return dictionary.Repositories{
		Categories: &CategoryRepository{ext: ext},
		Words:      &WordRepository{ext: ext},
		Users:      &UserStorageRepository{ext: ext},
		Ratings:    &RatingRepository{ext: ext},
	}
}
