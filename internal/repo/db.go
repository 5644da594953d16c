// Package repo is the GORM persistence layer for outputs, votes and
// idempotency records. Every function takes the *gorm.DB to run on, so the
// service layer decides what shares a transaction.
//
// Two stores are supported: SQLite through the pure-Go glebarez driver, and
// PostgreSQL through gorm's pgx driver.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/fetchbin/internal/domain"
)

// Supported values for the DB_DRIVER setting.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqlitePragmas are applied to every pooled connection through the DSN, so
// foreign keys (vote cascade) and the busy timeout hold on all of them.
var sqlitePragmas = []string{
	"_pragma=journal_mode(WAL)",
	"_pragma=synchronous(NORMAL)",
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
}

// Open connects to the store selected by driver. For sqlite, dsn is a file
// path (or a "file:" URI); for postgres it is a libpq/pgx connection string.
func Open(driver, dsn string) (*gorm.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		return OpenSQLite(dsn)
	case DriverPostgres:
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB driver %q", driver)
	}
}

// OpenSQLite opens or creates the SQLite file at path.
func OpenSQLite(path string) (*gorm.DB, error) {
	// A missing parent directory otherwise surfaces as an opaque driver error.
	if dir := filepath.Dir(path); !strings.HasPrefix(path, "file:") && dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("sqlite directory: %w", err)
		}
	}
	return openWith(sqlite.Open(SQLiteDSN(path)), 10)
}

// SQLiteDSN appends the connection pragmas to path.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(sqlitePragmas, "&")
}

// OpenPostgres connects to PostgreSQL through the pgx-backed GORM driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres DSN must not be empty")
	}
	return openWith(postgres.Open(dsn), 25)
}

// openWith opens dialector with tracing installed and the pool capped at
// maxOpen connections.
func openWith(dialector gorm.Dialector, maxOpen int) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, err
	}
	if err := instrument(db); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// gormConfig routes GORM's own logging through zerolog. Query parameters are
// never printed: they carry whole submissions.
func gormConfig() *gorm.Config {
	zl := log.With().Str("component", "gorm").Logger()
	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(&zl, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		}),
	}
}

// instrument installs the OpenTelemetry tracing plugin. Spans are no-ops
// until a tracer provider is configured.
func instrument(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutQueryVariables()))
}

// AutoMigrate creates or updates the outputs, votes and idempotency tables.
// It must run once before either ingestion front end starts.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Output{},
		&domain.Vote{},
		&domain.Idempotency{},
	)
}
