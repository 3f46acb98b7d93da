// Package repo implements the persistence layer: messages, credentials,
// issued tokens and idempotency records on SQLite through GORM, plus a Redis
// backed token store.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-message-backend/internal/domain"
)

// sqlitePragmas are applied on open, in order.
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA foreign_keys=ON;",
	"PRAGMA busy_timeout=5000;",
}

const (
	maxOpenConns    = 10
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// OpenSQLite opens (or creates) the database at path, applies the PRAGMAs and
// sizes the pool. SQL errors and slow statements are logged through zerolog.
//
// The parent directory of a file path must exist. ":memory:" and "file:"
// DSNs are passed through unchanged.
func OpenSQLite(path string) (*gorm.DB, error) {
	if !isDSN(path) {
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, fmt.Errorf("open sqlite: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: NewGormLogger(DefaultSlowQuery)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, p := range sqlitePragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return db, nil
}

func isDSN(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}

// EnableTracing registers the OpenTelemetry GORM plugin so every query emits
// a span under the request's trace. Call it only when tracing is enabled.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin())
}

// AutoMigrate creates or updates every table the service uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Message{},
		&domain.Credential{},
		&domain.Token{},
		&domain.Idempotency{},
	)
}
