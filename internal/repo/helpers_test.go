package repo

import (
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/fetchbin/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newStoreDB(t *testing.T) *gorm.DB {
	t.Helper()
	return newTestDB(t, &domain.Output{}, &domain.Vote{}, &domain.Idempotency{})
}

var seq int

func seedOutput(t *testing.T, db *gorm.DB, content string, hidden bool) *domain.Output {
	t.Helper()
	seq++
	o := &domain.Output{
		PublicID:    fmt.Sprintf("pub%05d", seq),
		DeleteToken: fmt.Sprintf("del%05d", seq),
		Content:     content,
		Hidden:      hidden,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("seed output: %v", err)
	}
	return o
}

func idemRecord(clientKey, key string, outputID uint, created time.Time, ttl time.Duration) *domain.Idempotency {
	return &domain.Idempotency{
		ClientKey: clientKey,
		Key:       key,
		OutputID:  outputID,
		Status:    201,
		CreatedAt: created.UTC(),
		ExpiresAt: created.UTC().Add(ttl),
	}
}
