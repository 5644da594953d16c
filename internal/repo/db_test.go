package repo

import (
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/fetchbin/internal/domain"
)

func openTemp(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "fetchbin.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestOpenSQLite_ConnectionPragmas(t *testing.T) {
	db := openTemp(t)

	cases := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
	}
	for _, tc := range cases {
		var got string
		if err := db.Raw("PRAGMA " + tc.pragma).Row().Scan(&got); err != nil {
			t.Fatalf("PRAGMA %s: %v", tc.pragma, err)
		}
		if strings.ToLower(got) != tc.want {
			t.Errorf("PRAGMA %s = %q; want %q", tc.pragma, got, tc.want)
		}
	}

	sqlDB, _ := db.DB()
	if max := sqlDB.Stats().MaxOpenConnections; max != 10 {
		t.Fatalf("MaxOpenConnections = %d", max)
	}
}

func TestAutoMigrate_CreatesStoreAndIsRepeatable(t *testing.T) {
	db := openTemp(t)

	for i := 0; i < 2; i++ {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("AutoMigrate run %d: %v", i+1, err)
		}
	}
	m := db.Migrator()
	for _, model := range []any{&domain.Output{}, &domain.Vote{}, &domain.Idempotency{}} {
		if !m.HasTable(model) {
			t.Fatalf("missing table for %T", model)
		}
	}
	if !m.HasIndex(&domain.Idempotency{}, "ux_idem_client_key") {
		t.Fatalf("idempotency unique index missing")
	}
}

func TestOpenSQLite_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "fetchbin.db")
	if db, err := OpenSQLite(path); err == nil || db != nil {
		t.Fatalf("OpenSQLite(%q) = %v, %v; want error", path, db, err)
	}
}

func TestSQLiteDSN(t *testing.T) {
	cases := []struct {
		path   string
		prefix string
	}{
		{"fetchbin.db", "fetchbin.db?_pragma="},
		{"file:x?mode=memory", "file:x?mode=memory&_pragma="},
	}
	for _, tc := range cases {
		got := SQLiteDSN(tc.path)
		if !strings.HasPrefix(got, tc.prefix) {
			t.Errorf("SQLiteDSN(%q) = %q", tc.path, got)
		}
		for _, p := range sqlitePragmas {
			if !strings.Contains(got, p) {
				t.Errorf("SQLiteDSN(%q) missing %s", tc.path, p)
			}
		}
	}
}

func TestOpen_DriverSelection(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil || !strings.Contains(err.Error(), "mysql") {
		t.Fatalf("unsupported driver err = %v", err)
	}
	if _, err := Open(DriverPostgres, "  "); err == nil {
		t.Fatalf("blank postgres DSN accepted")
	}
	// Blank and mixed-case names select SQLite.
	for _, driver := range []string{"", " SQLite "} {
		db, err := Open(driver, filepath.Join(t.TempDir(), "fetchbin.db"))
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	}
}
