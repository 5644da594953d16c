package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	if (Output{}).TableName() != "outputs" {
		t.Fatalf("Output.TableName() = %q; want %q", (Output{}).TableName(), "outputs")
	}
	if (Vote{}).TableName() != "votes" {
		t.Fatalf("Vote.TableName() = %q; want %q", (Vote{}).TableName(), "votes")
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency.TableName() = %q; want %q", (Idempotency{}).TableName(), "idempotency")
	}
}

func TestDirection(t *testing.T) {
	if !Up.Valid() || !Down.Valid() || Direction("sideways").Valid() {
		t.Fatalf("Direction.Valid mismatch")
	}
	if Up.Column() != "upvotes" || Down.Column() != "downvotes" {
		t.Fatalf("Direction.Column mismatch: %q %q", Up.Column(), Down.Column())
	}
}

func TestParseSortKey(t *testing.T) {
	cases := map[string]SortKey{
		"":          SortNewest,
		"newest":    SortNewest,
		"upvotes":   SortUpvotes,
		"downvotes": SortDownvotes,
		"score":     SortScore,
		"SCORE":     SortNewest,
		"random":    SortNewest,
	}
	for in, want := range cases {
		if got := ParseSortKey(in); got != want {
			t.Fatalf("ParseSortKey(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestOutputScore(t *testing.T) {
	o := Output{Upvotes: 2, Downvotes: 5}
	if o.Score() != -3 {
		t.Fatalf("Score() = %d; want -3", o.Score())
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&Output{}, &Vote{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range []any{&Output{}, &Vote{}, &Idempotency{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	for _, idx := range []string{"ux_outputs_public_id", "ux_outputs_delete_token"} {
		if !m.HasIndex(&Output{}, idx) {
			t.Fatalf("expected index %s on outputs", idx)
		}
	}
	if !m.HasIndex(&Vote{}, "ux_votes_output_ip") {
		t.Fatalf("expected unique index ux_votes_output_ip on votes")
	}

	now := time.Now().UTC()
	out := &Output{PublicID: "p1", DeleteToken: "d1", Content: "hello", CreatedAt: now}
	if err := db.Create(out).Error; err != nil {
		t.Fatalf("insert output: %v", err)
	}

	v1 := &Vote{OutputID: out.ID, SourceIP: "10.0.0.1", Direction: Up, CreatedAt: now}
	if err := db.Create(v1).Error; err != nil {
		t.Fatalf("insert vote: %v", err)
	}

	// Same (output, ip) in the other direction must be rejected.
	v2 := &Vote{OutputID: out.ID, SourceIP: "10.0.0.1", Direction: Down, CreatedAt: now}
	if err := db.Create(v2).Error; err == nil {
		t.Fatalf("expected unique violation for second vote from same IP")
	}

	// Duplicate public id must be rejected.
	dup := &Output{PublicID: "p1", DeleteToken: "d2", Content: "x", CreatedAt: now}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected unique violation for duplicate public_id")
	}

	// CASCADE: deleting the output removes its votes.
	if err := db.Delete(&Output{}, out.ID).Error; err != nil {
		t.Fatalf("delete output: %v", err)
	}
	var cnt int64
	if err := db.Model(&Vote{}).Where("output_id = ?", out.ID).Count(&cnt).Error; err != nil {
		t.Fatalf("count votes: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected votes to cascade-delete, got %d", cnt)
	}
}
