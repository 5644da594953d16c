package repo

import (
	"context"
	"testing"

	"github.com/tbourn/fetchbin/internal/domain"
)

func TestOutputsStats_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, err := OutputsStats(context.Background(), db, true); err == nil {
		t.Fatalf("expected error due to missing outputs table")
	}
}

func TestOutputsStats_Empty(t *testing.T) {
	db := newStoreDB(t)
	s, err := OutputsStats(context.Background(), db, true)
	if err != nil {
		t.Fatalf("OutputsStats: %v", err)
	}
	if s != (OutputsSummary{}) {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}

func TestOutputsStats_TracksChanges(t *testing.T) {
	db := newStoreDB(t)
	ctx := context.Background()

	a := seedOutput(t, db, "a", false)
	seedOutput(t, db, "hidden", true)

	before, err := OutputsStats(ctx, db, true)
	if err != nil {
		t.Fatalf("OutputsStats: %v", err)
	}
	if before.Count != 1 || before.MaxID != int64(a.ID) {
		t.Fatalf("unexpected visible summary: %+v", before)
	}

	all, err := OutputsStats(ctx, db, false)
	if err != nil || all.Count != 2 {
		t.Fatalf("unexpected full summary: %+v err=%v", all, err)
	}

	if err := IncrementCounter(ctx, db, a.ID, domain.Up); err != nil {
		t.Fatalf("IncrementCounter: %v", err)
	}
	after, err := OutputsStats(ctx, db, true)
	if err != nil {
		t.Fatalf("OutputsStats after vote: %v", err)
	}
	if after == before || after.Upvotes != 1 {
		t.Fatalf("expected summary to change after vote: before=%+v after=%+v", before, after)
	}
}
