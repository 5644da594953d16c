// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for conditional responses (ETag generation) and the share-rate summary.
// Each function is context-aware and safe to call from services or handlers.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/fetchbin/internal/domain"
)

// OutputsSummary is a cheap fingerprint of the outputs table. Any create,
// delete or vote changes at least one field.
type OutputsSummary struct {
	Count     int64
	MaxID     int64
	Upvotes   int64
	Downvotes int64
}

// OutputsStats aggregates the outputs table in a single query. When
// visibleOnly is set, hidden outputs are excluded. An empty table yields a
// zero summary.
//
// Sums are cast to BIGINT so SQLite and PostgreSQL both scan into int64.
func OutputsStats(ctx context.Context, db *gorm.DB, visibleOnly bool) (OutputsSummary, error) {
	var s OutputsSummary
	q := db.WithContext(ctx).Model(&domain.Output{})
	if visibleOnly {
		q = q.Where("hidden = ?", false)
	}
	err := q.Select(
		"COUNT(*) AS count, " +
			"CAST(COALESCE(MAX(id), 0) AS BIGINT) AS max_id, " +
			"CAST(COALESCE(SUM(upvotes), 0) AS BIGINT) AS upvotes, " +
			"CAST(COALESCE(SUM(downvotes), 0) AS BIGINT) AS downvotes",
	).Scan(&s).Error
	if err != nil {
		return OutputsSummary{}, err
	}
	return s, nil
}
