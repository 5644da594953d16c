// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Output model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no validation, only persistence
// and query composition.
//
// Error semantics:
//   - Lookups of missing rows return ErrNotFound.
//   - Inserts that hit the public_id / delete_token unique indexes return
//     ErrDuplicate so the caller can mint new identifiers and retry.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/fetchbin/internal/domain"
)

// CreateOutput inserts o. CreatedAt defaults to the current UTC time and the
// vote counters always start at zero.
func CreateOutput(ctx context.Context, db *gorm.DB, o *domain.Output) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.Upvotes, o.Downvotes = 0, 0
	if err := db.WithContext(ctx).Create(o).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetOutputByPublicID fetches an output by its public identifier.
func GetOutputByPublicID(ctx context.Context, db *gorm.DB, publicID string) (*domain.Output, error) {
	return getOutputWhere(ctx, db, "public_id = ?", publicID)
}

// GetOutputByDeleteToken fetches an output by its delete token.
func GetOutputByDeleteToken(ctx context.Context, db *gorm.DB, token string) (*domain.Output, error) {
	return getOutputWhere(ctx, db, "delete_token = ?", token)
}

func getOutputWhere(ctx context.Context, db *gorm.DB, cond string, arg string) (*domain.Output, error) {
	var o domain.Output
	err := db.WithContext(ctx).Where(cond, arg).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// orderClauses maps sort keys to ORDER BY clauses. Every ordering is
// descending and ties fall back to the newest row first.
var orderClauses = map[domain.SortKey]string{
	domain.SortNewest:    "id DESC",
	domain.SortUpvotes:   "upvotes DESC, id DESC",
	domain.SortDownvotes: "downvotes DESC, id DESC",
	domain.SortScore:     "(upvotes - downvotes) DESC, id DESC",
}

// ListOutputs returns up to limit outputs ordered by sort. When visibleOnly
// is set, hidden outputs are skipped. A limit <= 0 means no limit.
func ListOutputs(ctx context.Context, db *gorm.DB, visibleOnly bool, sort domain.SortKey, limit int) ([]domain.Output, error) {
	order, ok := orderClauses[sort]
	if !ok {
		order = orderClauses[domain.SortNewest]
	}
	q := db.WithContext(ctx).Model(&domain.Output{})
	if visibleOnly {
		q = q.Where("hidden = ?", false)
	}
	q = q.Order(order)
	if limit > 0 {
		q = q.Limit(limit)
	}
	out := []domain.Output{}
	err := q.Find(&out).Error
	return out, err
}

// DeleteOutput removes the output with the given internal id together with
// its votes and idempotency records. It returns ErrNotFound when no output
// row was removed. Callers should run it inside a transaction.
func DeleteOutput(ctx context.Context, db *gorm.DB, id uint) error {
	tx := db.WithContext(ctx)
	// Children first: the FK cascade covers this too, but only when the
	// connection has foreign keys enabled.
	if err := tx.Where("output_id = ?", id).Delete(&domain.Vote{}).Error; err != nil {
		return err
	}
	if err := tx.Where("output_id = ?", id).Delete(&domain.Idempotency{}).Error; err != nil {
		return err
	}
	res := tx.Delete(&domain.Output{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountOutputs returns the number of stored outputs.
func CountOutputs(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Output{}).Count(&total).Error
	return total, err
}

// CountOutputsSince returns how many outputs were created after since.
func CountOutputsSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Output{}).
		Where("created_at > ?", since.UTC()).
		Count(&total).Error
	return total, err
}
