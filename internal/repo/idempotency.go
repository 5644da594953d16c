package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/fetchbin/internal/domain"
)

// liveIdempotency scopes a query to (clientKey, key) records still open at now.
func liveIdempotency(db *gorm.DB, clientKey, key string, now time.Time) *gorm.DB {
	return db.Where("client_key = ? AND key = ? AND expires_at > ?", clientKey, key, now.UTC())
}

// GetIdempotency returns the live record for (clientKey, key). A blank key
// never matches.
func GetIdempotency(ctx context.Context, db *gorm.DB, clientKey, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	switch err := liveIdempotency(db.WithContext(ctx), clientKey, key, now).First(&rec).Error; {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency stores rec, first dropping an expired record for the same
// (client, key) that the purge has not reached yet. A live record for the pair
// is ErrDuplicate. The window must end after it starts.
func CreateIdempotency(ctx context.Context, db *gorm.DB, rec *domain.Idempotency) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if !rec.ExpiresAt.After(rec.CreatedAt) {
		return errors.New("idempotency record expires before it is created")
	}
	db = db.WithContext(ctx)
	if err := db.Where("client_key = ? AND key = ? AND expires_at <= ?", rec.ClientKey, rec.Key, rec.CreatedAt.UTC()).
		Delete(&domain.Idempotency{}).Error; err != nil {
		return err
	}
	err := db.Omit("Output").Create(rec).Error
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// PurgeExpiredIdempotency removes records closed at or before now and
// reports how many went.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
