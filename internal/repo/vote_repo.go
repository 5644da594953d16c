// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Vote model
// and the vote counters stored on outputs.
//
// Counters are only ever changed with an in-database "col = col + 1" update,
// never by writing a value read earlier, so concurrent voters cannot lose
// increments.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/fetchbin/internal/domain"
)

// IncrementCounter adds one to the counter for dir on the output with the
// given internal id. It returns ErrNotFound if the output no longer exists.
func IncrementCounter(ctx context.Context, db *gorm.DB, outputID uint, dir domain.Direction) error {
	col := dir.Column()
	res := db.WithContext(ctx).
		Model(&domain.Output{}).
		Where("id = ?", outputID).
		UpdateColumn(col, gorm.Expr(col+" + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// VoteExists reports whether sourceIP already voted on the output.
func VoteExists(ctx context.Context, db *gorm.DB, outputID uint, sourceIP string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("output_id = ? AND source_ip = ?", outputID, sourceIP).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

// CreateVote inserts a vote row. A second row for the same (output_id,
// source_ip) pair violates the unique index and yields ErrDuplicate.
func CreateVote(ctx context.Context, db *gorm.DB, outputID uint, sourceIP string, dir domain.Direction) error {
	v := &domain.Vote{
		OutputID:  outputID,
		SourceIP:  sourceIP,
		Direction: dir,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Omit("Output").Create(v).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetTally reads the current counters of an output.
func GetTally(ctx context.Context, db *gorm.DB, outputID uint) (domain.Tally, error) {
	var t domain.Tally
	res := db.WithContext(ctx).
		Model(&domain.Output{}).
		Select("upvotes", "downvotes").
		Where("id = ?", outputID).
		Scan(&t)
	if res.Error != nil {
		return domain.Tally{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Tally{}, ErrNotFound
	}
	return t, nil
}

// CountVotes returns the number of vote rows referencing the output.
func CountVotes(ctx context.Context, db *gorm.DB, outputID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Vote{}).Where("output_id = ?", outputID).Count(&n).Error
	return n, err
}
