// Package services – VoteService
//
// This file implements the vote ledger: one vote per (output, source IP),
// counters changed only by in-database increments, and the vote row plus the
// counter update committed atomically.
//
// The transaction writes before it reads: incrementing the counter first
// takes the row (SQLite: database) write lock, so two concurrent votes from
// the same IP serialize and the second one observes the first vote row and
// rolls back. The unique index on (output_id, source_ip) remains the backstop.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/fetchbin/internal/domain"
	"github.com/tbourn/fetchbin/internal/repo"
)

// VoteService records votes on outputs.
type VoteService struct {
	DB *gorm.DB

	// MaxRetryElapsed bounds how long lock contention is retried.
	// Zero means two seconds.
	MaxRetryElapsed time.Duration
}

// NewVoteService constructs a VoteService with default retry settings.
func NewVoteService(db *gorm.DB) *VoteService {
	return &VoteService{DB: db, MaxRetryElapsed: 2 * time.Second}
}

func (s *VoteService) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = s.MaxRetryElapsed
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = 2 * time.Second
	}
	return backoff.WithContext(b, ctx)
}

// Cast records a vote by sourceIP on the output identified by publicID and
// returns the counters after the vote.
//
// Errors:
//   - ErrInvalidDirection for a direction other than up/down
//   - ErrInvalidSourceIP for a blank or oversized source IP
//   - ErrOutputNotFound when the output does not exist (or was deleted
//     concurrently)
//   - ErrAlreadyVoted when sourceIP already voted on it, in either direction
//   - an ErrPersistence-wrapped error for storage failures
func (s *VoteService) Cast(ctx context.Context, publicID, sourceIP string, dir domain.Direction) (*domain.Tally, error) {
	tr := otel.Tracer("services/VoteService")
	ctx, span := tr.Start(ctx, "Cast",
		trace.WithAttributes(
			attribute.String("output.public_id", publicID),
			attribute.String("vote.direction", string(dir)),
		),
	)
	defer span.End()

	if !dir.Valid() {
		return nil, ErrInvalidDirection
	}
	sourceIP = strings.TrimSpace(sourceIP)
	if sourceIP == "" || len(sourceIP) > domain.MaxSourceIPLen {
		return nil, ErrInvalidSourceIP
	}

	out, err := repo.GetOutputByPublicID(ctx, s.DB, publicID)
	if err != nil {
		err = mapLookupErr("resolve output", err)
		s.observe(dir, err)
		return nil, err
	}

	var tally domain.Tally
	attempts := 0
	op := func() error {
		attempts++
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := repo.IncrementCounter(ctx, tx, out.ID, dir); err != nil {
				return err
			}
			voted, err := repo.VoteExists(ctx, tx, out.ID, sourceIP)
			if err != nil {
				return err
			}
			if voted {
				return ErrAlreadyVoted
			}
			if err := repo.CreateVote(ctx, tx, out.ID, sourceIP, dir); err != nil {
				if errors.Is(err, repo.ErrDuplicate) {
					return ErrAlreadyVoted
				}
				return err
			}
			t, err := repo.GetTally(ctx, tx, out.ID)
			if err != nil {
				return err
			}
			tally = t
			return nil
		})
		if err != nil && !repo.IsBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err = backoff.Retry(op, s.retryPolicy(ctx))
	span.SetAttributes(attribute.Int("attempts", attempts))
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyVoted):
	case errors.Is(err, repo.ErrNotFound):
		err = ErrOutputNotFound
	default:
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).Int("attempts", attempts).Str("public_id", publicID).Msg("vote failed")
		err = persistErr("cast vote", err)
	}
	s.observe(dir, err)
	if err != nil {
		return nil, err
	}
	return &tally, nil
}

func (s *VoteService) observe(dir domain.Direction, err error) {
	result := voteAccepted
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyVoted):
		result = voteDuplicate
	case errors.Is(err, ErrOutputNotFound):
		result = voteNotFound
	default:
		result = voteError
	}
	votesCast.WithLabelValues(string(dir), result).Inc()
}
