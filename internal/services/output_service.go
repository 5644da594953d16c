// Package services – OutputService
//
// This file implements OutputService, the single entry point both ingestion
// channels (HTTP and raw TCP) use to store outputs, plus the read paths used
// by the HTTP layer. All validation of submissions lives here so the two
// channels cannot drift apart.
//
// Observability: public methods are OpenTelemetry-instrumented and stored
// outputs are counted per channel in fetchbin_shares_created_total.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/fetchbin/internal/domain"
	"github.com/tbourn/fetchbin/internal/ids"
	"github.com/tbourn/fetchbin/internal/repo"
)

const (
	// DefaultListLimit is used when a listing asks for no explicit limit.
	DefaultListLimit = 100
	// MaxListLimit caps a single listing page.
	MaxListLimit = 100

	// createAttempts bounds identifier regeneration on collision.
	createAttempts = 3

	defaultIdempotencyTTL = 24 * time.Hour
)

// CreateParams describes a submission.
type CreateParams struct {
	Content string
	// Label is an optional short descriptor; nil or blank means none.
	Label  *string
	Hidden bool
	// Channel names the ingestion front end ("http" or "tcp").
	Channel string
}

// ListParams selects and orders a listing.
type ListParams struct {
	VisibleOnly bool
	Sort        domain.SortKey
	// Limit <= 0 means DefaultListLimit; larger values are capped.
	Limit int
}

// Stats summarizes recent activity.
type Stats struct {
	SharesLastHour int64 `json:"shares_last_hour"`
	Total          int64 `json:"total"`
}

// OutputService stores and serves outputs.
type OutputService struct {
	DB *gorm.DB

	// NewID mints public ids and delete tokens. Defaults to ids.New.
	NewID ids.Generator
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// IdempotencyTTL is how long an Idempotency-Key replays its first result.
	IdempotencyTTL time.Duration
}

// NewOutputService constructs an OutputService with default collaborators.
func NewOutputService(db *gorm.DB) *OutputService {
	return &OutputService{
		DB:             db,
		NewID:          ids.New,
		Now:            time.Now,
		IdempotencyTTL: defaultIdempotencyTTL,
	}
}

func (s *OutputService) newID() string {
	if s.NewID == nil {
		return ids.New()
	}
	return s.NewID()
}

func (s *OutputService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *OutputService) idemTTL() time.Duration {
	if s.IdempotencyTTL <= 0 {
		return defaultIdempotencyTTL
	}
	return s.IdempotencyTTL
}

// Create validates and stores a submission, minting fresh identifiers.
//
// Validation:
//   - blank content (after trimming whitespace) → ErrEmptyContent
//   - content over domain.MaxContentBytes bytes → ErrContentTooLarge
//   - label over domain.MaxLabelRunes runes → ErrLabelTooLong
//   - a blank label is stored as NULL
//
// Identifier collisions are retried with new ids; storage failures wrap
// ErrPersistence.
func (s *OutputService) Create(ctx context.Context, p CreateParams) (*domain.Output, error) {
	out, _, err := s.create(ctx, p, "", "")
	return out, err
}

// CreateIdempotent behaves like Create, but a repeated (clientKey, key) pair
// within the idempotency window returns the output stored by the first call
// and replayed=true instead of storing a second one. An empty key disables
// the lookup.
func (s *OutputService) CreateIdempotent(ctx context.Context, p CreateParams, clientKey, key string) (out *domain.Output, replayed bool, err error) {
	return s.create(ctx, p, clientKey, key)
}

// errIdemRace signals that a concurrent request stored the same
// idempotency key first.
var errIdemRace = errors.New("idempotency key taken concurrently")

func (s *OutputService) create(ctx context.Context, p CreateParams, clientKey, key string) (*domain.Output, bool, error) {
	tr := otel.Tracer("services/OutputService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("channel", p.Channel),
			attribute.Int("content.bytes", len(p.Content)),
			attribute.Bool("idempotent", key != ""),
		),
	)
	defer span.End()

	content, label, err := validateSubmission(p.Content, p.Label)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}

	if key != "" {
		if prev, err := s.replay(ctx, clientKey, key); err == nil {
			span.SetAttributes(attribute.Bool("replayed", true))
			return prev, true, nil
		} else if !errors.Is(err, ErrOutputNotFound) {
			return nil, false, err
		}
	}

	for attempt := 1; attempt <= createAttempts; attempt++ {
		o := &domain.Output{
			PublicID:    s.newID(),
			DeleteToken: s.newID(),
			Content:     content,
			Label:       label,
			Hidden:      p.Hidden,
			CreatedAt:   s.now(),
		}
		if o.DeleteToken == o.PublicID {
			continue
		}

		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := repo.CreateOutput(ctx, tx, o); err != nil {
				return err
			}
			if key == "" {
				return nil
			}
			now := s.now()
			err := repo.CreateIdempotency(ctx, tx, &domain.Idempotency{
				ClientKey: clientKey,
				Key:       key,
				OutputID:  o.ID,
				Status:    201,
				CreatedAt: now,
				ExpiresAt: now.Add(s.idemTTL()),
			})
			if errors.Is(err, repo.ErrDuplicate) {
				return errIdemRace
			}
			return err
		})
		switch {
		case err == nil:
			sharesCreated.WithLabelValues(channelLabel(p.Channel)).Inc()
			span.SetAttributes(attribute.Int("attempts", attempt))
			return o, false, nil
		case errors.Is(err, errIdemRace):
			prev, rerr := s.replay(ctx, clientKey, key)
			switch {
			case rerr == nil:
				return prev, true, nil
			case errors.Is(rerr, ErrOutputNotFound):
				// The winning share was deleted before it could be replayed;
				// its record went with it, so the key is free again.
				continue
			default:
				return nil, false, rerr
			}
		case errors.Is(err, repo.ErrDuplicate):
			continue
		default:
			span.SetStatus(codes.Error, err.Error())
			return nil, false, persistErr("create output", err)
		}
	}
	span.SetStatus(codes.Error, ErrIdentifierCollision.Error())
	return nil, false, ErrIdentifierCollision
}

// replay returns the output recorded for (clientKey, key), or
// ErrOutputNotFound when there is no live record.
func (s *OutputService) replay(ctx context.Context, clientKey, key string) (*domain.Output, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, clientKey, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrOutputNotFound
	}
	if err != nil {
		return nil, persistErr("idempotency lookup", err)
	}
	var o domain.Output
	if err := s.DB.WithContext(ctx).First(&o, rec.OutputID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOutputNotFound
		}
		return nil, persistErr("idempotency replay", err)
	}
	return &o, nil
}

// validateSubmission applies the shared ingestion rules and returns the
// content and label to store.
func validateSubmission(content string, label *string) (string, *string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil, ErrEmptyContent
	}
	// TEXT columns in PostgreSQL reject invalid UTF-8. A replacement is
	// longer than the byte it stands for, so the cap applies after it.
	content = strings.ToValidUTF8(content, "\uFFFD")
	if len(content) > domain.MaxContentBytes {
		return "", nil, ErrContentTooLarge
	}

	if label == nil {
		return content, nil, nil
	}
	l := strings.TrimSpace(*label)
	if l == "" {
		return content, nil, nil
	}
	l = norm.NFC.String(strings.ToValidUTF8(l, "\uFFFD"))
	if utf8.RuneCountInString(l) > domain.MaxLabelRunes {
		return "", nil, ErrLabelTooLong
	}
	return content, &l, nil
}

func channelLabel(ch string) string {
	switch ch {
	case ChannelHTTP, ChannelTCP:
		return ch
	default:
		return "other"
	}
}

// Get returns the output with the given public id, hidden or not.
func (s *OutputService) Get(ctx context.Context, publicID string) (*domain.Output, error) {
	tr := otel.Tracer("services/OutputService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("output.public_id", publicID)))
	defer span.End()

	o, err := repo.GetOutputByPublicID(ctx, s.DB, publicID)
	return o, mapLookupErr("get output", err)
}

// GetByDeleteToken returns the output the token authorizes deleting.
func (s *OutputService) GetByDeleteToken(ctx context.Context, token string) (*domain.Output, error) {
	tr := otel.Tracer("services/OutputService")
	ctx, span := tr.Start(ctx, "GetByDeleteToken")
	defer span.End()

	o, err := repo.GetOutputByDeleteToken(ctx, s.DB, token)
	return o, mapLookupErr("get output by token", err)
}

func mapLookupErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrOutputNotFound
	default:
		return persistErr(op, err)
	}
}

// List returns outputs ordered by p.Sort (descending, newest first on ties).
func (s *OutputService) List(ctx context.Context, p ListParams) ([]domain.Output, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	sort := domain.ParseSortKey(string(p.Sort))

	tr := otel.Tracer("services/OutputService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("sort", string(sort)),
			attribute.Int("limit", limit),
			attribute.Bool("visible_only", p.VisibleOnly),
		),
	)
	defer span.End()

	items, err := repo.ListOutputs(ctx, s.DB, p.VisibleOnly, sort, limit)
	if err != nil {
		return nil, persistErr("list outputs", err)
	}
	return items, nil
}

// Delete removes the output authorized by token together with its votes.
// An unknown or already used token yields ErrOutputNotFound.
func (s *OutputService) Delete(ctx context.Context, token string) error {
	tr := otel.Tracer("services/OutputService")
	ctx, span := tr.Start(ctx, "Delete")
	defer span.End()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := repo.GetOutputByDeleteToken(ctx, tx, token)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.String("output.public_id", o.PublicID))
		return repo.DeleteOutput(ctx, tx, o.ID)
	})
	return mapLookupErr("delete output", err)
}

// Stats reports how many outputs were shared in the last hour and in total.
func (s *OutputService) Stats(ctx context.Context) (Stats, error) {
	tr := otel.Tracer("services/OutputService")
	ctx, span := tr.Start(ctx, "Stats")
	defer span.End()

	total, err := repo.CountOutputs(ctx, s.DB)
	if err != nil {
		return Stats{}, persistErr("count outputs", err)
	}
	recent, err := repo.CountOutputsSince(ctx, s.DB, s.now().Add(-time.Hour))
	if err != nil {
		return Stats{}, persistErr("count recent outputs", err)
	}
	return Stats{SharesLastHour: recent, Total: total}, nil
}

// Fingerprint returns a cheap summary of the listable outputs, used to build
// listing ETags.
func (s *OutputService) Fingerprint(ctx context.Context, visibleOnly bool) (repo.OutputsSummary, error) {
	sum, err := repo.OutputsStats(ctx, s.DB, visibleOnly)
	if err != nil {
		return repo.OutputsSummary{}, persistErr("outputs fingerprint", err)
	}
	return sum, nil
}

// PurgeIdempotency drops idempotency records whose window has closed and
// reports how many were removed.
func (s *OutputService) PurgeIdempotency(ctx context.Context) (int64, error) {
	n, err := repo.PurgeExpiredIdempotency(ctx, s.DB, s.now())
	if err != nil {
		return 0, persistErr("purge idempotency", err)
	}
	return n, nil
}
