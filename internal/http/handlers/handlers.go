package handlers

import (
	"context"
	"time"

	"github.com/tbourn/fetchbin/internal/domain"
	"github.com/tbourn/fetchbin/internal/repo"
	"github.com/tbourn/fetchbin/internal/services"
)

//
// Service contracts (context-aware)
//

// OutputService defines the output store operations consumed by HTTP
// handlers. *services.OutputService implements it.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type OutputService interface {
	// CreateIdempotent stores a submission; a repeated (clientKey, key) pair
	// returns the first result with replayed=true. An empty key disables replay.
	CreateIdempotent(ctx context.Context, p services.CreateParams, clientKey, key string) (*domain.Output, bool, error)
	// Get returns the output with the given public id.
	Get(ctx context.Context, publicID string) (*domain.Output, error)
	// GetByDeleteToken returns the output a delete token authorizes.
	GetByDeleteToken(ctx context.Context, token string) (*domain.Output, error)
	// List returns outputs ordered and limited per p.
	List(ctx context.Context, p services.ListParams) ([]domain.Output, error)
	// Delete removes the output authorized by token.
	Delete(ctx context.Context, token string) error
	// Stats reports recent and total share counts.
	Stats(ctx context.Context) (services.Stats, error)
	// Fingerprint summarizes listable outputs for ETag computation.
	Fingerprint(ctx context.Context, visibleOnly bool) (repo.OutputsSummary, error)
}

// VoteService records votes. *services.VoteService implements it.
type VoteService interface {
	Cast(ctx context.Context, publicID, sourceIP string, dir domain.Direction) (*domain.Tally, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for sharing, reading, voting on and
// deleting outputs. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	outputs   OutputService
	votes     VoteService
	publicURL string
	version   string
	now       func() time.Time
}

// New constructs a Handlers bound to the given services. publicURL is the
// base of the view and delete URLs returned to clients; version is reported
// by the health endpoints.
func New(outputs OutputService, votes VoteService, publicURL, version string) *Handlers {
	return &Handlers{
		outputs:   outputs,
		votes:     votes,
		publicURL: publicURL,
		version:   version,
		now:       func() time.Time { return time.Now().UTC() },
	}
}
