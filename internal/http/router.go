// Package httpapi mounts fetchbin's HTTP surface on a Gin engine: the JSON
// API under the configured base path, the root-level raw text and delete
// links, and the operational endpoints (/health, /metrics, /swagger).
//
// Global middleware runs in this order:
//
//	otelgin → RequestID → RedactingLogger → Recovery → body cap →
//	Metrics → gzip → CORS → security headers
//
// Write routes add their own chain on top. /api/share runs
// IdempotencyValidator before the rate limiter, so a replayed share is not
// charged against the client's bucket.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/fetchbin/internal/config"
	"github.com/tbourn/fetchbin/internal/http/handlers"
	"github.com/tbourn/fetchbin/internal/http/middleware"
	"github.com/tbourn/fetchbin/internal/repo"
	"github.com/tbourn/fetchbin/internal/services"
)

// Deps carries the collaborators RegisterRoutes mounts. Nil services are
// built from DB.
type Deps struct {
	DB      *gorm.DB
	Outputs *services.OutputService
	Votes   *services.VoteService
	// Limiter throttles write routes per client IP. main shares it with the
	// raw TCP listener; nil builds one from cfg.RateRPS/RateBurst.
	Limiter *middleware.RateLimiter
	Version string
}

// RegisterRoutes installs the middleware stack and every endpoint on r.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	outputs := deps.Outputs
	if outputs == nil {
		outputs = services.NewOutputService(deps.DB)
		outputs.IdempotencyTTL = cfg.IdempotencyTTL
	}
	votes := deps.Votes
	if votes == nil {
		votes = services.NewVoteService(deps.DB)
	}
	rl := deps.Limiter
	if rl == nil {
		rl = middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	}

	r.Use(
		otelgin.Middleware(cfg.OTEL.ServiceName),
		middleware.RequestID(),
		middleware.RedactingLogger(middleware.RedactOptions{MaskHeaders: []string{"X-API-Key"}}),
		middleware.Recovery(),
		// Only /api/share reads a body.
		limitBody(handlers.ShareBodyLimit),
		middleware.Metrics(),
	)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(corsHandlers(cfg.CORS.AllowedOrigins)...)

	base := middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}
	r.Use(middleware.SecurityHeaders(base))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	h := handlers.New(outputs, votes, cfg.PublicURL, deps.Version)

	r.GET("/health", h.Health)
	r.GET("/healthcheck", h.Health)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var (
		limit = rl.Handler()
		idem  = middleware.IdempotencyValidator(
			middleware.IdempotencyOptions{MaxLen: 200},
			idempotencyLookup(deps.DB),
		)
		// Share responses and delete pages carry the delete token.
		tokenBearing = middleware.SecurityHeaders(withNoStore(base))
	)

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.POST("/share", tokenBearing, idem, limit, h.Share)
	api.GET("/outputs", h.ListOutputs)
	api.GET("/stats", h.Stats)
	api.GET("/output/:public_id", h.GetOutput)
	api.POST("/output/:public_id/upvote", limit, h.Upvote)
	api.POST("/output/:public_id/downvote", limit, h.Downvote)

	r.GET("/delete/:delete_token", tokenBearing, h.ConfirmDelete)
	r.POST("/delete/:delete_token", tokenBearing, limit, h.Delete)

	raw := r.Group("", middleware.SecurityHeaders(withSandbox(base)))
	raw.GET("/output/:public_id", h.RawOutput)
	raw.GET("/raw/:public_id", h.RawOutput)
}

func withNoStore(o middleware.SecurityOptions) middleware.SecurityOptions {
	o.NoStore = true
	return o
}

func withSandbox(o middleware.SecurityOptions) middleware.SecurityOptions {
	o.SandboxContent = true
	return o
}

// corsHandlers builds the CORS chain. With no allowlist every origin is
// accepted and ACAO is "*" on all responses, Origin header or not; with one,
// a listed Origin is echoed back.
func corsHandlers(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length", "ETag", handlers.HeaderIdempotencyReplayed},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); allowed[origin] {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Add("Vary", "Origin")
			}
			c.Next()
		},
		cors.New(base),
	}
}

// idempotencyLookup reports whether (client, key) has a live share record.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, clientKey, key string, now time.Time) (bool, error) {
		_, err := repo.GetIdempotency(ctx, db, clientKey, key, now)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, repo.ErrNotFound):
			return false, nil
		default:
			return false, err
		}
	}
}

// limitBody caps every request body at maxBytes; reads past the cap fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix; "" and "/" mean the root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
