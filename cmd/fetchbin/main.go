// Command fetchbin serves the fetchbin HTTP API and the raw TCP ingestion
// port from one process sharing one store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	_ "github.com/tbourn/fetchbin/docs"
	"github.com/tbourn/fetchbin/internal/config"
	httpapi "github.com/tbourn/fetchbin/internal/http"
	"github.com/tbourn/fetchbin/internal/http/middleware"
	"github.com/tbourn/fetchbin/internal/observability"
	"github.com/tbourn/fetchbin/internal/rawtcp"
	"github.com/tbourn/fetchbin/internal/repo"
	"github.com/tbourn/fetchbin/internal/services"
	"github.com/tbourn/fetchbin/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const purgeInterval = 10 * time.Minute

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("fetchbin stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("fetchbin stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := openStore(cfg.DB)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	outputs := services.NewOutputService(db)
	outputs.IdempotencyTTL = cfg.IdempotencyTTL
	votes := services.NewVoteService(db)
	limiter := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:      db,
		Outputs: outputs,
		Votes:   votes,
		Limiter: limiter,
		Version: version,
	}, cfg)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("public_url", cfg.PublicURL).Msg("http server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if cfg.TCP.Enabled {
		tcp := &rawtcp.Server{
			Addr:        cfg.TCP.Addr(),
			Outputs:     outputs,
			PublicURL:   cfg.PublicURL,
			IdleTimeout: cfg.TCP.IdleTimeout,
			MaxConns:    cfg.TCP.MaxConns,
			Limiter:     limiter,
		}
		g.Go(func() error { return tcp.ListenAndServe(gctx) })
	}

	g.Go(func() error {
		purgeIdempotency(gctx, outputs, purgeInterval)
		return nil
	})

	return g.Wait()
}

func openStore(db config.DBConfig) (*gorm.DB, error) {
	gdb, err := repo.Open(db.Driver, db.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", db.Driver, err)
	}
	log.Info().Str("driver", db.Driver).Msg("store opened")
	return gdb, nil
}

// purgeIdempotency removes expired idempotency records every interval until
// ctx is done.
func purgeIdempotency(ctx context.Context, outputs *services.OutputService, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := outputs.PurgeIdempotency(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("idempotency records purged")
			}
		}
	}
}
