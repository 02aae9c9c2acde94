package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/adonisja/tyche-finance-sub001/internal/audit"
	redissink "github.com/adonisja/tyche-finance-sub001/internal/audit/sink/redis"
	"github.com/adonisja/tyche-finance-sub001/internal/audit/store/memory"
	"github.com/adonisja/tyche-finance-sub001/internal/audit/store/postgres"
	"github.com/adonisja/tyche-finance-sub001/internal/authz"
	"github.com/adonisja/tyche-finance-sub001/internal/authz/token"
	"github.com/adonisja/tyche-finance-sub001/internal/platform/config"
	"github.com/adonisja/tyche-finance-sub001/internal/platform/httpserver"
	"github.com/adonisja/tyche-finance-sub001/internal/platform/logger"
	"github.com/adonisja/tyche-finance-sub001/internal/platform/metrics"
	platformredis "github.com/adonisja/tyche-finance-sub001/internal/platform/redis"
	httptransport "github.com/adonisja/tyche-finance-sub001/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Authorization and audit logic live in internal
// packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	store, closeStore, err := buildStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	auditOpts := []audit.Option{
		audit.WithLogger(log),
		audit.WithTimeout(cfg.AuditWriteTimeout),
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		auditOpts = append(auditOpts, audit.WithSink(redissink.New(redisClient.Client)))
		log.Info("audit stream sink enabled")
	}

	auditor, err := audit.NewLogger(store, auditOpts...)
	if err != nil {
		return err
	}

	gate, err := authz.NewGate(authz.NewHierarchy(), auditor, authz.WithGateLogger(log))
	if err != nil {
		return err
	}

	validator := token.NewService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	mw := httptransport.NewMiddleware(validator, gate, log)
	router := httptransport.NewRouter(mw, httptransport.NewAuditHandler(auditor, log), metrics.NewHTTP())

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildStore selects the durable audit store from configuration. The
// in-memory store is for development only and logs a warning.
func buildStore(cfg config.Config, log *slog.Logger) (audit.Store, func(), error) {
	if cfg.Store.PostgresURL == "" {
		log.Warn("no postgres URL configured, audit entries are held in memory")
		return memory.New(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Store.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.New(db), func() { db.Close() }, nil
}
