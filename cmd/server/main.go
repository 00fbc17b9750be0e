package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/UkralStul/blog-api/internal/allocator"
	"github.com/UkralStul/blog-api/internal/api"
	"github.com/UkralStul/blog-api/internal/config"
	"github.com/UkralStul/blog-api/internal/logging"
	"github.com/UkralStul/blog-api/internal/storage"
	"github.com/UkralStul/blog-api/internal/storage/cached"
	"github.com/UkralStul/blog-api/internal/storage/inmemory"
	"github.com/UkralStul/blog-api/internal/storage/mongodb"
	"github.com/UkralStul/blog-api/internal/storage/sqlstore"
	"github.com/UkralStul/blog-api/internal/validation"
)

func main() {
	cfg, err := config.LoadServer(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Server, log zerolog.Logger) error {
	log.Info().Str("storage", cfg.Storage).Msg("starting server")

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.CacheSize > 0 {
		if store, err = cached.New(store, cfg.CacheSize); err != nil {
			return err
		}
	}

	// Аллокатор инициализируется до того, как сервер начнет принимать запросы.
	ids := allocator.New(log)
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := ids.Initialize(initCtx, store); err != nil {
		log.Warn().Err(err).Msg("database id initialization degraded")
	}
	cancel()

	handler := &api.Handler{
		Store:     store,
		IDs:       ids,
		Validator: validation.New(),
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(handler, log, cfg.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server is running")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Server, log zerolog.Logger) (storage.PostStore, func(), error) {
	noop := func() {}

	switch cfg.Storage {
	case config.StoragePostgres:
		s, err := sqlstore.NewPostgres(cfg.DatabaseURL, logging.Gorm(log))
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return s, func() { _ = s.Close() }, nil

	case config.StorageSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, noop, fmt.Errorf("failed to create db dir %s: %w", dir, err)
			}
		}
		s, err := sqlstore.NewSQLite(cfg.SQLitePath, logging.Gorm(log))
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return s, func() { _ = s.Close() }, nil

	case config.StorageMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		s, err := mongodb.New(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, noop, err
		}
		log.Info().Str("database", cfg.MongoDatabase).Msg("MongoDB connected")
		return s, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Close(closeCtx)
		}, nil

	default:
		return inmemory.New(), noop, nil
	}
}
