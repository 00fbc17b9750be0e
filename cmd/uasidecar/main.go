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

	"github.com/UkralStul/blog-api/internal/config"
	"github.com/UkralStul/blog-api/internal/logging"
	"github.com/UkralStul/blog-api/internal/useragent"
)

func main() {
	cfg, err := config.LoadSidecar(os.Args[1:], os.Getenv)
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

	s := &useragent.Server{
		Log: useragent.NewFileLog(cfg.LogPath),
		Opts: useragent.Options{
			Token:       cfg.Token,
			PublicDir:   cfg.PublicDir,
			Rate:        cfg.Rate,
			Burst:       cfg.Burst,
			CORSOrigins: cfg.CORSOrigins,
		},
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router(log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", srv.Addr).Str("log_path", cfg.LogPath).Msg("server is running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}
