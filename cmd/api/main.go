package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"med-adherence-tracker/internal/adapters/auth/gotrue"
	blobgcs "med-adherence-tracker/internal/adapters/blob/gcs"
	blobmem "med-adherence-tracker/internal/adapters/blob/memory"
	"med-adherence-tracker/internal/adapters/blob/supastore"
	pg "med-adherence-tracker/internal/adapters/storage/postgres"
	"med-adherence-tracker/internal/config"
	"med-adherence-tracker/internal/platform/logger"
	"med-adherence-tracker/internal/platform/scheduler"
	"med-adherence-tracker/internal/ports/auth"
	"med-adherence-tracker/internal/ports/blob"
	"med-adherence-tracker/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewFromEnv().Error("invalid config", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres si hay DSN; si no, repos in-memory (modo dev)
	var db *sql.DB
	if cfg.DBDSN != "" {
		db, err = pg.Open(cfg.DBDSN)
		if err != nil {
			log.Error("postgres connect failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer db.Close()
		log.Info("postgres connected", nil)
	} else {
		log.Warn("no DB_DSN, using in-memory storage", nil)
	}

	verifier := buildVerifier(cfg, log)
	store := buildImageStore(ctx, cfg, log)

	handler, svcs := router.NewRouter(router.Options{
		AuthVerifier:   verifier,
		DB:             db,
		ImageStore:     store,
		Log:            log,
		FeedLimit:      cfg.Feed.Limit,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	})

	// Poller del feed: un ciclo fetch-then-reduce por intervalo, sin
	// solaparse aunque un ciclo se cuelgue.
	poller, err := scheduler.New()
	if err != nil {
		log.Error("scheduler init failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	if err := poller.Every(ctx, "feed-refresh", cfg.Feed.PollInterval, svcs.Feed.RefreshAll); err != nil {
		log.Error("scheduler job failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	poller.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", map[string]any{"error": err.Error()})
	}
	if err := poller.Stop(); err != nil {
		log.Warn("poller shutdown", map[string]any{"error": err.Error()})
	}
}

func buildVerifier(cfg config.Config, log logger.Logger) auth.AuthVerifier {
	if cfg.Auth.JWTSecret == "" && (cfg.Auth.BaseURL == "" || cfg.Auth.APIKey == "") {
		log.Warn("auth not configured, running in dev mode (X-Debug-User-ID)", nil)
		return nil
	}

	client, err := gotrue.NewClient(gotrue.Config{
		BaseURL:   cfg.Auth.BaseURL,
		APIKey:    cfg.Auth.APIKey,
		JWTSecret: cfg.Auth.JWTSecret,
	})
	if err != nil {
		log.Error("auth client init failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	return gotrue.NewVerifier(client)
}

func buildImageStore(ctx context.Context, cfg config.Config, log logger.Logger) blob.ImageStore {
	switch cfg.Storage.Driver {
	case "supabase":
		s, err := supastore.NewStore(supastore.Config{
			BaseURL: cfg.Storage.BaseURL,
			APIKey:  cfg.Storage.APIKey,
			Bucket:  cfg.Storage.Bucket,
		})
		if err != nil {
			log.Error("supabase storage init failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		return s
	case "gcs":
		s, err := blobgcs.NewStore(ctx, blobgcs.Config{
			Bucket:        cfg.Storage.Bucket,
			PublicBaseURL: cfg.Storage.BaseURL,
		})
		if err != nil {
			log.Error("gcs storage init failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		return s
	default:
		log.Warn("using in-memory image storage", nil)
		return blobmem.NewStore()
	}
}
