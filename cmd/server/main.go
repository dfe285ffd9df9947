package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/clusterdesk/internal/api"
	"github.com/dgallion1/clusterdesk/internal/cache"
	"github.com/dgallion1/clusterdesk/internal/cluster"
	"github.com/dgallion1/clusterdesk/internal/config"
	"github.com/dgallion1/clusterdesk/internal/store"
	"github.com/dgallion1/clusterdesk/internal/textract"
	"github.com/dgallion1/clusterdesk/internal/viewstats"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("loading configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	textract.SetPDFFallback(cfg.PDFFallbackPdftotext)

	st, err := store.Open(store.Config{
		DBPath:           cfg.DBPath,
		MaxDocumentChars: cfg.MaxDocumentChars,
	})
	if err != nil {
		log.Error("opening corpus store", "error", err)
		os.Exit(1)
	}

	stats := viewstats.New(cfg.ViewStatsWindow)
	svc := cluster.NewService(st, st, cache.NewMemory(cfg.CacheTTL, cfg.CacheCleanup), stats, log, cluster.Options{
		DefaultCutoff:         cfg.DefaultCutoff,
		LargeClusterThreshold: cfg.LargeClusterThreshold,
		MaxDocumentChars:      cfg.MaxDocumentChars,
	})

	srv := api.NewServer(svc, st, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		st.Close()
	}()

	log.Info("starting clusterdesk",
		"port", cfg.Port,
		"db", cfg.DBPath,
		"default_cutoff", cfg.DefaultCutoff,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
