package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/facevault/facevault/internal/config"
	"github.com/facevault/facevault/internal/embed"
	"github.com/facevault/facevault/internal/events"
	"github.com/facevault/facevault/internal/faces"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enrollment API server",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	printHeader("🙂 FaceVault Server")
	fmt.Println("Starting FaceVault...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		fmt.Printf("Failed to create data directory: %v\n", err)
		os.Exit(1)
	}
	store, err := faces.OpenSQLiteStore(cfg.Store.Path)
	if err != nil {
		fmt.Printf("Failed to open metadata store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	index := faces.NewVictorClient(cfg.Index.URL)
	registry := faces.NewRegistry(store, index, faces.IndexConfig{
		IndexType: cfg.Index.IndexType,
		Method:    cfg.Index.Method,
		Dims:      cfg.Index.Dims,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if n, err := store.CountVectors(ctx); err == nil {
		fmt.Printf("Rehydrating index with %d vectors...\n", n)
	}
	if err := registry.Rehydrate(ctx); err != nil {
		fmt.Printf("Rehydration failed: %v\n", err)
		os.Exit(1)
	}

	var embedder embed.Embedder
	if cfg.Embedder.URL != "" {
		embedder = embed.NewHTTPEmbedder(cfg.Embedder.URL)
	} else {
		slog.Warn("no embedder configured, image endpoints disabled")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		slog.Info("event publishing enabled", "brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
	}
	defer publisher.Close()

	api := newAPI(registry, embedder, publisher)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: api.routes()}

	go func() {
		fmt.Printf("Listening on http://%s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
