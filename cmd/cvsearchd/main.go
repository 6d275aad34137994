// Cvsearchd is a semantic search daemon for CV and resume collections.
//
// It chunks uploaded documents, embeds them, and serves relevance-ranked
// search over HTTP.
//
// Configuration is loaded from ~/.config/cvsearchd/config.yaml and
// CVSEARCHD_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	cvsearchd
//
//	# Configure via environment
//	CVSEARCHD_SERVER_PORT=9180 CVSEARCHD_STORE_PROVIDER=chromem cvsearchd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cvsearchd/internal/config"
	"github.com/fyrsmithlabs/cvsearchd/internal/docstore"
	"github.com/fyrsmithlabs/cvsearchd/internal/embeddings"
	httpserver "github.com/fyrsmithlabs/cvsearchd/internal/http"
	"github.com/fyrsmithlabs/cvsearchd/internal/logging"
	"github.com/fyrsmithlabs/cvsearchd/internal/pipeline"
	"github.com/fyrsmithlabs/cvsearchd/internal/reranker"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/cvsearchd/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  cvsearchd           Start the cvsearchd daemon\n")
			fmt.Fprintf(os.Stderr, "  cvsearchd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("cvsearchd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the cvsearchd server and blocks until the context is
// cancelled. It wires configuration, logging, the document store, the
// embedding provider, the reranker and the retrieval pipeline, then serves
// HTTP until shutdown.
func run(ctx context.Context, configPath string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info(ctx, "starting cvsearchd",
		zap.String("version", version),
		zap.String("commit", gitCommit),
		zap.String("store", cfg.Store.Provider),
		zap.String("embeddings", cfg.Embeddings.Provider),
		zap.String("reranker", cfg.Reranker.Provider),
	)

	store, err := docstore.New(cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("initializing document store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn(ctx, "closing document store", zap.Error(err))
		}
	}()

	embedder, err := embeddings.NewProvider(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("initializing embedding provider: %w", err)
	}
	defer func() {
		if err := embedder.Close(); err != nil {
			logger.Warn(ctx, "closing embedding provider", zap.Error(err))
		}
	}()

	rr, err := reranker.New(cfg.Reranker, embedder, logger)
	if err != nil {
		return fmt.Errorf("initializing reranker: %w", err)
	}
	defer func() {
		if err := rr.Close(); err != nil {
			logger.Warn(ctx, "closing reranker", zap.Error(err))
		}
	}()

	p, err := pipeline.New(cfg.Search, store, embedder, rr, logger)
	if err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}

	server, err := httpserver.NewServer(p, logger, &httpserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("initializing http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
