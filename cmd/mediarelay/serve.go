package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mediarelay"
	"github.com/sagarc03/mediarelay/config"
	"github.com/sagarc03/mediarelay/filesystem"
	relayhttp "github.com/sagarc03/mediarelay/http"
	"github.com/sagarc03/mediarelay/metrics"
	"github.com/sagarc03/mediarelay/recordapi"
	"github.com/sagarc03/mediarelay/s3store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the relay HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5000, "HTTP server port (env: MEDIARELAY_SERVER_PORT)")

	rootCmd.AddCommand(serveCmd)
}

// blobStore is a mediarelay.BlobStore with a release hook.
type blobStore struct {
	mediarelay.BlobStore
	close func() error
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (*blobStore, error) {
	switch cfg.Backend {
	case "s3":
		store, err := s3store.New(ctx, s3store.Config{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 store: %w", err)
		}
		slog.Info("using s3 blob store", "bucket", cfg.S3.Bucket, "region", cfg.S3.Region)
		return &blobStore{BlobStore: store, close: func() error { return nil }}, nil

	case "filesystem":
		if err := os.MkdirAll(cfg.Filesystem.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}

		root, err := os.OpenRoot(cfg.Filesystem.Path)
		if err != nil {
			return nil, fmt.Errorf("open storage root: %w", err)
		}
		slog.Info("using filesystem blob store", "path", cfg.Filesystem.Path)
		return &blobStore{BlobStore: filesystem.NewFileStorage(root), close: root.Close}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newServer wires the relay and returns the configured HTTP server.
func newServer(cfg *config.Config, blobs mediarelay.BlobStore) (*http.Server, error) {
	api, err := recordapi.New(&recordapi.Config{
		BaseURL: cfg.API.URL,
		Timeout: cfg.API.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create record api client: %w", err)
	}

	relay := mediarelay.NewRelay(api, blobs)

	handlerConfig := relayhttp.HandlerConfig{
		CORS:          cfg.CORS,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}
	if cfg.Metrics.Enabled {
		handlerConfig.Metrics = metrics.New()
		handlerConfig.MetricsPath = cfg.Metrics.Path
	}

	handler := relayhttp.NewHandler(&handlerConfig, relay)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = blobs.close() }()

	server, err := newServer(cfg, blobs)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", server.Addr, "api", cfg.API.URL, "backend", cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
