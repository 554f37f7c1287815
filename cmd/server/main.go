package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Brownie44l1/acne-api/internal/config"
	"github.com/Brownie44l1/acne-api/internal/fetch"
	"github.com/Brownie44l1/acne-api/internal/handlers"
	"github.com/Brownie44l1/acne-api/internal/logging"
	"github.com/Brownie44l1/acne-api/internal/model"
	"github.com/Brownie44l1/acne-api/internal/preprocess"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	metadata, err := model.LoadMetadata(cfg.Model.MetadataPath)
	if err != nil {
		return fmt.Errorf("failed to load model metadata: %w", err)
	}

	interp, err := preprocess.ParseInterpolation(cfg.Preprocess.Resample)
	if err != nil {
		return err
	}

	slog.Info("loading model", "path", cfg.Model.Path, "sessions", cfg.Model.Sessions)
	modelServer, err := model.NewServer(cfg.Model.Path, metadata, model.ServerOptions{
		LibraryPath: cfg.Model.LibraryPath,
		Sessions:    cfg.Model.Sessions,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize model server: %w", err)
	}
	classifier := model.NewClassifier(modelServer, metadata.Classes)
	defer func() {
		if err := classifier.Close(); err != nil {
			slog.Error("failed to release model", "error", err)
		}
	}()

	handler := handlers.NewHandler(
		fetch.New(fetch.WithTimeout(cfg.Fetch.Timeout), fetch.WithMaxBytes(cfg.Fetch.MaxBytes)),
		preprocess.New(metadata.ImageSize, metadata.Layout,
			preprocess.WithInterpolation(interp),
			preprocess.WithAutoOrient(cfg.Preprocess.AutoOrient)),
		classifier,
	)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler.Routes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"addr", cfg.Server.Addr,
			"classes", classifier.Labels(),
			"input_shape", metadata.InputShape)
		slog.Info("endpoints",
			"health", "GET /health",
			"classify", "POST /classify",
			"upload", "POST /classify/upload")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
