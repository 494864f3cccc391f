package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "go-bar-race/docs"
	"go-bar-race/internal/api/handler"
	"go-bar-race/internal/config"
	"go-bar-race/internal/pipeline"
	"go-bar-race/internal/render"
	"go-bar-race/internal/store"
	"go-bar-race/pkg/router"
	"go-bar-race/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

// NewServer wires the run handler and routes for cfg. The store must
// already be open.
func NewServer(cfg config.Config) (*http.Server, *handler.RunHandler) {
	deps := pipeline.Deps{
		Defaults:     cfg.Render,
		JobTimeout:   cfg.Server.JobTimeout,
		Capabilities: render.DetectCapabilities(),
	}
	h := handler.NewRunHandler(deps, utils.NewOutputManager(cfg.Store.OutputDir))

	r := router.New()
	RegisterRoutes(r, h)
	return r.Server(cfg.Server.Addr), h
}

// Serve opens the store, listens on cfg.Server.Addr and shuts down
// gracefully when ctx is cancelled. Active runs are cancelled on shutdown.
func Serve(ctx context.Context, cfg config.Config) error {
	if err := store.InitDB(cfg.Store.DBPath); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	srv, h := NewServer(cfg)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Server.Addr, "db", cfg.Store.DBPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		h.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	h.Shutdown()
	return err
}
