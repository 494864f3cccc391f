package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-bar-race/internal/api"
	"go-bar-race/internal/config"
	"go-bar-race/internal/logging"
)

// @title Bar Race API
// @version 1.0
// @description Normalizes long-format period/entity/value tables and renders racing bar chart animations.
// @host localhost:8080
// @BasePath /api/v1
func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()
	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.Serve(ctx, cfg); err != nil {
		log.Fatalf("server: %v", err)
	}
}
