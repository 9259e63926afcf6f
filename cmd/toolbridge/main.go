package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/toolbridge/toolbridge/internal/config"
	"github.com/toolbridge/toolbridge/internal/provider"
	"github.com/toolbridge/toolbridge/internal/server"
	"github.com/toolbridge/toolbridge/internal/web"
)

func main() {
	// Load .env before anything reads the environment.
	config.LoadEnv()
	cfg := config.FromEnv()

	log.Printf("[Main] toolbridge %s starting", server.Version)

	providers, err := provider.NewRegistry(cfg)
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}

	handler := server.NewHandler(cfg, providers)
	defer handler.Store().Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler.StartCacheMaintenance(ctx, 5*time.Minute)

	log.Printf("[Main] Tools: %d registered (optimized surface: %v)", len(handler.Tools().List()), cfg.TokenOptimized)
	log.Printf("[Main] Default model: %s", cfg.DefaultModel)

	// The health shell is optional: it only runs when a port is
	// explicitly configured, keeping pure-stdio deployments silent.
	if os.Getenv("MCP_PORT") != "" {
		go func() {
			shell := web.NewServer(cfg, web.HealthInfo{
				Version:       server.Version,
				ProviderCount: len(providers.Providers()),
				ToolCount:     len(handler.Tools().List()),
				ThreadCount:   handler.Store().Count,
			})
			if err := shell.Start(); err != nil {
				log.Printf("[Main] Health shell error: %v", err)
			}
		}()
	}

	// MCP over stdio is the primary transport; this blocks until the
	// client disconnects.
	if err := handler.ServeStdio(); err != nil {
		log.Fatalf("[Main] Server error: %v", err)
	}
}
