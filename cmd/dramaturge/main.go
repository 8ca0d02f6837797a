// Dramaturge server: exposes the narrative engine over HTTP, keeps worlds
// in memory, and persists reusable story seeds.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dramaturge/dramaturge/pkg/api"
	"github.com/dramaturge/dramaturge/pkg/cleanup"
	"github.com/dramaturge/dramaturge/pkg/config"
	"github.com/dramaturge/dramaturge/pkg/dice"
	"github.com/dramaturge/dramaturge/pkg/engine"
	"github.com/dramaturge/dramaturge/pkg/llm"
	"github.com/dramaturge/dramaturge/pkg/prompt"
	"github.com/dramaturge/dramaturge/pkg/seedstore"
	"github.com/dramaturge/dramaturge/pkg/trope"
	"github.com/dramaturge/dramaturge/pkg/version"
	"github.com/dramaturge/dramaturge/pkg/world"
)

func main() {
	envPath := flag.String("env", ".env", "Path to the .env file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", *envPath, "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting dramaturge",
		"version", version.Full(),
		"addr", cfg.Addr(),
		"strong", cfg.Strong.Model,
		"fast", cfg.Fast.Model)

	// 1. Trope corpus
	corpus, err := trope.Load(cfg.TropesDir)
	if err != nil {
		slog.Error("Failed to load trope corpus", "dir", cfg.TropesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Trope corpus loaded", "tropes", corpus.Size())

	// 2. LLM tiers
	strong, err := llm.New(cfg.Strong.Provider, cfg.Strong.Model)
	if err != nil {
		slog.Error("Failed to initialize strong LLM tier", "error", err)
		os.Exit(1)
	}
	fast, err := llm.New(cfg.Fast.Provider, cfg.Fast.Model)
	if err != nil {
		slog.Error("Failed to initialize fast LLM tier", "error", err)
		os.Exit(1)
	}

	// 3. Engine
	prompts := prompt.NewRegistry(cfg.PromptsDir)
	eng := engine.New(world.NewStore(), strong, fast, prompts, corpus, dice.NewRoller())
	eng.SetDefaultTropePoolSize(cfg.TropePoolSize)

	// 4. Seed store
	seeds, err := seedstore.Open(cfg.SeedDBPath)
	if err != nil {
		slog.Error("Failed to open seed store", "path", cfg.SeedDBPath, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := seeds.Close(); err != nil {
			slog.Error("Error closing seed store", "error", err)
		}
	}()

	// 5. Embodiment session janitor
	ctx := context.Background()
	janitor := cleanup.NewService(eng.Characters(), cfg.SessionMaxIdle, cfg.CleanupInterval)
	janitor.Start(ctx)
	defer janitor.Stop()

	// 6. HTTP server
	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: api.NewServer(eng, seeds).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
