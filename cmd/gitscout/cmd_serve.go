package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/gitscout/internal/decision"
	"github.com/user/gitscout/internal/dedupe"
	"github.com/user/gitscout/internal/dispatch"
	"github.com/user/gitscout/internal/janitor"
	"github.com/user/gitscout/internal/server"
	"github.com/user/gitscout/internal/session"
	"github.com/user/gitscout/internal/stream"
	"github.com/user/gitscout/internal/tools"
	"github.com/user/gitscout/pkg/llm"
	"github.com/user/gitscout/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gitscout HTTP daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// LLM provider
	provider := openai.New(&llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	// Decision engine
	engine, err := decision.New(provider, cfg.LLM.Model, cfg.LLM.MaxAttempts, time.Duration(cfg.LLM.RetryDelay), cfg.LLM.HistoryBudget)
	if err != nil {
		return fmt.Errorf("create decision engine: %w", err)
	}

	// Tools
	github := tools.NewGitHub(cfg.GitHub.Token)
	cloner := tools.NewCloner(cfg.DataDir)
	dispatcher := dispatch.New(github, cloner, time.Duration(cfg.ToolTimeout))

	// Sessions
	manager := session.NewManager(filepath.Join(cfg.DataDir, "sessions"))

	// Dedup guard
	guard := dedupe.New(time.Duration(cfg.DedupeWindow))

	// Stream runner
	runner := stream.NewRunner(engine, dispatcher, cfg.MaxSteps, stream.DefaultPace, int64(cfg.MaxConcurrent))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	guard.Start(ctx)
	defer guard.Stop()

	// Janitor
	jan := janitor.New(manager, time.Duration(cfg.IdleTTL), "")
	if err := jan.Start(); err != nil {
		return fmt.Errorf("start janitor: %w", err)
	}
	defer jan.Stop()

	srv := server.NewServer(manager, guard, runner, dispatcher, tools.NewPageFetcher())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	slog.Info("gitscout started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"addr", cfg.Server.Addr,
		"max_concurrent", cfg.MaxConcurrent,
		"max_steps", cfg.MaxSteps,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
	)

	if err := srv.Listen(ctx, cfg.Server.Addr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
