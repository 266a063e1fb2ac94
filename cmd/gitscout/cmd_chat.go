package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/gitscout/internal/decision"
	"github.com/user/gitscout/internal/dispatch"
	"github.com/user/gitscout/internal/session"
	"github.com/user/gitscout/internal/stream"
	"github.com/user/gitscout/internal/tools"
	"github.com/user/gitscout/internal/types"
	"github.com/user/gitscout/pkg/llm"
	"github.com/user/gitscout/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive terminal session",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	provider := openai.New(&llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	engine, err := decision.New(provider, cfg.LLM.Model, cfg.LLM.MaxAttempts, time.Duration(cfg.LLM.RetryDelay), cfg.LLM.HistoryBudget)
	if err != nil {
		return fmt.Errorf("create decision engine: %w", err)
	}

	github := tools.NewGitHub(cfg.GitHub.Token)
	cloner := tools.NewCloner(cfg.DataDir)
	dispatcher := dispatch.New(github, cloner, time.Duration(cfg.ToolTimeout))

	// A chat session is local-only; no concurrency cap, minimal pacing.
	runner := stream.NewRunner(engine, dispatcher, cfg.MaxSteps, time.Millisecond, 0)

	manager := session.NewManager(filepath.Join(cfg.DataDir, "sessions"))
	sess := manager.GetOrCreate(types.SessionID("local"))

	fmt.Println("gitscout chat. Type a question, or 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		for ev := range runner.Run(ctx, sess, query) {
			if ev.ActionType == stream.TypeThinking {
				continue
			}
			fmt.Println(strings.TrimSpace(ev.Content))
		}
		cancel()
	}
	return scanner.Err()
}
