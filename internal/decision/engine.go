// internal/decision/engine.go
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/gitscout/internal/convlog"
	"github.com/user/gitscout/internal/memory"
	"github.com/user/gitscout/internal/types"
	"github.com/user/gitscout/pkg/llm"
)

const (
	// FallbackContent is the canned reply used when the model never produces
	// a parseable decision.
	FallbackContent = "I encountered an issue processing your request. Let me try a different approach."
	// FallbackReason marks the deterministic fallback ActionSpec.
	FallbackReason = "fallback due to parse/response error"
)

// Engine asks the language model for the next action given the session's goal
// and interaction log, retrying on malformed output and falling back to a
// safe self_solve action after exhausting retries. Decide never fails past
// this boundary.
type Engine struct {
	provider      llm.Provider
	tokenizer     *tiktoken.Tiktoken
	maxAttempts   int
	retryDelay    time.Duration
	historyBudget int
}

// New creates a decision engine. model selects the tokenizer used to budget
// how much of the interaction log is replayed into each prompt; historyBudget
// is that budget in tokens.
func New(provider llm.Provider, model string, maxAttempts int, retryDelay time.Duration, historyBudget int) (*Engine, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Engine{
		provider:      provider,
		tokenizer:     enc,
		maxAttempts:   maxAttempts,
		retryDelay:    retryDelay,
		historyBudget: historyBudget,
	}, nil
}

// Decide produces the next ActionSpec for the session. The raw model reply is
// appended to the interaction log on success; a structured error entry is
// appended before the fallback is returned. The second return value reports
// whether the fallback was used.
func (e *Engine) Decide(ctx context.Context, mem *memory.ShortTerm, log *convlog.Logger) (*types.ActionSpec, bool) {
	messages := e.buildMessages(mem.Goal(), mem.Entries())
	promptStr := messages[0].Content + "\n\n" + messages[1].Content

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		resp, err := e.provider.Complete(ctx, messages)
		if err != nil {
			slog.Warn("decision request failed", "attempt", attempt, "error", err)
			if !e.pause(ctx) {
				break
			}
			continue
		}

		if log != nil {
			log.LogLLM(promptStr, resp.Content)
		}

		if resp.Content == "" {
			slog.Warn("empty decision response", "attempt", attempt)
			if !e.pause(ctx) {
				break
			}
			continue
		}

		cleaned := cleanResponse(resp.Content)
		if strings.TrimSpace(cleaned) == "" {
			slog.Warn("decision response empty after cleaning", "attempt", attempt)
			if !e.pause(ctx) {
				break
			}
			continue
		}

		var spec types.ActionSpec
		if err := json.Unmarshal([]byte(cleaned), &spec); err != nil {
			slog.Warn("decision response failed to parse", "attempt", attempt, "error", err)
			if !e.pause(ctx) {
				break
			}
			continue
		}

		mem.Append(resp.Content)
		return &spec, false
	}

	errEntry, _ := json.Marshal(map[string]string{
		"error": fmt.Sprintf("Failed to get valid action after %d attempts", e.maxAttempts),
	})
	mem.Append(string(errEntry))

	return &types.ActionSpec{
		Action:     types.ActionSelfSolve,
		Parameters: types.Params{"content": FallbackContent},
		Reason:     FallbackReason,
	}, true
}

// pause waits the retry delay, returning false if the context was cancelled.
func (e *Engine) pause(ctx context.Context) bool {
	if e.retryDelay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(e.retryDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

// buildMessages assembles the instruction plus a token-budgeted replay of the
// interaction log. The most recent entries that fit the budget are kept, in
// chronological order.
func (e *Engine) buildMessages(goal string, entries []string) []llm.Message {
	var kept []string
	used := 0
	for i := len(entries) - 1; i >= 0; i-- {
		n := len(e.tokenizer.Encode(entries[i], nil, nil))
		if used+n > e.historyBudget && len(kept) > 0 {
			break
		}
		kept = append(kept, entries[i])
		used += n
	}
	// Reverse back to insertion order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}

	var sb strings.Builder
	sb.WriteString("Conversation history:\n")
	for _, entry := range kept {
		sb.WriteString(entry)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nTask goal: %s", goal)

	return []llm.Message{
		{Role: "system", Content: actionInstruction},
		{Role: "user", Content: sb.String()},
	}
}

// cleanResponse strips a wrapping markdown code fence and an optional leading
// "json" language tag so the remainder can be parsed as JSON.
func cleanResponse(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimSpace(strings.Trim(text, "`"))
		if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
			text = strings.TrimSpace(text[4:])
		}
	}
	return text
}
