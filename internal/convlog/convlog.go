// internal/convlog/convlog.go
package convlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/gitscout/internal/types"
)

// Interaction is one recorded exchange with the LLM or a tool.
type Interaction struct {
	Timestamp time.Time    `json:"timestamp"`
	Type      string       `json:"type"` // "llm" or "tool"
	Prompt    string       `json:"prompt,omitempty"`
	Response  string       `json:"response,omitempty"`
	Action    types.Action `json:"action,omitempty"`
	Params    types.Params `json:"parameters,omitempty"`
}

// Conversation is the record of a single query: the query text, a timeline of
// LLM and tool interactions, and eventually a completion summary.
type Conversation struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	UserQuery    string        `json:"user_query"`
	Interactions []Interaction `json:"interactions"`
	Summary      string        `json:"summary,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// Logger is an append-only conversation log for one session, persisted as a
// single JSON document and rewritten atomically after every mutation. It is
// an audit trail, not control flow: persistence failures are logged and
// swallowed.
type Logger struct {
	mu            sync.Mutex
	path          string
	conversations []*Conversation
	current       *Conversation
}

// New creates a Logger writing to conversations.json under dir. The directory
// is created on first flush.
func New(dir string) *Logger {
	return &Logger{path: filepath.Join(dir, "conversations.json")}
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.path
}

// StartConversation opens a new conversation record for a user query.
func (l *Logger) StartConversation(query string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.current = &Conversation{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		UserQuery:    query,
		Interactions: []Interaction{},
	}
	l.conversations = append(l.conversations, l.current)
	l.flush()
}

// LogLLM records one exchange with the language model.
func (l *Logger) LogLLM(prompt, response string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return
	}
	l.current.Interactions = append(l.current.Interactions, Interaction{
		Timestamp: time.Now(),
		Type:      "llm",
		Prompt:    prompt,
		Response:  response,
	})
	l.flush()
}

// LogTool records one tool invocation, success or failure.
func (l *Logger) LogTool(action types.Action, params types.Params, response string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return
	}
	l.current.Interactions = append(l.current.Interactions, Interaction{
		Timestamp: time.Now(),
		Type:      "tool",
		Action:    action,
		Params:    params,
		Response:  response,
	})
	l.flush()
}

// LogCompletion closes the current conversation with its summary.
func (l *Logger) LogCompletion(summary string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return
	}
	now := time.Now()
	l.current.Summary = summary
	l.current.CompletedAt = &now
	l.flush()
}

// Conversations returns a snapshot of all recorded conversations.
func (l *Logger) Conversations() []*Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Conversation, len(l.conversations))
	copy(out, l.conversations)
	return out
}

// flush rewrites the log file atomically. Caller must hold l.mu.
func (l *Logger) flush() {
	if err := l.write(); err != nil {
		slog.Error("conversation log flush failed", "path", l.path, "error", err)
	}
}

func (l *Logger) write() error {
	data, err := json.MarshalIndent(l.conversations, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conversations: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	// Atomic write: write to temp file then rename
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp log: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp log: %w", err)
	}
	return nil
}
