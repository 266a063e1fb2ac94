// internal/stream/runner.go
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/gitscout/internal/convlog"
	"github.com/user/gitscout/internal/format"
	"github.com/user/gitscout/internal/memory"
	"github.com/user/gitscout/internal/session"
	"github.com/user/gitscout/internal/types"
)

// DefaultMaxSteps bounds the decide/execute iterations of a single query.
const DefaultMaxSteps = 30

// DefaultPace is the pause after each emitted event, giving clients a steady
// cadence instead of a burst.
const DefaultPace = 100 * time.Millisecond

// Decider proposes the next action for the current goal and history.
type Decider interface {
	Decide(ctx context.Context, mem *memory.ShortTerm, log *convlog.Logger) (*types.ActionSpec, bool)
}

// Executor runs a decided action and returns its normalized envelope.
type Executor interface {
	Execute(ctx context.Context, spec *types.ActionSpec, mem *memory.ShortTerm, log *convlog.Logger) *types.Envelope
}

// Runner drives one query through the decide, execute, format cycle and
// emits incremental events on a channel the caller consumes. A weighted
// semaphore caps how many queries run at once across all sessions.
type Runner struct {
	decider  Decider
	executor Executor
	maxSteps int
	pace     time.Duration
	sem      *semaphore.Weighted
}

// NewRunner creates a Runner. maxSteps and pace fall back to their defaults
// when non-positive; maxConcurrent <= 0 leaves the runner uncapped.
func NewRunner(decider Decider, executor Executor, maxSteps int, pace time.Duration, maxConcurrent int64) *Runner {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if pace <= 0 {
		pace = DefaultPace
	}
	r := &Runner{
		decider:  decider,
		executor: executor,
		maxSteps: maxSteps,
		pace:     pace,
	}
	if maxConcurrent > 0 {
		r.sem = semaphore.NewWeighted(maxConcurrent)
	}
	return r
}

// Run starts processing query for sess and returns the event channel. The
// channel is closed by the producer when the query completes, fails, or ctx
// is cancelled. Events are never dropped mid-query: a slow consumer slows
// the producer.
func (r *Runner) Run(ctx context.Context, sess *session.Session, query string) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("stream runner panic", "session", sess.ID, "panic", rec)
				r.emit(ctx, ch, ErrorEvent(fmt.Sprintf("Internal server error: %v", rec)))
			}
		}()
		r.process(ctx, sess, query, ch)
	}()
	return ch
}

func (r *Runner) process(ctx context.Context, sess *session.Session, query string, ch chan<- Event) {
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer r.sem.Release(1)
	}

	sess.Touch()
	sess.Memory.SetGoal(query)
	if sess.Log != nil {
		sess.Log.StartConversation(query)
	}
	slog.Info("query started", "session", sess.ID, "query", query)

	if !r.emit(ctx, ch, Event{
		Content:    fmt.Sprintf("🎯 Understanding your request: %s\n\n", query),
		ActionType: TypeThinking,
	}) {
		return
	}

	var agentSteps []string
	for step := 0; ; step++ {
		if step >= r.maxSteps {
			slog.Warn("step budget exhausted", "session", sess.ID, "steps", step)
			r.emit(ctx, ch, ErrorEvent(fmt.Sprintf("Task aborted after %d steps without completion", r.maxSteps)))
			return
		}
		if ctx.Err() != nil {
			return
		}

		spec, fallback := r.decider.Decide(ctx, sess.Memory, sess.Log)
		if fallback {
			slog.Warn("decision fell back", "session", sess.ID, "step", step)
		}

		agentSteps = append(agentSteps, fmt.Sprintf("🧠 Agent action: %s", spec.Action))
		if !r.emit(ctx, ch, Event{
			Content:    strings.Join(agentSteps, "\n") + "\n\n",
			ActionType: TypeThinking,
		}) {
			return
		}

		env := r.executor.Execute(ctx, spec, sess.Memory, sess.Log)
		ev := Event{
			Content:    format.Render(env) + "\n\n",
			ActionType: eventType(spec),
		}
		attachPayload(sess, env, &ev)
		if !r.emit(ctx, ch, ev) {
			return
		}

		if spec.Done {
			r.complete(ctx, sess, spec, ch)
			return
		}
	}
}

func (r *Runner) complete(ctx context.Context, sess *session.Session, spec *types.ActionSpec, ch chan<- Event) {
	sess.Memory.MarkDone()
	summary := spec.Summary
	if summary == "" {
		summary = "Task completed"
	}
	sess.LongTerm.Append(summary)
	if sess.Log != nil {
		sess.Log.LogCompletion(summary)
	}
	slog.Info("query completed", "session", sess.ID, "summary", summary)

	r.emit(ctx, ch, Event{
		Content:    fmt.Sprintf("\n\n✅ Task completed: %s", summary),
		ActionType: TypeCompletion,
	})
}

// emit delivers one event and then pauses for the pacing interval. Returns
// false when the context was cancelled before delivery.
func (r *Runner) emit(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
	case <-ctx.Done():
		return false
	}
	select {
	case <-time.After(r.pace):
		return true
	case <-ctx.Done():
		return false
	}
}

func eventType(spec *types.ActionSpec) string {
	if spec.Action == "" {
		return string(types.ActionSelfSolve)
	}
	return string(spec.Action)
}

// attachPayload copies action-specific fields onto the event and updates the
// session context so later decisions know what the user is looking at.
func attachPayload(sess *session.Session, env *types.Envelope, ev *Event) {
	if env == nil || env.IsError() {
		return
	}
	switch {
	case env.Search != nil:
		ev.Repositories = env.Search.Results
	case env.File != nil:
		ev.RepoName = env.File.RepoName
		ev.FilePath = env.File.FilePath
		ev.FileContent = env.File.Content
		sess.AddCurrentFile(env.File.FilePath)
	case env.Tree != nil:
		ev.RepoName = env.Tree.RepoName
		ev.FileStructure = env.Tree.Structure
		sess.UpdateContext(map[string]any{session.KeyCurrentRepo: env.Tree.RepoName})
	case env.Dir != nil:
		ev.RepoName = env.Dir.RepoName
		ev.FileStructure = env.Dir.Contents
		sess.UpdateContext(map[string]any{session.KeyCurrentRepo: env.Dir.RepoName})
	case env.Chart != nil:
		ev.RepoName = env.Chart.RepoName
		ev.ChartContent = env.Chart.Diagram
	}
}
