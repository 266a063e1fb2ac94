// internal/stream/runner_test.go
package stream

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/user/gitscout/internal/convlog"
	"github.com/user/gitscout/internal/memory"
	"github.com/user/gitscout/internal/session"
	"github.com/user/gitscout/internal/types"
)

// scriptedDecider returns its specs in order, repeating the last one.
type scriptedDecider struct {
	specs []*types.ActionSpec
	calls int
}

func (d *scriptedDecider) Decide(ctx context.Context, mem *memory.ShortTerm, log *convlog.Logger) (*types.ActionSpec, bool) {
	i := d.calls
	d.calls++
	if i >= len(d.specs) {
		i = len(d.specs) - 1
	}
	return d.specs[i], false
}

// envelopeExecutor maps actions to canned envelopes.
type envelopeExecutor struct {
	envs map[types.Action]*types.Envelope
}

func (e *envelopeExecutor) Execute(ctx context.Context, spec *types.ActionSpec, mem *memory.ShortTerm, log *convlog.Logger) *types.Envelope {
	if env, ok := e.envs[spec.Action]; ok {
		return env
	}
	return types.ErrorEnvelope("no canned envelope")
}

func testSession(t *testing.T) *session.Session {
	t.Helper()
	return session.NewManager(t.TempDir()).GetOrCreate("test")
}

func collect(ch <-chan Event) []Event {
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestRunSearchThenReadThenComplete(t *testing.T) {
	decider := &scriptedDecider{specs: []*types.ActionSpec{
		{Action: types.ActionSearch, Parameters: types.Params{"query": "readme"}},
		{Action: types.ActionReadFile, Parameters: types.Params{"repo_name": "octocat/hello", "file_path": "README.md"}},
		{Action: types.ActionSelfSolve, Parameters: types.Params{"content": "Found README"}, Done: true, Summary: "Found README"},
	}}
	executor := &envelopeExecutor{envs: map[types.Action]*types.Envelope{
		types.ActionSearch: {
			Action: types.ActionSearch,
			Search: &types.SearchResult{Results: []types.Repository{{Name: "octocat/hello"}}},
		},
		types.ActionReadFile: {
			Action: types.ActionReadFile,
			File:   &types.FileResult{Content: "# Hello", FilePath: "README.md", RepoName: "octocat/hello"},
		},
		types.ActionSelfSolve: {
			Action: types.ActionSelfSolve,
			Solve:  &types.SolveResult{Summary: "Found README"},
		},
	}}
	r := NewRunner(decider, executor, 30, time.Millisecond, 0)
	sess := testSession(t)

	events := collect(r.Run(context.Background(), sess, "show me the readme"))

	// initial thinking + 3x (thinking + action) + completion
	if len(events) != 8 {
		t.Fatalf("expected 8 events, got %d: %+v", len(events), events)
	}
	if events[0].ActionType != TypeThinking || !strings.Contains(events[0].Content, "🎯 Understanding your request: show me the readme") {
		t.Errorf("unexpected first event: %+v", events[0])
	}

	searchEv := events[2]
	if searchEv.ActionType != "search" || len(searchEv.Repositories) != 1 {
		t.Errorf("search event missing repositories: %+v", searchEv)
	}

	fileEv := events[4]
	if fileEv.ActionType != "read_file" || fileEv.FileContent != "# Hello" || fileEv.FilePath != "README.md" {
		t.Errorf("read_file event missing payload: %+v", fileEv)
	}

	last := events[len(events)-1]
	if last.ActionType != TypeCompletion || !strings.Contains(last.Content, "✅ Task completed: Found README") {
		t.Errorf("unexpected completion event: %+v", last)
	}

	// Side effects on the session.
	files := sess.CurrentFiles()
	if len(files) != 1 || files[0] != "README.md" {
		t.Errorf("read_file should record current file: %v", files)
	}
	summaries := sess.LongTerm.All()
	if len(summaries) != 1 || summaries[0] != "Found README" {
		t.Errorf("completion should append to long-term memory: %v", summaries)
	}
	if !sess.Memory.Done() {
		t.Error("memory should be marked done")
	}
}

func TestRunCumulativeThinkingEvents(t *testing.T) {
	decider := &scriptedDecider{specs: []*types.ActionSpec{
		{Action: types.ActionSearch, Parameters: types.Params{"query": "x"}},
		{Action: types.ActionSelfSolve, Parameters: types.Params{"content": "done"}, Done: true, Summary: "done"},
	}}
	executor := &envelopeExecutor{envs: map[types.Action]*types.Envelope{
		types.ActionSearch:    {Action: types.ActionSearch, Search: &types.SearchResult{}},
		types.ActionSelfSolve: {Action: types.ActionSelfSolve, Solve: &types.SolveResult{Summary: "done"}},
	}}
	r := NewRunner(decider, executor, 30, time.Millisecond, 0)

	events := collect(r.Run(context.Background(), testSession(t), "query"))

	// The second agent-step event accumulates both steps.
	var agentEvents []Event
	for _, ev := range events[1:] {
		if ev.ActionType == TypeThinking {
			agentEvents = append(agentEvents, ev)
		}
	}
	if len(agentEvents) != 2 {
		t.Fatalf("expected 2 agent thinking events, got %d", len(agentEvents))
	}
	if !strings.Contains(agentEvents[0].Content, "🧠 Agent action: search") {
		t.Errorf("first agent event: %q", agentEvents[0].Content)
	}
	if !strings.Contains(agentEvents[1].Content, "🧠 Agent action: search") ||
		!strings.Contains(agentEvents[1].Content, "🧠 Agent action: self_solve") {
		t.Errorf("second agent event should accumulate both steps: %q", agentEvents[1].Content)
	}
}

func TestRunStepBudget(t *testing.T) {
	decider := &scriptedDecider{specs: []*types.ActionSpec{
		{Action: types.ActionSearch, Parameters: types.Params{"query": "x"}},
	}}
	executor := &envelopeExecutor{envs: map[types.Action]*types.Envelope{
		types.ActionSearch: {Action: types.ActionSearch, Search: &types.SearchResult{}},
	}}
	r := NewRunner(decider, executor, 3, time.Millisecond, 0)

	events := collect(r.Run(context.Background(), testSession(t), "loop forever"))

	last := events[len(events)-1]
	if last.ActionType != TypeError || !strings.Contains(last.Content, "aborted after 3 steps") {
		t.Errorf("expected budget error event, got %+v", last)
	}
	if decider.calls != 3 {
		t.Errorf("expected exactly 3 decide calls, got %d", decider.calls)
	}
}

func TestRunContextCancellation(t *testing.T) {
	decider := &scriptedDecider{specs: []*types.ActionSpec{
		{Action: types.ActionSearch, Parameters: types.Params{"query": "x"}},
	}}
	executor := &envelopeExecutor{envs: map[types.Action]*types.Envelope{
		types.ActionSearch: {Action: types.ActionSearch, Search: &types.SearchResult{}},
	}}
	r := NewRunner(decider, executor, 30, time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	ch := r.Run(ctx, testSession(t), "query")

	<-ch // consume the first event
	cancel()

	// The channel must close promptly after cancellation.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel did not close after cancellation")
		}
	}
}

func TestRunErrorEnvelopeCarriesNoPayload(t *testing.T) {
	decider := &scriptedDecider{specs: []*types.ActionSpec{
		{Action: types.ActionReadFile, Parameters: types.Params{"repo_name": "o/r", "file_path": "gone.txt"}},
		{Action: types.ActionSelfSolve, Parameters: types.Params{"content": "sorry"}, Done: true, Summary: "sorry"},
	}}
	executor := &envelopeExecutor{envs: map[types.Action]*types.Envelope{
		types.ActionReadFile:  types.ErrorEnvelope("GitHub API Error (404): File not found"),
		types.ActionSelfSolve: {Action: types.ActionSelfSolve, Solve: &types.SolveResult{Summary: "sorry"}},
	}}
	r := NewRunner(decider, executor, 30, time.Millisecond, 0)
	sess := testSession(t)

	events := collect(r.Run(context.Background(), sess, "read a missing file"))

	fileEv := events[2]
	if fileEv.ActionType != "read_file" {
		t.Fatalf("unexpected event: %+v", fileEv)
	}
	if !strings.Contains(fileEv.Content, "🚨 Error:") {
		t.Errorf("error envelope should render as error text: %q", fileEv.Content)
	}
	if fileEv.FileContent != "" || fileEv.FilePath != "" {
		t.Error("error event must not carry file payload fields")
	}
	if len(sess.CurrentFiles()) != 0 {
		t.Error("failed read must not update current files")
	}
}
