// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/user/gitscout/internal/convlog"
	"github.com/user/gitscout/internal/memory"
	"github.com/user/gitscout/internal/types"
)

// RepoAPI is the remote-repository collaborator behind the search, read_file,
// repo_tree, list_directory, and chart actions.
type RepoAPI interface {
	SearchRepos(ctx context.Context, query string) (*types.SearchResult, error)
	ReadFile(ctx context.Context, repoName, filePath string) (*types.FileResult, error)
	RepoTree(ctx context.Context, repoName string) (*types.TreeResult, error)
	ListDirectory(ctx context.Context, repoName, path string) (*types.DirResult, error)
	Chart(ctx context.Context, repoName string) (*types.ChartResult, error)
}

// Cloner is the collaborator behind the clone action.
type Cloner interface {
	Clone(ctx context.Context, cloneURL string) (*types.CloneResult, error)
}

// Dispatcher maps a decided action to a tool invocation and normalizes the
// outcome into an envelope. Collaborator failures never escape as errors;
// every invocation is appended to the interaction log and the conversation
// log.
type Dispatcher struct {
	api     RepoAPI
	cloner  Cloner
	timeout time.Duration
}

// New creates a Dispatcher. timeout bounds each collaborator call; zero
// disables the bound.
func New(api RepoAPI, cloner Cloner, timeout time.Duration) *Dispatcher {
	return &Dispatcher{api: api, cloner: cloner, timeout: timeout}
}

// Execute runs the action described by spec and returns its envelope. The
// serialized envelope is appended to mem and recorded in log (which may be
// nil) whether the call succeeded or failed.
func (d *Dispatcher) Execute(ctx context.Context, spec *types.ActionSpec, mem *memory.ShortTerm, log *convlog.Logger) *types.Envelope {
	env := d.run(ctx, spec)

	serialized, err := json.Marshal(env)
	if err != nil {
		slog.Error("marshal envelope failed", "action", spec.Action, "error", err)
		serialized = []byte(`{"error":"internal: unserializable result"}`)
	}
	mem.Append(string(serialized))
	if log != nil {
		log.LogTool(spec.Action, spec.Parameters, string(serialized))
	}

	if env.IsError() {
		slog.Warn("tool call failed", "action", spec.Action, "error", env.Err)
	}
	return env
}

func (d *Dispatcher) run(ctx context.Context, spec *types.ActionSpec) *types.Envelope {
	if !spec.Action.Known() {
		return types.ErrorEnvelope("Unknown action")
	}
	if field := spec.MissingParam(); field != "" {
		return types.ErrorEnvelope("Missing " + field)
	}

	// self_solve needs no collaborator: the model's content is the result.
	if spec.Action == types.ActionSelfSolve {
		return &types.Envelope{
			Action: types.ActionSelfSolve,
			Solve:  &types.SolveResult{Summary: spec.Param("content")},
		}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	env := &types.Envelope{Action: spec.Action}
	var err error

	switch spec.Action {
	case types.ActionSearch:
		env.Search, err = d.api.SearchRepos(ctx, spec.Param("query"))
	case types.ActionReadFile:
		env.File, err = d.api.ReadFile(ctx, spec.Param("repo_name"), spec.Param("file_path"))
	case types.ActionClone:
		env.Clone, err = d.cloner.Clone(ctx, spec.Param("clone_url"))
	case types.ActionRepoTree:
		env.Tree, err = d.api.RepoTree(ctx, spec.Param("repo_name"))
	case types.ActionListDirectory:
		env.Dir, err = d.api.ListDirectory(ctx, spec.Param("repo_name"), spec.Param("path"))
	case types.ActionChart:
		env.Chart, err = d.api.Chart(ctx, spec.Param("repo_name"))
	}

	if err != nil {
		return types.ErrorEnvelope(err.Error())
	}
	return env
}
