// internal/dispatch/dispatcher_test.go
package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/user/gitscout/internal/memory"
	"github.com/user/gitscout/internal/types"
)

type fakeAPI struct {
	searchErr error
	lastQuery string
	lastRepo  string
	lastPath  string
}

func (f *fakeAPI) SearchRepos(ctx context.Context, query string) (*types.SearchResult, error) {
	f.lastQuery = query
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &types.SearchResult{Results: []types.Repository{{Name: "octocat/hello", Stars: 42}}}, nil
}

func (f *fakeAPI) ReadFile(ctx context.Context, repoName, filePath string) (*types.FileResult, error) {
	f.lastRepo, f.lastPath = repoName, filePath
	return &types.FileResult{Content: "package main", FilePath: filePath, RepoName: repoName}, nil
}

func (f *fakeAPI) RepoTree(ctx context.Context, repoName string) (*types.TreeResult, error) {
	return &types.TreeResult{RepoName: repoName, Structure: []types.TreeEntry{{Path: "main.go", Type: "file"}}}, nil
}

func (f *fakeAPI) ListDirectory(ctx context.Context, repoName, path string) (*types.DirResult, error) {
	return &types.DirResult{RepoName: repoName, Path: path}, nil
}

func (f *fakeAPI) Chart(ctx context.Context, repoName string) (*types.ChartResult, error) {
	return &types.ChartResult{RepoName: repoName, Diagram: "flowchart TD"}, nil
}

type fakeCloner struct {
	err error
}

func (f *fakeCloner) Clone(ctx context.Context, cloneURL string) (*types.CloneResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.CloneResult{Path: "/tmp/cloned_repos/hello", CloneURL: cloneURL}, nil
}

func TestExecuteSearch(t *testing.T) {
	api := &fakeAPI{}
	d := New(api, &fakeCloner{}, 0)
	mem := memory.NewShortTerm()

	spec := &types.ActionSpec{Action: types.ActionSearch, Parameters: types.Params{"query": "hello"}}
	env := d.Execute(context.Background(), spec, mem, nil)

	if env.IsError() {
		t.Fatalf("unexpected error: %s", env.Err)
	}
	if api.lastQuery != "hello" {
		t.Errorf("query not forwarded: %q", api.lastQuery)
	}
	if len(env.Search.Results) != 1 {
		t.Errorf("unexpected results: %+v", env.Search)
	}
	// The serialized envelope is appended to memory.
	entries := mem.Entries()
	if len(entries) != 1 || !strings.Contains(entries[0], "octocat/hello") {
		t.Errorf("memory entry missing result: %v", entries)
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	d := New(&fakeAPI{}, &fakeCloner{}, 0)
	mem := memory.NewShortTerm()

	spec := &types.ActionSpec{Action: "launch_missiles"}
	env := d.Execute(context.Background(), spec, mem, nil)

	if !env.IsError() || env.Err != "Unknown action" {
		t.Errorf("expected unknown action error, got %+v", env)
	}
	// Errors are recorded in memory too.
	if mem.Len() != 1 {
		t.Errorf("expected error entry in memory, got %d entries", mem.Len())
	}
}

func TestExecuteMissingParam(t *testing.T) {
	d := New(&fakeAPI{}, &fakeCloner{}, 0)
	mem := memory.NewShortTerm()

	spec := &types.ActionSpec{Action: types.ActionReadFile, Parameters: types.Params{"repo_name": "o/r"}}
	env := d.Execute(context.Background(), spec, mem, nil)

	if !env.IsError() || env.Err != "Missing file_path" {
		t.Errorf("expected missing param error, got %+v", env)
	}
}

func TestExecuteCollaboratorError(t *testing.T) {
	api := &fakeAPI{searchErr: errors.New("GitHub API Error (403): rate limited")}
	d := New(api, &fakeCloner{}, 0)
	mem := memory.NewShortTerm()

	spec := &types.ActionSpec{Action: types.ActionSearch, Parameters: types.Params{"query": "x"}}
	env := d.Execute(context.Background(), spec, mem, nil)

	if !env.IsError() {
		t.Fatal("expected error envelope")
	}
	if !strings.Contains(env.Err, "rate limited") {
		t.Errorf("collaborator error not preserved: %q", env.Err)
	}
}

func TestExecuteSelfSolveNeedsNoCollaborator(t *testing.T) {
	d := New(nil, nil, 0)
	mem := memory.NewShortTerm()

	spec := &types.ActionSpec{
		Action:     types.ActionSelfSolve,
		Parameters: types.Params{"content": "the answer is 42"},
	}
	env := d.Execute(context.Background(), spec, mem, nil)

	if env.IsError() {
		t.Fatalf("unexpected error: %s", env.Err)
	}
	if env.Solve == nil || env.Solve.Summary != "the answer is 42" {
		t.Errorf("unexpected solve payload: %+v", env.Solve)
	}
}

func TestExecuteClone(t *testing.T) {
	d := New(&fakeAPI{}, &fakeCloner{}, 0)
	mem := memory.NewShortTerm()

	spec := &types.ActionSpec{Action: types.ActionClone, Parameters: types.Params{"clone_url": "https://github.com/octocat/hello.git"}}
	env := d.Execute(context.Background(), spec, mem, nil)

	if env.IsError() {
		t.Fatalf("unexpected error: %s", env.Err)
	}
	if env.Clone.CloneURL != "https://github.com/octocat/hello.git" {
		t.Errorf("unexpected clone payload: %+v", env.Clone)
	}
}
