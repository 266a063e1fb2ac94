package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"

	"github.com/user/gitscout/internal/types"
)

// Cloner performs shallow clones into the data directory.
type Cloner struct {
	dir string
}

// NewCloner creates a Cloner that places clones under dir/cloned_repos.
func NewCloner(dir string) *Cloner {
	return &Cloner{dir: dir}
}

// Clone shallow-clones the repository, replacing any previous clone of the
// same repository.
func (c *Cloner) Clone(ctx context.Context, cloneURL string) (*types.CloneResult, error) {
	repoName := strings.TrimSuffix(cloneURL[strings.LastIndex(cloneURL, "/")+1:], ".git")
	if repoName == "" {
		return nil, fmt.Errorf("cannot derive repository name from %q", cloneURL)
	}

	clonePath := filepath.Join(c.dir, "cloned_repos", repoName)
	if err := os.MkdirAll(filepath.Dir(clonePath), 0o755); err != nil {
		return nil, fmt.Errorf("create clone dir: %w", err)
	}
	if err := os.RemoveAll(clonePath); err != nil {
		return nil, fmt.Errorf("remove previous clone: %w", err)
	}

	_, err := git.PlainCloneContext(ctx, clonePath, false, &git.CloneOptions{
		URL:   cloneURL,
		Depth: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", cloneURL, err)
	}

	return &types.CloneResult{Path: clonePath, CloneURL: cloneURL}, nil
}
