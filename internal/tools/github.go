package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/user/gitscout/internal/types"
)

const (
	searchMaxResults  = 3
	previewMaxEntries = 5
)

// GitHub is the remote-API collaborator backing the search, read_file,
// repo_tree, list_directory, and chart actions.
type GitHub struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewGitHub creates a GitHub API client authenticated with the given token.
func NewGitHub(token string) *GitHub {
	return &GitHub{
		token:   token,
		baseURL: "https://api.github.com",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// get performs an authenticated GET and decodes the JSON body into out.
// Non-2xx responses become *APIError with the service's message.
func (g *GitHub) get(ctx context.Context, p string, query url.Values, out any) error {
	u := g.baseURL + p
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiMsg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiMsg)
		if apiMsg.Message == "" {
			apiMsg.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiMsg.Message}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// contentItem is the GitHub contents-API representation of a file or directory.
type contentItem struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
	SHA      string `json:"sha"`
	HTMLURL  string `json:"html_url"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// SearchRepos searches repositories sorted by stars and returns the top hits,
// each with a preview of up to five root-level entries.
func (g *GitHub) SearchRepos(ctx context.Context, query string) (*types.SearchResult, error) {
	var raw struct {
		Items []struct {
			FullName    string    `json:"full_name"`
			Description string    `json:"description"`
			Stars       int       `json:"stargazers_count"`
			CloneURL    string    `json:"clone_url"`
			HTMLURL     string    `json:"html_url"`
			Language    string    `json:"language"`
			UpdatedAt   time.Time `json:"updated_at"`
		} `json:"items"`
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("sort", "stars")
	q.Set("order", "desc")
	q.Set("per_page", fmt.Sprintf("%d", searchMaxResults))
	if err := g.get(ctx, "/search/repositories", q, &raw); err != nil {
		return nil, err
	}

	results := make([]types.Repository, 0, len(raw.Items))
	for _, item := range raw.Items {
		repo := types.Repository{
			Name:            item.FullName,
			Description:     item.Description,
			Stars:           item.Stars,
			ContentsPreview: []types.PreviewEntry{},
			CloneURL:        item.CloneURL,
			HTMLURL:         item.HTMLURL,
			Language:        item.Language,
			RepoType:        "repository",
		}
		if repo.Description == "" {
			repo.Description = "No description"
		}
		if repo.Language == "" {
			repo.Language = "Unknown"
		}
		if !item.UpdatedAt.IsZero() {
			repo.LastUpdated = item.UpdatedAt.Format(time.RFC3339)
		}

		// Preview failures leave the preview empty rather than failing the search.
		var contents []contentItem
		if err := g.get(ctx, "/repos/"+item.FullName+"/contents/", nil, &contents); err == nil {
			for i, c := range contents {
				if i == previewMaxEntries {
					break
				}
				repo.ContentsPreview = append(repo.ContentsPreview, types.PreviewEntry{
					Name: c.Name,
					Type: normalizeType(c.Type),
					Path: c.Path,
				})
			}
		}
		results = append(results, repo)
	}

	return &types.SearchResult{Results: results}, nil
}

// ReadFile fetches one file's decoded content. On a 404 it retries a handful
// of alternative paths (slash normalization, lowercase basename, src/ and
// lib/ prefixes) before giving up.
func (g *GitHub) ReadFile(ctx context.Context, repoName, filePath string) (*types.FileResult, error) {
	repoName, filePath = normalizeRepoPath(repoName, filePath)

	item, err := g.getFile(ctx, repoName, filePath)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		for _, alt := range alternativePaths(filePath) {
			if altItem, altErr := g.getFile(ctx, repoName, alt); altErr == nil {
				item = altItem
				filePath = alt
				break
			}
		}
		if item == nil {
			return nil, &APIError{Status: 404, Message: fmt.Sprintf("File not found: %s. Please check the file path.", filePath)}
		}
	}

	content, err := decodeContent(item)
	if err != nil {
		return nil, err
	}

	fileType := "unknown"
	if ext := path.Ext(filePath); ext != "" {
		fileType = strings.TrimPrefix(ext, ".")
	}

	return &types.FileResult{
		Content:  content,
		FilePath: filePath,
		RepoName: repoName,
		Size:     item.Size,
		FileType: fileType,
	}, nil
}

// getFile fetches the contents-API object for a single file path.
func (g *GitHub) getFile(ctx context.Context, repoName, filePath string) (*contentItem, error) {
	var raw json.RawMessage
	if err := g.get(ctx, "/repos/"+repoName+"/contents/"+escapePath(filePath), nil, &raw); err != nil {
		return nil, err
	}

	// A directory path returns an array instead of a single object.
	if len(raw) > 0 && raw[0] == '[' {
		return nil, fmt.Errorf("%s is a directory, not a file", filePath)
	}

	var item contentItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("parse file response: %w", err)
	}
	return &item, nil
}

// RepoTree fetches the complete recursive file structure.
func (g *GitHub) RepoTree(ctx context.Context, repoName string) (*types.TreeResult, error) {
	var raw struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
			Size int64  `json:"size"`
			SHA  string `json:"sha"`
		} `json:"tree"`
	}

	q := url.Values{}
	q.Set("recursive", "1")
	if err := g.get(ctx, "/repos/"+repoName+"/git/trees/main", q, &raw); err != nil {
		return nil, err
	}

	structure := make([]types.TreeEntry, 0, len(raw.Tree))
	for _, el := range raw.Tree {
		entryType := "file"
		if el.Type == "tree" {
			entryType = "dir"
		}
		structure = append(structure, types.TreeEntry{
			Path: el.Path,
			Type: entryType,
			Size: el.Size,
			SHA:  el.SHA,
		})
	}

	return &types.TreeResult{RepoName: repoName, Structure: structure}, nil
}

// ListDirectory lists the contents of one directory (the root when path is empty).
func (g *GitHub) ListDirectory(ctx context.Context, repoName, dirPath string) (*types.DirResult, error) {
	var raw json.RawMessage
	if err := g.get(ctx, "/repos/"+repoName+"/contents/"+escapePath(dirPath), nil, &raw); err != nil {
		return nil, err
	}

	var items []contentItem
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("parse directory response: %w", err)
		}
	} else {
		// A file path yields a single object; list it as a one-item directory.
		var item contentItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("parse directory response: %w", err)
		}
		items = []contentItem{item}
	}

	contents := make([]types.DirEntry, 0, len(items))
	for _, item := range items {
		contents = append(contents, types.DirEntry{
			Name:    item.Name,
			Path:    item.Path,
			Type:    normalizeType(item.Type),
			Size:    item.Size,
			SHA:     item.SHA,
			HTMLURL: item.HTMLURL,
		})
	}

	return &types.DirResult{RepoName: repoName, Path: dirPath, Contents: contents}, nil
}

// Chart builds a Mermaid flowchart of the repository structure from its tree.
func (g *GitHub) Chart(ctx context.Context, repoName string) (*types.ChartResult, error) {
	tree, err := g.RepoTree(ctx, repoName)
	if err != nil {
		return nil, err
	}
	return &types.ChartResult{
		RepoName: repoName,
		Diagram:  BuildFlowchart(repoName, tree.Structure),
	}, nil
}

// decodeContent decodes a contents-API payload, which is base64 with embedded
// newlines. Content that does not decode is reported as binary.
func decodeContent(item *contentItem) (string, error) {
	if item.Encoding != "base64" {
		return item.Content, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(item.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("unable to decode file content - this might be a binary file")
	}
	return string(data), nil
}

// normalizeRepoPath repairs a doubled owner/repo prefix such as
// "owner/repo/owner/repo" by folding the extra segments into the file path.
func normalizeRepoPath(repoName, filePath string) (string, string) {
	parts := strings.Split(repoName, "/")
	if len(parts) > 3 {
		return parts[0] + "/" + parts[1], strings.Join(parts[2:], "/") + "/" + filePath
	}
	return repoName, filePath
}

// alternativePaths generates fallback paths to try when the primary path 404s.
func alternativePaths(filePath string) []string {
	var alts []string

	withSlashes := strings.ReplaceAll(filePath, `\`, "/")
	if withSlashes != filePath {
		alts = append(alts, withSlashes)
	}
	if strings.HasPrefix(filePath, "/") || strings.HasPrefix(filePath, `\`) {
		alts = append(alts, filePath[1:])
	}
	if i := strings.LastIndex(filePath, "/"); i >= 0 {
		lowered := filePath[:i+1] + strings.ToLower(filePath[i+1:])
		if lowered != filePath {
			alts = append(alts, lowered)
		}
	}
	if !strings.HasPrefix(filePath, "src/") && !strings.HasPrefix(filePath, "lib/") {
		alts = append(alts, "src/"+filePath, "lib/"+filePath)
	}
	return alts
}

func normalizeType(t string) string {
	if t == "dir" {
		return "dir"
	}
	return "file"
}

// escapePath escapes each path segment while keeping the separators.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
