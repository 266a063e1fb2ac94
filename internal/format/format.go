// internal/format/format.go
package format

import (
	"fmt"
	"strings"

	"github.com/user/gitscout/internal/types"
)

const (
	filePreviewChars = 500
	dirDisplayMax    = 15
)

// Render turns a tool result envelope into display text. An error envelope
// short-circuits to a single error line regardless of action kind; an
// envelope with no payload renders an explicit invalid-format message.
func Render(env *types.Envelope) string {
	if env == nil {
		return "Invalid response format"
	}
	if env.IsError() {
		return fmt.Sprintf("🚨 Error: %s", env.Err)
	}

	switch {
	case env.Search != nil:
		return renderSearch(env.Search)
	case env.File != nil:
		return renderFile(env.File)
	case env.Clone != nil:
		return renderClone(env.Clone)
	case env.Tree != nil:
		return renderTree(env.Tree)
	case env.Dir != nil:
		return renderDir(env.Dir)
	case env.Chart != nil:
		return fmt.Sprintf("📊 Mermaid Flowchart:\n\n%s", env.Chart.Diagram)
	case env.Solve != nil:
		if env.Solve.Summary == "" {
			return "No summary provided"
		}
		return env.Solve.Summary
	}
	return "Invalid response format"
}

func renderSearch(res *types.SearchResult) string {
	lines := []string{"🔍 Search Results:"}
	for i, repo := range res.Results {
		items := make([]string, 0, len(repo.ContentsPreview))
		for _, item := range repo.ContentsPreview {
			items = append(items, fmt.Sprintf("%s (%s)", item.Name, typeIcon(item.Type)))
		}
		lines = append(lines, fmt.Sprintf(
			"%d. %s (%d ⭐)\n   %s\n   Contents: %s",
			i+1, repo.Name, repo.Stars, repo.Description, strings.Join(items, ", "),
		))
	}
	return strings.Join(lines, "\n")
}

func renderFile(res *types.FileResult) string {
	preview := res.Content
	suffix := ""
	if len(preview) > filePreviewChars {
		preview = preview[:filePreviewChars]
		suffix = "..."
	}
	return fmt.Sprintf(
		"📄 File: %s\n🔗 Repo: %s\n\n%s%s",
		res.FilePath, res.RepoName, preview, suffix,
	)
}

func renderClone(res *types.CloneResult) string {
	return fmt.Sprintf(
		"📦 Repository cloned\n🔗 URL: %s\n📁 Path: %s",
		res.CloneURL, res.Path,
	)
}

func renderTree(res *types.TreeResult) string {
	lines := make([]string, 0, len(res.Structure))
	for _, item := range res.Structure {
		lines = append(lines, fmt.Sprintf("%s %s", typeIcon(item.Type), item.Path))
	}
	return fmt.Sprintf(
		"🌳 Repository Structure: %s\nTotal items: %d\n\n%s",
		res.RepoName, len(res.Structure), strings.Join(lines, "\n"),
	)
}

func renderDir(res *types.DirResult) string {
	lines := make([]string, 0, len(res.Contents))
	for _, item := range res.Contents {
		lines = append(lines, fmt.Sprintf("%s %s (%d bytes)", typeIcon(item.Type), item.Name, item.Size))
	}
	more := ""
	if len(lines) > dirDisplayMax {
		lines = lines[:dirDisplayMax]
		more = "\n... (more items)"
	}
	path := res.Path
	if path == "" {
		path = "root"
	}
	return fmt.Sprintf(
		"📂 Directory: %s\n🔗 Repo: %s\n\n%s%s",
		path, res.RepoName, strings.Join(lines, "\n"), more,
	)
}

func typeIcon(t string) string {
	if t == "dir" {
		return "📁"
	}
	return "📄"
}
