package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/user/gitscout/internal/types"
)

const chartMaxFilesPerGroup = 15

// mermaidHeader configures the diagram theme and layout.
const mermaidHeader = `%%{init: {
  'theme': 'base',
  'themeVariables': {
    'primaryColor': '#fff',
    'primaryBorderColor': '#000',
    'lineColor': '#000'
  },
  'flowchart': {
    'useMaxWidth': false,
    'htmlLabels': true,
    'nodeSpacing': 50,
    'rankSpacing': 100
  }
}}%%`

// BuildFlowchart renders a Mermaid flowchart of the repository's structure
// from its recursive tree, without downloading the repository: one subgraph
// per top-level directory with its files, root-level files attached to the
// repository node directly.
func BuildFlowchart(repoName string, structure []types.TreeEntry) string {
	rootFiles := []string{}
	groups := map[string][]string{}

	for _, entry := range structure {
		if entry.Type != "file" {
			continue
		}
		if i := strings.Index(entry.Path, "/"); i >= 0 {
			top := entry.Path[:i]
			if len(groups[top]) < chartMaxFilesPerGroup {
				groups[top] = append(groups[top], entry.Path)
			}
		} else {
			rootFiles = append(rootFiles, entry.Path)
		}
	}

	groupNames := make([]string, 0, len(groups))
	for name := range groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	var sb strings.Builder
	sb.WriteString(mermaidHeader)
	sb.WriteString("\nflowchart TD\n")
	fmt.Fprintf(&sb, "    root[/\"📦 %s\"/]\n", repoName)

	for _, file := range rootFiles {
		id := nodeID(file)
		fmt.Fprintf(&sb, "    %s[\"📄 %s\"]\n", id, file)
		fmt.Fprintf(&sb, "    root --> %s\n", id)
	}

	for _, name := range groupNames {
		fmt.Fprintf(&sb, "    subgraph %s\n", nodeID(name))
		for _, file := range groups[name] {
			fmt.Fprintf(&sb, "        %s[\"📄 %s\"]\n", nodeID(file), file)
		}
		sb.WriteString("    end\n")
		fmt.Fprintf(&sb, "    root --> %s\n", nodeID(name))
	}

	return sb.String()
}

// nodeID sanitizes a path into a Mermaid-safe node identifier.
func nodeID(p string) string {
	var sb strings.Builder
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
