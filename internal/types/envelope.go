// internal/types/envelope.go
package types

import "encoding/json"

// PreviewEntry is one root-level item shown in a search result preview.
type PreviewEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

// Repository is one search hit.
type Repository struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Stars           int            `json:"stars"`
	ContentsPreview []PreviewEntry `json:"contents_preview"`
	CloneURL        string         `json:"clone_url"`
	HTMLURL         string         `json:"html_url"`
	Language        string         `json:"language"`
	LastUpdated     string         `json:"last_updated,omitempty"`
	RepoType        string         `json:"repo_type"`
}

// TreeEntry is one element of a recursive repository tree.
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size,omitempty"`
	SHA  string `json:"sha"`
}

// DirEntry is one element of a directory listing.
type DirEntry struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Type    string `json:"type"`
	Size    int64  `json:"size"`
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url,omitempty"`
}

// Per-action result payloads. Exactly one of these is set on a successful
// Envelope; an error envelope carries none of them.

type SearchResult struct {
	Results []Repository `json:"results"`
}

type FileResult struct {
	Content  string `json:"content"`
	FilePath string `json:"file_path"`
	RepoName string `json:"repo_name"`
	Size     int64  `json:"size"`
	FileType string `json:"file_type"`
}

type CloneResult struct {
	Path     string `json:"path"`
	CloneURL string `json:"clone_url"`
}

type TreeResult struct {
	RepoName  string      `json:"repo_name"`
	Structure []TreeEntry `json:"structure"`
}

type DirResult struct {
	RepoName string     `json:"repo_name"`
	Path     string     `json:"path"`
	Contents []DirEntry `json:"contents"`
}

type ChartResult struct {
	RepoName string `json:"repo_name"`
	Diagram  string `json:"diagram"`
}

type SolveResult struct {
	Summary string `json:"summary"`
}

// Envelope is the normalized result of executing one action: either an error
// message or exactly one action-specific payload. Success envelopes never
// carry an error and vice versa.
type Envelope struct {
	Action Action
	Err    string

	Search *SearchResult
	File   *FileResult
	Clone  *CloneResult
	Tree   *TreeResult
	Dir    *DirResult
	Chart  *ChartResult
	Solve  *SolveResult
}

// ErrorEnvelope builds an error-shaped envelope.
func ErrorEnvelope(msg string) *Envelope {
	return &Envelope{Err: msg}
}

// IsError reports whether the envelope carries an error instead of a payload.
func (e *Envelope) IsError() bool {
	return e.Err != ""
}

// MarshalJSON emits the flat wire shape: {"error": ...} for failures,
// {"action": ..., <payload fields>} for successes.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	if e.Err != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{e.Err})
	}

	type tagged struct {
		Action Action `json:"action"`
	}
	tag := tagged{e.Action}

	switch {
	case e.Search != nil:
		return json.Marshal(struct {
			tagged
			*SearchResult
		}{tag, e.Search})
	case e.File != nil:
		return json.Marshal(struct {
			tagged
			*FileResult
		}{tag, e.File})
	case e.Clone != nil:
		return json.Marshal(struct {
			tagged
			*CloneResult
		}{tag, e.Clone})
	case e.Tree != nil:
		return json.Marshal(struct {
			tagged
			*TreeResult
		}{tag, e.Tree})
	case e.Dir != nil:
		return json.Marshal(struct {
			tagged
			*DirResult
		}{tag, e.Dir})
	case e.Chart != nil:
		return json.Marshal(struct {
			tagged
			*ChartResult
		}{tag, e.Chart})
	case e.Solve != nil:
		return json.Marshal(struct {
			tagged
			*SolveResult
		}{tag, e.Solve})
	}
	return json.Marshal(tag)
}
