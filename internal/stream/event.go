// internal/stream/event.go
package stream

import "github.com/user/gitscout/internal/types"

// Event action types that do not correspond to a tool action.
const (
	TypeThinking   = "thinking"
	TypeCompletion = "completion"
	TypeError      = "error"
)

// Event is one unit of incremental output pushed to the client during a
// query's processing.
type Event struct {
	Content    string `json:"content"`
	ActionType string `json:"action_type"`

	Repositories  []types.Repository `json:"repositories,omitempty"`
	FileStructure any                `json:"fileStructure,omitempty"`
	RepoName      string             `json:"repoName,omitempty"`
	FilePath      string             `json:"filePath,omitempty"`
	FileContent   string             `json:"fileContent,omitempty"`
	ChartContent  string             `json:"chartContent,omitempty"`
}

// ErrorEvent builds the single terminal event used for rejected or failed
// requests.
func ErrorEvent(msg string) Event {
	return Event{
		Content:    "🚨 Error: " + msg,
		ActionType: TypeError,
	}
}
