// internal/types/action.go
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Action names one of the operations the decision engine may choose.
type Action string

const (
	ActionSearch        Action = "search"
	ActionReadFile      Action = "read_file"
	ActionClone         Action = "clone"
	ActionRepoTree      Action = "repo_tree"
	ActionListDirectory Action = "list_directory"
	ActionChart         Action = "chart"
	ActionSelfSolve     Action = "self_solve"
)

// requiredParams lists, per action, the parameters the dispatcher refuses to
// run without. list_directory's path is optional and defaults to the root.
var requiredParams = map[Action][]string{
	ActionSearch:        {"query"},
	ActionReadFile:      {"repo_name", "file_path"},
	ActionClone:         {"clone_url"},
	ActionRepoTree:      {"repo_name"},
	ActionListDirectory: {"repo_name"},
	ActionChart:         {"repo_name"},
	ActionSelfSolve:     {"content"},
}

// Known reports whether the action is one of the legal action names.
func (a Action) Known() bool {
	_, ok := requiredParams[a]
	return ok
}

// Params holds an ActionSpec's action-specific parameters. Models sometimes
// emit numbers or booleans where strings are expected, so unmarshalling
// coerces scalar values to strings instead of failing.
type Params map[string]string

func (p *Params) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Params, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		case nil:
			out[k] = ""
		default:
			b, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("parameter %q: %w", k, err)
			}
			out[k] = string(b)
		}
	}
	*p = out
	return nil
}

// FlexBool tolerates the model emitting done as a bool or as the strings
// "True"/"False" (the shape the instruction asks for).
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = FlexBool(t)
	case string:
		*b = FlexBool(strings.EqualFold(t, "true"))
	case nil:
		*b = false
	default:
		return fmt.Errorf("cannot parse %T as done flag", v)
	}
	return nil
}

func (b FlexBool) MarshalJSON() ([]byte, error) {
	if b {
		return []byte(`"True"`), nil
	}
	return []byte(`"False"`), nil
}

// ActionSpec is the structured decision the engine produces each loop
// iteration. It is only ever constructed by parsing model output, except for
// the deterministic fallback.
type ActionSpec struct {
	Action     Action   `json:"action"`
	Parameters Params   `json:"parameters"`
	Reason     string   `json:"reason"`
	Done       FlexBool `json:"done"`
	Summary    string   `json:"summary,omitempty"`
}

// Param returns the named parameter, or "" when absent.
func (s *ActionSpec) Param(name string) string {
	if s.Parameters == nil {
		return ""
	}
	return s.Parameters[name]
}

// MissingParam returns the name of the first required parameter that is
// absent or empty, or "" when the spec is complete.
func (s *ActionSpec) MissingParam() string {
	for _, name := range requiredParams[s.Action] {
		if s.Param(name) == "" {
			return name
		}
	}
	return ""
}
