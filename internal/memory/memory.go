// internal/memory/memory.go
package memory

import "sync"

// ShortTerm holds a session's working state: the current goal, the ordered
// interaction log, and the completion flag for the active query.
//
// The log is append-only. Entries are opaque serialized strings (raw action
// proposals and raw tool-result envelopes); insertion order is meaningful
// because the log is replayed verbatim into subsequent decision calls.
// History persists across queries within the same session.
type ShortTerm struct {
	mu      sync.Mutex
	goal    string
	entries []string
	done    bool
}

// NewShortTerm creates an empty short-term memory.
func NewShortTerm() *ShortTerm {
	return &ShortTerm{}
}

// SetGoal overwrites the goal and clears the done flag for a new query.
// The interaction log is left intact.
func (m *ShortTerm) SetGoal(goal string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goal = goal
	m.done = false
}

// Goal returns the current goal text.
func (m *ShortTerm) Goal() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.goal
}

// Append adds one opaque entry to the interaction log.
func (m *ShortTerm) Append(entry string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

// Entries returns a copy of the interaction log in insertion order.
func (m *ShortTerm) Entries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the interaction log length.
func (m *ShortTerm) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// MarkDone sets the completion flag for the active query.
func (m *ShortTerm) MarkDone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = true
}

// Done reports whether the active query has completed.
func (m *ShortTerm) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// LongTerm is the append-only list of completion summaries accumulated over
// a session's lifetime.
type LongTerm struct {
	mu        sync.Mutex
	summaries []string
}

// NewLongTerm creates an empty long-term memory.
func NewLongTerm() *LongTerm {
	return &LongTerm{}
}

// Append records one completion summary.
func (m *LongTerm) Append(summary string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, summary)
}

// All returns a copy of the recorded summaries.
func (m *LongTerm) All() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.summaries))
	copy(out, m.summaries)
	return out
}
