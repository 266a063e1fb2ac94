// internal/session/session.go
package session

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/user/gitscout/internal/convlog"
	"github.com/user/gitscout/internal/memory"
	"github.com/user/gitscout/internal/types"
)

// Context keys recognized by UpdateContext.
const (
	KeyCurrentRepo  = "current_repo"
	KeyCurrentFiles = "current_files"
)

// Session is one isolated conversation: its memory, its context map, and its
// conversation log. Context keys are overwritten, never deleted.
type Session struct {
	ID       types.SessionID
	Memory   *memory.ShortTerm
	LongTerm *memory.LongTerm
	Log      *convlog.Logger

	mu         sync.Mutex
	context    map[string]any
	lastActive time.Time
}

// Touch records activity for idle-sweep accounting.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

// LastActive returns the time of the session's most recent activity.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Context returns a copy of the context map.
func (s *Session) Context() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.context))
	for k, v := range s.context {
		out[k] = v
	}
	return out
}

// CurrentRepo returns the current_repo context value, if set.
func (s *Session) CurrentRepo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, _ := s.context[KeyCurrentRepo].(string)
	return repo
}

// CurrentFiles returns the current_files context value, if set.
func (s *Session) CurrentFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return asStringSlice(s.context[KeyCurrentFiles])
}

// UpdateContext merges patch into the context map. For the recognized keys
// current_repo and current_files a human-readable note is appended to the
// interaction log so subsequent decisions know what the user is viewing.
func (s *Session) UpdateContext(patch map[string]any) {
	var notes []string

	s.mu.Lock()
	for k, v := range patch {
		s.context[k] = v
	}
	if repo, ok := patch[KeyCurrentRepo].(string); ok && repo != "" {
		notes = append(notes, fmt.Sprintf("Currently viewing repository: %s", repo))
	}
	if files := asStringSlice(patch[KeyCurrentFiles]); len(files) > 0 {
		notes = append(notes, fmt.Sprintf("Currently viewing files: %s", strings.Join(files, ", ")))
	}
	s.mu.Unlock()

	for _, note := range notes {
		s.Memory.Append(note)
	}
}

// AddCurrentFile records a newly viewed file in current_files, skipping
// duplicates.
func (s *Session) AddCurrentFile(path string) {
	files := s.CurrentFiles()
	for _, f := range files {
		if f == path {
			return
		}
	}
	s.UpdateContext(map[string]any{KeyCurrentFiles: append(files, path)})
}

// asStringSlice tolerates both []string and the []any that JSON decoding
// produces.
func asStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Manager owns the process-wide session registry: one Session per identifier,
// created lazily on first use. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[types.SessionID]*Session
	logDir   string
}

// NewManager creates a Manager whose sessions log under logDir/<sessionID>.
func NewManager(logDir string) *Manager {
	return &Manager{
		sessions: make(map[types.SessionID]*Session),
		logDir:   logDir,
	}
}

// GetOrCreate returns the session for id, constructing it on first use.
func (m *Manager) GetOrCreate(id types.SessionID) *Session {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		sess.Touch()
		return sess
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		sess.Touch()
		return sess
	}
	sess = &Session{
		ID:         id,
		Memory:     memory.NewShortTerm(),
		LongTerm:   memory.NewLongTerm(),
		Log:        convlog.New(filepath.Join(m.logDir, string(id))),
		context:    map[string]any{},
		lastActive: time.Now(),
	}
	m.sessions[id] = sess
	return sess
}

// Get returns the session for id if it exists.
func (m *Manager) Get(id types.SessionID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than idleFor and returns how many
// were evicted. A non-positive idleFor disables eviction.
func (m *Manager) Sweep(idleFor time.Duration) int {
	if idleFor <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-idleFor)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, sess := range m.sessions {
		if sess.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}
