// internal/janitor/janitor_test.go
package janitor

import (
	"testing"
	"time"

	"github.com/user/gitscout/internal/session"
)

func TestJanitorStartStop(t *testing.T) {
	m := session.NewManager(t.TempDir())
	m.GetOrCreate("s1")

	j := New(m, time.Hour, "* * * * * *")
	if err := j.Start(); err != nil {
		t.Fatal(err)
	}

	// Give the every-second schedule a chance to fire at least once.
	time.Sleep(1500 * time.Millisecond)
	j.Stop()

	// A fresh session must survive the sweep.
	if m.Len() != 1 {
		t.Errorf("expected 1 live session, got %d", m.Len())
	}
}

func TestJanitorRejectsBadSchedule(t *testing.T) {
	j := New(session.NewManager(t.TempDir()), time.Hour, "not a schedule")
	if err := j.Start(); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}
