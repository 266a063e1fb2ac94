// internal/memory/memory_test.go
package memory

import "testing"

func TestShortTermGoalResetsDone(t *testing.T) {
	m := NewShortTerm()
	m.SetGoal("first query")
	m.Append("entry one")
	m.MarkDone()

	if !m.Done() {
		t.Fatal("expected done after MarkDone")
	}

	m.SetGoal("second query")
	if m.Done() {
		t.Error("new goal should clear the done flag")
	}
	if m.Goal() != "second query" {
		t.Errorf("unexpected goal: %q", m.Goal())
	}
	// History survives across queries within a session.
	if m.Len() != 1 {
		t.Errorf("expected history to persist, got %d entries", m.Len())
	}
}

func TestShortTermEntriesOrderAndCopy(t *testing.T) {
	m := NewShortTerm()
	m.Append("a")
	m.Append("b")
	m.Append("c")

	got := m.Entries()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("unexpected entries: %v", got)
	}

	// Mutating the returned slice must not affect the log.
	got[0] = "mutated"
	if m.Entries()[0] != "a" {
		t.Error("Entries should return a copy")
	}
}

func TestLongTermAppend(t *testing.T) {
	lt := NewLongTerm()
	lt.Append("summary one")
	lt.Append("summary two")

	got := lt.All()
	if len(got) != 2 || got[1] != "summary two" {
		t.Errorf("unexpected summaries: %v", got)
	}
}
