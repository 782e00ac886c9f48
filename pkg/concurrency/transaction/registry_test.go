package transaction

import "testing"

func TestIsOldestSuspectAmongSuspects(t *testing.T) {
	r := NewRegistry()
	older := New()
	younger := New()
	r.Begin(older)
	r.Begin(younger)

	r.MarkSuspect(younger)
	r.MarkSuspect(older)

	if !r.IsOldestSuspect(older) {
		t.Fatal("expected the lower-id transaction to be the oldest suspect")
	}
	if r.IsOldestSuspect(younger) {
		t.Fatal("expected the higher-id transaction to not be the oldest suspect")
	}
}

func TestIsOldestSuspectFalseWhenNotSuspect(t *testing.T) {
	r := NewRegistry()
	tid := New()
	r.Begin(tid)
	if r.IsOldestSuspect(tid) {
		t.Fatal("expected a transaction with no suspicion flag to not be the oldest suspect")
	}
}

func TestClearSuspectRemovesFlag(t *testing.T) {
	r := NewRegistry()
	tid := New()
	r.MarkSuspect(tid)
	r.ClearSuspect(tid)
	if r.IsOldestSuspect(tid) {
		t.Fatal("expected cleared suspicion to not count as oldest suspect")
	}
	if r.SuspectCount() != 0 {
		t.Fatalf("expected 0 suspects, got %d", r.SuspectCount())
	}
}

func TestEndClearsAllFlags(t *testing.T) {
	r := NewRegistry()
	tid := New()
	r.Begin(tid)
	r.MarkSuspect(tid)
	r.MarkAborted(tid)
	r.End(tid)
	if r.IsAborted(tid) {
		t.Fatal("expected End to clear the aborted flag")
	}
	if r.SuspectCount() != 0 {
		t.Fatal("expected End to clear the suspect flag")
	}
}
