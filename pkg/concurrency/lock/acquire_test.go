package lock

import (
	"testing"
	"time"

	"storemy/pkg/concurrency/transaction"
)

func TestAcquireSucceedsImmediatelyWhenUncontended(t *testing.T) {
	l := NewPageLock()
	r := transaction.NewRegistry()
	tid := transaction.New()
	if err := Acquire(l, tid, ReadWrite, r); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if r.SuspectCount() != 0 {
		t.Fatal("expected no suspicion recorded for an uncontended acquire")
	}
}

func TestAcquireSucceedsAfterContentionClears(t *testing.T) {
	l := NewPageLock()
	r := transaction.NewRegistry()
	holder := transaction.New()
	if !l.TryAcquire(holder, ReadWrite) {
		t.Fatal("setup: expected holder to acquire WRITE")
	}

	waiter := transaction.New()
	done := make(chan error, 1)
	go func() {
		done <- Acquire(l, waiter, ReadOnly, r)
	}()

	time.Sleep(20 * time.Millisecond)
	l.Release(holder)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected waiter to eventually acquire, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for waiter to acquire after holder released")
	}
}
