// Package lock implements per-page reader/writer locking with reentrant
// acquisition and atomic read-to-write upgrade, used by the buffer pool to
// enforce strict two-phase locking.
package lock

import (
	"fmt"
	"sync"
	"time"

	"storemy/pkg/concurrency/transaction"
)

// Permission is the mode a transaction requests when touching a page.
type Permission int

const (
	ReadOnly Permission = iota
	ReadWrite
)

func (p Permission) String() string {
	if p == ReadWrite {
		return "WRITE"
	}
	return "READ"
}

// state is the lock's internal mode. A lock starts idle, moves to reading
// with some reader count, or to writing/upgrading for a single transaction.
type state int

const (
	idle state = iota
	reading
	writing
	upgrading
)

// PageLock is the per-page reader/writer lock described by the buffer
// pool's locking protocol: shared reentrant READ, exclusive reentrant
// WRITE, and an atomic READ-to-WRITE upgrade with writer preference (once
// an upgrade is pending, no new reader may enter; it only waits for
// existing readers already holding the lock to drain).
type PageLock struct {
	mu   sync.Mutex
	cond *sync.Cond

	st state
	// held maps a holding transaction to its mode and reentrancy count.
	held map[int64]*holder
	// upgradingTID is set while a sole reader is waiting for the other
	// readers to drain before converting to WRITE.
	upgradingTID int64
}

type holder struct {
	mode  Permission
	count int
}

// NewPageLock constructs an idle lock.
func NewPageLock() *PageLock {
	l := &PageLock{
		held: make(map[int64]*holder),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// TryAcquire attempts to grant tid the requested permission without
// blocking. It returns true on success. Callers implement the timeout/retry
// policy around this call; PageLock itself never blocks indefinitely.
func (l *PageLock) TryAcquire(tid *transaction.ID, perm Permission) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tryAcquireLocked(tid, perm)
}

// WaitForRelease blocks until some other acquisition on this lock releases
// (Release/ReleaseAll broadcasts on l.cond) or timeout elapses, whichever
// comes first. Callers re-attempt TryAcquire after it returns; a spurious
// wake (another transaction released a mode that still doesn't satisfy the
// caller) is harmless, it just costs one extra failed TryAcquire.
func (l *PageLock) WaitForRelease(timeout time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	timer := time.AfterFunc(timeout, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer timer.Stop()
	l.cond.Wait()
}

func (l *PageLock) tryAcquireLocked(tid *transaction.ID, perm Permission) bool {
	id := tid.Value()
	if h, ok := l.held[id]; ok {
		return l.tryReentrantLocked(id, h, perm)
	}

	switch perm {
	case ReadOnly:
		if l.st == writing || l.st == upgrading {
			return false
		}
		l.st = reading
		l.held[id] = &holder{mode: ReadOnly, count: 1}
		return true
	case ReadWrite:
		if l.st != idle {
			return false
		}
		l.st = writing
		l.held[id] = &holder{mode: ReadWrite, count: 1}
		return true
	default:
		return false
	}
}

// tryReentrantLocked handles a request from a transaction that already
// holds some mode on this lock: same-mode reentrancy, write-holder
// requesting read, or read-holder requesting upgrade to write.
func (l *PageLock) tryReentrantLocked(id int64, h *holder, perm Permission) bool {
	if h.mode == ReadWrite {
		// A writer may always also acquire read, and re-acquire write.
		h.count++
		return true
	}
	if perm == ReadOnly {
		h.count++
		return true
	}

	// Read holder requesting WRITE: upgrade.
	if len(l.held) == 1 {
		// Sole reader: convert in place, atomically.
		h.mode = ReadWrite
		h.count++
		l.st = writing
		l.upgradingTID = 0
		return true
	}
	// Other readers present: mark upgrade pending so no new reader is
	// admitted, then wait for them to drain via retries.
	l.st = upgrading
	l.upgradingTID = id
	return false
}

// Release decrements tid's hold count on this lock, releasing it entirely
// once the count reaches zero. If an upgrade is pending and this release
// drains the last other reader, the upgrader's next TryAcquire will
// succeed.
func (l *PageLock) Release(tid *transaction.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := tid.Value()
	h, ok := l.held[id]
	if !ok {
		return
	}
	h.count--
	if h.count > 0 {
		return
	}
	delete(l.held, id)
	l.recomputeStateLocked()
	l.cond.Broadcast()
}

// ReleaseAll fully releases tid's hold regardless of reentrancy count,
// used when a transaction completes.
func (l *PageLock) ReleaseAll(tid *transaction.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, tid.Value())
	l.recomputeStateLocked()
	l.cond.Broadcast()
}

func (l *PageLock) recomputeStateLocked() {
	switch len(l.held) {
	case 0:
		l.st = idle
		l.upgradingTID = 0
	default:
		allRead := true
		for _, h := range l.held {
			if h.mode == ReadWrite {
				allRead = false
				break
			}
		}
		if allRead {
			l.st = reading
		}
		// If a writer remains, st is already writing; if an upgrade was
		// pending and readers drained to just the upgrader, the upgrader's
		// own retry will flip st to writing on success.
		if len(l.held) == 1 && l.upgradingTID != 0 {
			for id := range l.held {
				if id == l.upgradingTID {
					l.st = upgrading
				}
			}
		}
	}
}

// Holders returns the transaction ids currently holding some mode on this
// lock, for diagnostics.
func (l *PageLock) Holders() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int64, 0, len(l.held))
	for id := range l.held {
		out = append(out, id)
	}
	return out
}

// HoldsLock reports whether tid currently holds any mode on this lock.
func (l *PageLock) HoldsLock(tid *transaction.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[tid.Value()]
	return ok
}

func (s state) String() string {
	switch s {
	case idle:
		return "IDLE"
	case reading:
		return "READING"
	case writing:
		return "WRITING"
	case upgrading:
		return "UPGRADING"
	default:
		return fmt.Sprintf("state(%d)", s)
	}
}
