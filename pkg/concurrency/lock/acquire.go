package lock

import (
	"fmt"
	"math/rand"
	"time"

	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/dberrors"
	"storemy/pkg/logging"
)

// baseTimeout is T0, the initial wait budget before the first retry.
const baseTimeout = 200 * time.Millisecond

// ceilingTimeout is the maximum wait budget a single acquisition attempt
// will back off to (~1024 * T0).
const ceilingTimeout = 1024 * baseTimeout

// jitterFraction is the +/-10% randomization applied to each computed
// timeout, so that transactions racing on the same page do not retry in
// lockstep.
const jitterFraction = 0.10

// Acquire attempts to grant tid the requested permission on l, retrying
// with an exponentially doubling wait budget (starting at ~200ms, capped at
// ~1024x that, +/-10% jitter) across timeouts. On each timeout tid is
// marked as a suspected deadlock victim in registry; if it is the oldest
// currently-suspected transaction, or the ceiling has been reached, it is
// aborted with dberrors.TransactionAborted. This guarantees progress
// without building a wait-for graph: at every true deadlock cycle, some
// participant eventually hits the ceiling or is the oldest suspect and is
// sacrificed.
func Acquire(l *PageLock, tid *transaction.ID, perm Permission, registry *transaction.Registry) error {
	log := logging.WithLock(tid.Value(), perm.String())
	timeout := baseTimeout
	for {
		if l.TryAcquire(tid, perm) {
			registry.ClearSuspect(tid)
			return nil
		}

		if acquireWithin(l, tid, perm, jitter(timeout)) {
			registry.ClearSuspect(tid)
			return nil
		}

		registry.MarkSuspect(tid)
		log.Debug("lock wait timed out, marked suspect", "waited", timeout.String())

		atCeiling := timeout >= ceilingTimeout
		if atCeiling || registry.IsOldestSuspect(tid) {
			registry.ClearSuspect(tid)
			registry.MarkAborted(tid)
			log.Warn("chosen as deadlock victim", "waited", timeout.String(), "at_ceiling", atCeiling)
			return dberrors.NewTransactionAborted(fmt.Sprintf(
				"transaction %s aborted acquiring %s on page lock (deadlock victim, waited %s)",
				tid, perm, timeout))
		}

		timeout *= 2
		if timeout > ceilingTimeout {
			timeout = ceilingTimeout
		}
	}
}

// acquireWithin retries TryAcquire, blocking on l's condition variable
// between attempts so the caller wakes as soon as some other holder
// releases instead of polling, until it succeeds or budget elapses.
func acquireWithin(l *PageLock, tid *transaction.ID, perm Permission, budget time.Duration) bool {
	deadline := time.Now().Add(budget)
	for {
		if l.TryAcquire(tid, perm) {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		l.WaitForRelease(remaining)
	}
}

// jitter scales d by a uniformly random factor in [1-jitterFraction,
// 1+jitterFraction].
func jitter(d time.Duration) time.Duration {
	factor := 1 + (rand.Float64()*2-1)*jitterFraction
	return time.Duration(float64(d) * factor)
}
