package transaction

import "sync"

// Registry tracks every transaction currently known to the system. It exists
// for diagnostics and for the deadlock arbiter, which needs to enumerate
// transactions currently suspected of participating in a deadlock.
type Registry struct {
	mu      sync.RWMutex
	live    map[int64]*ID
	suspect map[int64]bool
	aborted map[int64]bool
}

// NewRegistry creates an empty transaction registry.
func NewRegistry() *Registry {
	return &Registry{
		live:    make(map[int64]*ID),
		suspect: make(map[int64]bool),
		aborted: make(map[int64]bool),
	}
}

// Begin registers tid as live. Safe to call more than once for the same tid.
func (r *Registry) Begin(tid *ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[tid.Value()] = tid
}

// End removes tid from the registry, clearing any suspicion and abort
// flags.
func (r *Registry) End(tid *ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, tid.Value())
	delete(r.suspect, tid.Value())
	delete(r.aborted, tid.Value())
}

// MarkAborted permanently flags tid as a deadlock victim: every subsequent
// GetPage call for tid fails immediately without retrying.
func (r *Registry) MarkAborted(tid *ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborted[tid.Value()] = true
}

// IsAborted reports whether tid has already been chosen as a deadlock
// victim.
func (r *Registry) IsAborted(tid *ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.aborted[tid.Value()]
}

// MarkSuspect flags tid as a suspected deadlock participant after it has
// timed out waiting for a lock.
func (r *Registry) MarkSuspect(tid *ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suspect[tid.Value()] = true
}

// ClearSuspect removes tid's suspicion flag, typically once it has
// successfully acquired the lock it was waiting for.
func (r *Registry) ClearSuspect(tid *ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.suspect, tid.Value())
}

// IsOldestSuspect reports whether tid is the oldest (lowest-id) transaction
// currently marked as suspect. Used by the deadlock arbiter: the oldest
// suspect is chosen as the victim so that progress is guaranteed without
// building a wait-for graph.
func (r *Registry) IsOldestSuspect(tid *ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.suspect[tid.Value()] {
		return false
	}
	for id, suspect := range r.suspect {
		if suspect && id < tid.Value() {
			return false
		}
	}
	return true
}

// SuspectCount returns how many transactions are currently suspected
// deadlock participants.
func (r *Registry) SuspectCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.suspect)
}
