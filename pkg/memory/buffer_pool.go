// Package memory implements the buffer pool: the fixed-capacity page cache
// that mediates every access to on-disk pages under strict two-phase
// locking, enforcing NO-STEAL eviction and FORCE-on-commit.
package memory

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"storemy/pkg/catalog"
	"storemy/pkg/concurrency/lock"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/dberrors"
	"storemy/pkg/logging"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"storemy/pkg/tuple"
)

// DefaultCapacity is the page cache size used when a caller has no
// specific requirement.
const DefaultCapacity = 50

// BufferPool is the single entry point to both the page cache and the
// per-page lock table. It caches up to Capacity pages, routes misses
// through the catalog's heap files, and enforces strict 2PL with a
// timeout-based deadlock policy.
type BufferPool struct {
	capacity int
	catalog  *catalog.Catalog
	registry *transaction.Registry

	mu    sync.Mutex
	pages map[tuple.PageID]page.Page

	locksMu sync.Mutex
	locks   map[tuple.PageID]*lock.PageLock

	txLocksMu sync.Mutex
	// txLocks maps a transaction to the set of pages it currently holds
	// some lock on, populated on successful acquire and cleared on
	// transaction completion.
	txLocks map[int64]map[tuple.PageID]bool
}

// New constructs a buffer pool with the given page capacity, backed by
// cat for resolving table ids to heap files.
func New(capacity int, cat *catalog.Catalog) *BufferPool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	logging.WithComponent("buffer_pool").Debug("buffer pool constructed", "capacity", capacity)
	return &BufferPool{
		capacity: capacity,
		catalog:  cat,
		registry: transaction.NewRegistry(),
		pages:    make(map[tuple.PageID]page.Page),
		locks:    make(map[tuple.PageID]*lock.PageLock),
		txLocks:  make(map[int64]map[tuple.PageID]bool),
	}
}

// Begin registers tid as a live transaction. Idempotent.
func (bp *BufferPool) Begin(tid *transaction.ID) {
	bp.registry.Begin(tid)
}

func (bp *BufferPool) lockFor(pid tuple.PageID) *lock.PageLock {
	bp.locksMu.Lock()
	defer bp.locksMu.Unlock()
	l, ok := bp.locks[pid]
	if !ok {
		l = lock.NewPageLock()
		bp.locks[pid] = l
	}
	return l
}

func (bp *BufferPool) recordHeld(tid *transaction.ID, pid tuple.PageID) {
	bp.txLocksMu.Lock()
	defer bp.txLocksMu.Unlock()
	set, ok := bp.txLocks[tid.Value()]
	if !ok {
		set = make(map[tuple.PageID]bool)
		bp.txLocks[tid.Value()] = set
	}
	set[pid] = true
}

// GetPage is the single entry point to both cache and lock. It implements
// the acquisition policy: an already-aborted transaction fails immediately;
// otherwise the page lock is acquired (retrying with a doubling timeout
// budget and resolving deadlocks via age-based victim selection); once
// acquired, the page is served from cache or loaded from the owning heap
// file, evicting a clean page first if the cache is full.
func (bp *BufferPool) GetPage(tid *transaction.ID, pid tuple.PageID, perm lock.Permission) (page.Page, error) {
	if bp.registry.IsAborted(tid) {
		return nil, dberrors.NewTransactionAborted(fmt.Sprintf("transaction %s already aborted", tid))
	}

	l := bp.lockFor(pid)
	if err := lock.Acquire(l, tid, perm, bp.registry); err != nil {
		return nil, err
	}
	bp.recordHeld(tid, pid)

	bp.mu.Lock()
	defer bp.mu.Unlock()
	if p, ok := bp.pages[pid]; ok {
		return p, nil
	}

	if len(bp.pages) >= bp.capacity {
		if err := bp.evictLocked(); err != nil {
			return nil, err
		}
	}

	p, err := bp.readThroughLocked(pid)
	if err != nil {
		return nil, err
	}
	bp.pages[pid] = p
	return p, nil
}

func (bp *BufferPool) readThroughLocked(pid tuple.PageID) (page.Page, error) {
	file, err := bp.catalog.GetDatabaseFile(pid.TableID)
	if err != nil {
		return nil, err
	}
	p, err := file.ReadPage(pid)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.IOFailure, fmt.Sprintf("read page %s", pid), err)
	}
	return p, nil
}

// evictLocked scans the cache for any page whose dirty flag is unset and
// discards it: no flush is required since it already matches disk. Fails
// with a DbException if every cached page is dirty (NO-STEAL means a dirty
// page can only leave the cache via commit).
func (bp *BufferPool) evictLocked() error {
	for pid, p := range bp.pages {
		if p.IsDirty() == nil {
			logging.WithPage(pid.String()).Debug("evicting clean page")
			delete(bp.pages, pid)
			return nil
		}
	}
	return dberrors.NewCacheExhausted("all cached pages are dirty, cannot evict (NO-STEAL policy)")
}

// ReleasePage performs an unsafe early release of tid's hold on pid,
// bypassing strict 2PL. Provided for callers (index probes, optimizer
// scans) that explicitly accept the weaker guarantee.
func (bp *BufferPool) ReleasePage(tid *transaction.ID, pid tuple.PageID) {
	bp.lockFor(pid).Release(tid)
	bp.txLocksMu.Lock()
	defer bp.txLocksMu.Unlock()
	if set, ok := bp.txLocks[tid.Value()]; ok {
		delete(set, pid)
	}
}

// HoldsLock reports whether tid currently holds any lock mode on pid.
func (bp *BufferPool) HoldsLock(tid *transaction.ID, pid tuple.PageID) bool {
	return bp.lockFor(pid).HoldsLock(tid)
}

// InsertTuple resolves tableID's heap file via the catalog, inserts t,
// marks every returned page dirty under tid, and installs them in the
// cache in place of any stale copy.
func (bp *BufferPool) InsertTuple(tid *transaction.ID, tableID primitives.TableID, t *tuple.Tuple) error {
	file, err := bp.catalog.GetDatabaseFile(tableID)
	if err != nil {
		return err
	}
	modified, err := file.InsertTuple(tid, bp, t)
	if err != nil {
		return err
	}
	bp.installDirty(tid, modified)
	return nil
}

// DeleteTuple looks up t's owning heap file via t.RecordID.PageID.TableID,
// deletes it, marks every returned page dirty under tid, and installs them
// in the cache in place of any stale copy.
func (bp *BufferPool) DeleteTuple(tid *transaction.ID, t *tuple.Tuple) error {
	rid := t.GetRecordID()
	if rid == nil {
		return fmt.Errorf("delete tuple: tuple has no record id")
	}
	file, err := bp.catalog.GetDatabaseFile(rid.PageID.TableID)
	if err != nil {
		return err
	}
	modified, err := file.DeleteTuple(tid, bp, t)
	if err != nil {
		return err
	}
	bp.installDirty(tid, modified)
	return nil
}

// installDirty marks each page dirty under tid and ensures the cache holds
// exactly these copies (a page possibly already cached from the READ probe
// during insert is overwritten with the post-mutation copy).
func (bp *BufferPool) installDirty(tid *transaction.ID, pages []page.Page) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, p := range pages {
		p.MarkDirty(true, tid)
		bp.pages[p.GetID()] = p
	}
}

// FlushAllPages writes every dirty cached page to disk and clears its
// dirty flag, regardless of owning transaction. Used by tests and recovery
// tooling, not by normal transaction completion.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, p := range bp.pages {
		if p.IsDirty() != nil {
			if err := bp.flushLocked(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (bp *BufferPool) flushLocked(p page.Page) error {
	file, err := bp.catalog.GetDatabaseFile(p.GetID().TableID)
	if err != nil {
		return err
	}
	if err := file.WritePage(p); err != nil {
		return dberrors.Wrap(dberrors.IOFailure, fmt.Sprintf("flush page %s", p.GetID()), err)
	}
	p.MarkDirty(false, nil)
	p.SetBeforeImage()
	return nil
}

// DiscardPage evicts pid from the cache unconditionally, without flushing.
func (bp *BufferPool) DiscardPage(pid tuple.PageID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	delete(bp.pages, pid)
}

// FlushPages flushes every page currently dirtied by tid.
func (bp *BufferPool) FlushPages(tid *transaction.ID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, p := range bp.pages {
		if d := p.IsDirty(); d != nil && d.Equals(tid) {
			if err := bp.flushLocked(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// TransactionComplete finalizes tid: on commit, every page it dirtied is
// flushed to disk (FORCE) and its before-image refreshed, one errgroup
// goroutine per dirty page; each goroutine holds bp.mu for its whole
// flush, so the writes happen one at a time. On abort, every
// page it dirtied is discarded from the cache so a subsequent read reloads
// the last-committed image from disk (equivalent to restoring the
// before-image, since NO-STEAL guarantees nothing of tid's was ever
// written). Either way, every lock tid holds is released and it is
// removed from the transaction table.
func (bp *BufferPool) TransactionComplete(tid *transaction.ID, commit bool) error {
	log := logging.WithTx(tid.Value())

	bp.mu.Lock()
	var dirtied []page.Page
	for _, p := range bp.pages {
		if d := p.IsDirty(); d != nil && d.Equals(tid) {
			dirtied = append(dirtied, p)
		}
	}
	bp.mu.Unlock()

	var err error
	if commit {
		err = bp.flushConcurrently(dirtied)
		if err != nil {
			logging.WithError(err).Warn("commit flush failed", "tx_id", tid.Value())
		} else {
			log.Info("transaction committed", "pages_flushed", len(dirtied))
		}
	} else {
		bp.mu.Lock()
		for _, p := range dirtied {
			delete(bp.pages, p.GetID())
		}
		bp.mu.Unlock()
		log.Info("transaction aborted", "pages_discarded", len(dirtied))
	}

	bp.releaseAll(tid)
	bp.registry.End(tid)
	return err
}

// flushConcurrently flushes each page in pages on its own goroutine via
// errgroup. flushLocked takes no lock itself, so each goroutine holds bp.mu
// around its call; the flushes therefore run one at a time, and the first
// error is returned.
func (bp *BufferPool) flushConcurrently(pages []page.Page) error {
	var g errgroup.Group
	for _, p := range pages {
		p := p
		g.Go(func() error {
			bp.mu.Lock()
			defer bp.mu.Unlock()
			return bp.flushLocked(p)
		})
	}
	return g.Wait()
}

func (bp *BufferPool) releaseAll(tid *transaction.ID) {
	bp.txLocksMu.Lock()
	held := bp.txLocks[tid.Value()]
	delete(bp.txLocks, tid.Value())
	bp.txLocksMu.Unlock()

	for pid := range held {
		bp.lockFor(pid).ReleaseAll(tid)
	}
}

// CachedPageCount returns the number of pages currently cached, for tests
// exercising the eviction policy.
func (bp *BufferPool) CachedPageCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pages)
}

var _ page.PageFetcher = (*BufferPool)(nil)
