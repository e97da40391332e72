package upload

import (
	"container/list"
	"context"
	"log"
	"sync"
	"time"
)

const (
	defaultMaxEntries = 10000
	defaultRetention  = 1 * time.Hour
)

type storeEntry struct {
	rec  Record
	elem *list.Element // position in the eviction order, front = oldest
}

// Store is a bounded in-memory mapping from upload id to its Record.
// Capacity overruns evict the oldest record; a sweeper reclaims terminal
// records older than the retention window. Records still in flight are
// never swept.
//
// Exactly one transfer job writes to a given record after creation, so
// the lock only guards the map and eviction order, not per-record
// ownership.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*storeEntry
	order      *list.List
	maxEntries int
	retention  time.Duration
}

// NewStore returns a store bounded to maxEntries records that retains
// terminal records for the given window. Zero values select defaults.
func NewStore(maxEntries int, retention time.Duration) *Store {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Store{
		entries:    make(map[string]*storeEntry),
		order:      list.New(),
		maxEntries: maxEntries,
		retention:  retention,
	}
}

// Create inserts a fresh record with status pending and zero progress.
// The record must exist before the submitting caller is acknowledged so
// an immediate poll never misses it.
func (s *Store) Create(id string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; ok {
		return
	}
	for len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}
	e := &storeEntry{
		rec: Record{
			ID:        id,
			Status:    StatusPending,
			Progress:  0,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	e.elem = s.order.PushBack(id)
	s.entries[id] = e
}

// Patch is a partial update merged into an existing record. Zero-valued
// fields are left unchanged.
type Patch struct {
	Status       Status
	Progress     *int
	Result       *Result
	ErrorMessage string
}

// Update merges patch into the record for id. Unknown ids and records
// already in a terminal state are ignored; progress never decreases.
func (s *Store) Update(id string, patch Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.rec.Status.Terminal() {
		return
	}
	if patch.Status != "" {
		e.rec.Status = patch.Status
	}
	if patch.Progress != nil && *patch.Progress > e.rec.Progress {
		e.rec.Progress = *patch.Progress
	}
	if patch.Result != nil {
		e.rec.Result = patch.Result
	}
	if patch.ErrorMessage != "" {
		e.rec.ErrorMessage = patch.ErrorMessage
	}
	e.rec.UpdatedAt = time.Now()
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Record{}, false
	}
	return e.rec, true
}

// Len returns the number of tracked records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RunSweeper periodically reclaims terminal records older than the
// retention window until ctx is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("service=progress_store msg=%q", "sweeper_stopped")
			return
		case <-ticker.C:
			if n := s.Sweep(time.Now()); n > 0 {
				log.Printf("service=progress_store msg=%q evicted=%d", "swept", n)
			}
		}
	}
}

// Sweep removes terminal records whose last update is older than the
// retention window, returning how many were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for elem := s.order.Front(); elem != nil; {
		next := elem.Next()
		id := elem.Value.(string)
		e := s.entries[id]
		if e.rec.Status.Terminal() && now.Sub(e.rec.UpdatedAt) >= s.retention {
			s.order.Remove(elem)
			delete(s.entries, id)
			removed++
		}
		elem = next
	}
	return removed
}

// evictOldestLocked drops the oldest record regardless of state. Hitting
// this with an in-flight record means the store is undersized, which is
// worth a log line.
func (s *Store) evictOldestLocked() {
	elem := s.order.Front()
	if elem == nil {
		return
	}
	id := elem.Value.(string)
	if e := s.entries[id]; e != nil && !e.rec.Status.Terminal() {
		log.Printf("service=progress_store msg=%q id=%s status=%s", "evicting_in_flight_record", id, e.rec.Status)
	}
	s.order.Remove(elem)
	delete(s.entries, id)
}
