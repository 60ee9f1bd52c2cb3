package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rhythmscan/rhythmscan/pkg/ecg"
)

// Capture provenance labels stamped on records.
const (
	SourceUpload = "upload"
	SourceStream = "nats"
)

// Record is one completed analysis: where the capture came from and the
// full pipeline output. Records are immutable once stored.
type Record struct {
	ID          string
	DeviceID    string
	Source      string
	Format      string
	Rate        float64
	SampleCount int
	Result      *ecg.Result
}

// NewRecord stamps a fresh ID onto an analysis produced from one capture.
func NewRecord(source, device, format string, rate float64, sampleCount int, res *ecg.Result) *Record {
	return &Record{
		ID:          uuid.NewString(),
		DeviceID:    device,
		Source:      source,
		Format:      format,
		Rate:        rate,
		SampleCount: sampleCount,
		Result:      res,
	}
}

// Entry is a record together with the time it was stored.
type Entry struct {
	Record   *Record
	StoredAt time.Time
}

// Store is a thread-safe in-memory analysis store, keyed by record ID.
// A background goroutine (Run) periodically evicts entries older than the
// configured TTL.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores the record under rec.ID. Callers must not modify rec after
// calling Put.
func (s *Store) Put(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.ID] = &Entry{
		Record:   rec,
		StoredAt: s.now(),
	}
}

// Get returns the Entry for the given record ID and a boolean indicating
// whether an entry was found. The entry may be stale if TTL has elapsed.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	return e, ok
}

// List returns all entries whose StoredAt is within the TTL, newest
// first. Stale entries that have not yet been evicted are excluded.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.StoredAt.After(cutoff) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StoredAt.Equal(out[j].StoredAt) {
			return out[i].Record.ID < out[j].Record.ID
		}
		return out[i].StoredAt.After(out[j].StoredAt)
	})
	return out
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// TTL returns the configured retention window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Evict removes entries whose StoredAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.StoredAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second) so entries are evicted promptly. Run blocks
// until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted expired analyses", "count", n)
			}
		}
	}
}
