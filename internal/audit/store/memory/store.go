// Package memory provides an in-memory audit store for tests and local
// development. It honors the same append-only, idempotent contract as the
// postgres store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/adonisja/tyche-finance-sub001/internal/audit"
)

type Store struct {
	mu      sync.RWMutex
	entries map[string][]audit.Entry // keyed by tenant ID
	seen    map[string]struct{}      // entry IDs, for idempotent appends
}

func New() *Store {
	return &Store{
		entries: make(map[string][]audit.Entry),
		seen:    make(map[string]struct{}),
	}
}

// Append stores a copy of the entry. Duplicate IDs are ignored so retried
// appends stay idempotent, matching the postgres ON CONFLICT behavior.
func (s *Store) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[entry.ID]; dup {
		return nil
	}
	s.seen[entry.ID] = struct{}{}
	s.entries[entry.TenantID] = append(s.entries[entry.TenantID], entry)
	return nil
}

// Query returns matching entries for the tenant ordered by ID ascending.
func (s *Store) Query(_ context.Context, tenantID string, from, to time.Time, filter audit.Filter) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Entry
	for _, e := range s.entries[tenantID] {
		if e.Timestamp.Before(from) || e.Timestamp.After(to) {
			continue
		}
		if !filter.Matches(e) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len reports the total number of stored entries across all tenants.
// Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, es := range s.entries {
		n += len(es)
	}
	return n
}
