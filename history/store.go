// Package history implements the shared intent-history store: a single
// bounded feed that unifies built-in-agent and external (BYOA) agent
// activity so dashboards never need to merge two sources.
package history

import (
	"sync"

	"github.com/nhb-labs/agentic-wallet/types"
)

const defaultMaxRecords = 5000

// Store is an append-only, bounded ring buffer of IntentHistoryRecord.
type Store struct {
	mu      sync.Mutex
	records []types.IntentHistoryRecord
	max     int
}

// NewStore constructs a history store bounded at max entries (defaultMaxRecords
// if max <= 0).
func NewStore(max int) *Store {
	if max <= 0 {
		max = defaultMaxRecords
	}
	return &Store{max: max}
}

// Append records one entry, trimming the oldest entry if the store is full.
func (s *Store) Append(rec types.IntentHistoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if len(s.records) > s.max {
		s.records = s.records[len(s.records)-s.max:]
	}
}

// List returns the most recent count records, oldest first. count <= 0
// returns every stored record.
func (s *Store) List(count int) []types.IntentHistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count <= 0 || count > len(s.records) {
		count = len(s.records)
	}
	out := make([]types.IntentHistoryRecord, count)
	copy(out, s.records[len(s.records)-count:])
	return out
}

// ListForAgent filters by AgentID, most recent count matches, oldest first.
func (s *Store) ListForAgent(agentID string, count int) []types.IntentHistoryRecord {
	s.mu.Lock()
	snapshot := append([]types.IntentHistoryRecord(nil), s.records...)
	s.mu.Unlock()

	matches := make([]types.IntentHistoryRecord, 0, count)
	for i := len(snapshot) - 1; i >= 0 && (count <= 0 || len(matches) < count); i-- {
		if snapshot[i].AgentID == agentID {
			matches = append(matches, snapshot[i])
		}
	}
	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
	return matches
}
