package memory

import (
	"context"
	"sync"

	audit "electiondesk/pkg/platform/audit"
)

// InMemoryStore keeps events per record, in append order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
	total  int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]audit.Event)
	s.total = 0
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.RecordID] = append(s.events[event.RecordID], event)
	s.total++
	return nil
}

func (s *InMemoryStore) AppendBatch(ctx context.Context, events []audit.Event) error {
	for _, e := range events {
		if err := s.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemoryStore) ListByRecord(_ context.Context, recordID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[recordID]...), nil
}

// Len returns the number of events appended since creation or the last Clear.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}
