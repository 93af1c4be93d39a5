// Package store persists vote records. Stores are pure I/O: they return
// sentinel facts and never decide workflow rules; Execute runs the caller's
// validate/mutate pair while holding the record's lock.
package store

import (
	"context"
	"hash/fnv"
	"slices"
	"sync"

	"electiondesk/internal/votes/models"
	"electiondesk/pkg/platform/sentinel"
)

const numRecordShards = 64

type entry struct {
	record *models.VoteRecord
	seq    uint64
}

// InMemory is a thread-safe vote record store. Reads take the map lock only;
// Execute additionally serializes per record through a sharded mutex so a
// read-check-write can never interleave with another transition.
type InMemory struct {
	mu      sync.RWMutex
	records map[models.RecordID]*entry
	nextSeq uint64
	shards  [numRecordShards]sync.Mutex
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[models.RecordID]*entry)}
}

// Create stores a copy of record. A duplicate id is ErrConflict.
func (s *InMemory) Create(_ context.Context, record *models.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; ok {
		return sentinel.ErrConflict
	}
	s.nextSeq++
	s.records[record.ID] = &entry{record: record.Clone(), seq: s.nextSeq}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id models.RecordID) (*models.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.record.Clone(), nil
}

// ListByCenter returns the center's records in submission order.
func (s *InMemory) ListByCenter(_ context.Context, centerID models.CenterID) ([]models.VoteRecord, error) {
	return s.snapshot(func(r *models.VoteRecord) bool { return r.CenterID == centerID }), nil
}

// ListByStatus returns records in any of the given statuses in submission order.
// No statuses means all records.
func (s *InMemory) ListByStatus(_ context.Context, statuses ...models.Status) ([]models.VoteRecord, error) {
	if len(statuses) == 0 {
		return s.snapshot(func(*models.VoteRecord) bool { return true }), nil
	}
	return s.snapshot(func(r *models.VoteRecord) bool { return slices.Contains(statuses, r.Status) }), nil
}

// Execute loads the record, runs validate and then mutate on a private copy and
// stores the result, all while holding the record's shard lock. A validate
// error is returned unchanged and nothing is written.
func (s *InMemory) Execute(ctx context.Context, id models.RecordID, validate func(*models.VoteRecord) error, mutate func(*models.VoteRecord)) (*models.VoteRecord, error) {
	shard := &s.shards[shardFor(id)]
	shard.Lock()
	defer shard.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validate(current); err != nil {
		return nil, err
	}
	mutate(current)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e.record = current.Clone()
	return current, nil
}

// Len reports the number of stored records.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *InMemory) snapshot(keep func(*models.VoteRecord) bool) []models.VoteRecord {
	s.mu.RLock()
	matched := make([]*entry, 0, len(s.records))
	for _, e := range s.records {
		if keep(e.record) {
			matched = append(matched, &entry{record: e.record.Clone(), seq: e.seq})
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *entry) int {
		if c := a.record.SubmittedAt.Compare(b.record.SubmittedAt); c != 0 {
			return c
		}
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})

	out := make([]models.VoteRecord, len(matched))
	for i, e := range matched {
		out[i] = *e.record
	}
	return out
}

// shardFor hashes the record id with FNV-1a.
func shardFor(id models.RecordID) int {
	h := fnv.New32a()
	_, _ = h.Write(id[:])
	return int(h.Sum32() % numRecordShards)
}
