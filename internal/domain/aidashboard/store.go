package aidashboard

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store persists the current risk assessment per patient. Put is
// last-write-wins; a concurrent Get never observes a partially written
// record. Implementations return copies so callers cannot mutate stored
// state.
type Store interface {
	Get(ctx context.Context, patientID uuid.UUID) (*RiskAssessment, bool, error)
	GetMany(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]*RiskAssessment, error)
	Put(ctx context.Context, assessment *RiskAssessment) error
}

const memoryShards = 32

type memoryShard struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*RiskAssessment
}

// memoryStore shards assessments across independent locks so unrelated
// patients' reads and writes proceed concurrently.
type memoryStore struct {
	shards [memoryShards]*memoryShard
}

// NewMemoryStore returns an in-process Store, suitable for development and
// tests.
func NewMemoryStore() Store {
	s := &memoryStore{}
	for i := range s.shards {
		s.shards[i] = &memoryShard{items: make(map[uuid.UUID]*RiskAssessment)}
	}
	return s
}

func (s *memoryStore) shard(id uuid.UUID) *memoryShard {
	return s.shards[int(id[0])%memoryShards]
}

func (s *memoryStore) Get(_ context.Context, patientID uuid.UUID) (*RiskAssessment, bool, error) {
	sh := s.shard(patientID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	a, ok := sh.items[patientID]
	if !ok {
		return nil, false, nil
	}
	return a.Clone(), true, nil
}

func (s *memoryStore) GetMany(_ context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]*RiskAssessment, error) {
	out := make(map[uuid.UUID]*RiskAssessment, len(patientIDs))
	for _, id := range patientIDs {
		sh := s.shard(id)
		sh.mu.RLock()
		if a, ok := sh.items[id]; ok {
			out[id] = a.Clone()
		}
		sh.mu.RUnlock()
	}
	return out, nil
}

func (s *memoryStore) Put(_ context.Context, assessment *RiskAssessment) error {
	if assessment == nil {
		return InvalidInput("nil assessment")
	}
	sh := s.shard(assessment.PatientID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.items[assessment.PatientID] = assessment.Clone()
	return nil
}
