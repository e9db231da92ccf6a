package aidashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// stubProvider serves canned snapshots and counts fetches per patient.
type stubProvider struct {
	mu        sync.Mutex
	calls     map[uuid.UUID]int
	snapshots map[uuid.UUID]*HealthSignalSnapshot
	fail      map[uuid.UUID]error
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		calls:     make(map[uuid.UUID]int),
		snapshots: make(map[uuid.UUID]*HealthSignalSnapshot),
		fail:      make(map[uuid.UUID]error),
	}
}

func (p *stubProvider) add(id uuid.UUID, snap *HealthSignalSnapshot) {
	snap.PatientID = id
	p.snapshots[id] = snap
}

func (p *stubProvider) Snapshot(ctx context.Context, id uuid.UUID) (*HealthSignalSnapshot, error) {
	p.mu.Lock()
	p.calls[id]++
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := p.fail[id]; ok {
		return nil, err
	}
	snap, ok := p.snapshots[id]
	if !ok {
		return nil, errors.New("unknown patient")
	}
	return snap, nil
}

func (p *stubProvider) callCount(id uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

// brokenStore fails selected operations to exercise the fatal path.
type brokenStore struct {
	Store
	failGet bool
	failPut bool
}

func (s *brokenStore) Get(ctx context.Context, id uuid.UUID) (*RiskAssessment, bool, error) {
	if s.failGet {
		return nil, false, errors.New("connection refused")
	}
	return s.Store.Get(ctx, id)
}

func (s *brokenStore) Put(ctx context.Context, a *RiskAssessment) error {
	if s.failPut {
		return errors.New("connection refused")
	}
	return s.Store.Put(ctx, a)
}

func newTestOrchestrator(t *testing.T, provider SignalProvider, store Store) *Orchestrator {
	t.Helper()
	scorer := newTestScorer(t)
	return NewOrchestrator(provider, scorer, store, OrchestratorConfig{Workers: 4}, zerolog.Nop())
}

// ── Assess ──

func TestAssess_FetchesAtMostOnceWhenFresh(t *testing.T) {
	provider := newStubProvider()
	id := uuid.New()
	provider.add(id, &HealthSignalSnapshot{Age: intPtr(50), BMI: floatPtr(31)})

	orch := newTestOrchestrator(t, provider, NewMemoryStore())

	first, err := orch.Assess(context.Background(), id, false)
	if err != nil {
		t.Fatalf("first Assess: %v", err)
	}
	second, err := orch.Assess(context.Background(), id, false)
	if err != nil {
		t.Fatalf("second Assess: %v", err)
	}

	if provider.callCount(id) != 1 {
		t.Errorf("provider fetched %d times, want 1", provider.callCount(id))
	}
	if !second.AssessedAt.Equal(first.AssessedAt) {
		t.Errorf("second call recomputed: assessedAt %v vs %v", second.AssessedAt, first.AssessedAt)
	}
}

func TestAssess_ForceRecomputes(t *testing.T) {
	provider := newStubProvider()
	id := uuid.New()
	provider.add(id, &HealthSignalSnapshot{Age: intPtr(50)})

	orch := newTestOrchestrator(t, provider, NewMemoryStore())

	if _, err := orch.Assess(context.Background(), id, false); err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if _, err := orch.Assess(context.Background(), id, true); err != nil {
		t.Fatalf("forced Assess: %v", err)
	}

	if provider.callCount(id) != 2 {
		t.Errorf("provider fetched %d times, want 2 with force", provider.callCount(id))
	}
}

func TestAssess_StaleRecomputes(t *testing.T) {
	provider := newStubProvider()
	id := uuid.New()
	provider.add(id, &HealthSignalSnapshot{Age: intPtr(50)})

	store := NewMemoryStore()
	orch := newTestOrchestrator(t, provider, store)

	// Seed an assessment whose screening date has already arrived.
	stale := testAssessment(id, 30)
	stale.AssessedAt = time.Now().Add(-48 * time.Hour)
	stale.NextScreeningDate = time.Now().Add(-24 * time.Hour)
	if err := store.Put(context.Background(), stale); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := orch.Assess(context.Background(), id, false)
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if provider.callCount(id) != 1 {
		t.Errorf("provider fetched %d times, want 1 for stale assessment", provider.callCount(id))
	}
	if !got.AssessedAt.After(stale.AssessedAt) {
		t.Error("stale assessment was not recomputed")
	}
}

func TestAssess_SignalFailure(t *testing.T) {
	provider := newStubProvider()
	id := uuid.New()
	provider.fail[id] = errors.New("upstream down")

	orch := newTestOrchestrator(t, provider, NewMemoryStore())

	_, err := orch.Assess(context.Background(), id, false)
	if CodeOf(err) != CodeSignalUnavailable {
		t.Errorf("code = %q, want signal_unavailable", CodeOf(err))
	}
}

func TestAssess_StoreReadFailureIsFatal(t *testing.T) {
	provider := newStubProvider()
	id := uuid.New()
	provider.add(id, &HealthSignalSnapshot{Age: intPtr(50)})

	orch := newTestOrchestrator(t, provider, &brokenStore{Store: NewMemoryStore(), failGet: true})

	_, err := orch.Assess(context.Background(), id, false)
	if CodeOf(err) != CodeStoreUnavailable {
		t.Errorf("code = %q, want store_unavailable", CodeOf(err))
	}
	if provider.callCount(id) != 0 {
		t.Error("provider should not be consulted when the store is unreadable")
	}
}

// ── classify ──

func TestClassify(t *testing.T) {
	orch := newTestOrchestrator(t, newStubProvider(), NewMemoryStore())

	fresh := testAssessment(uuid.New(), 30)
	fresh.AssessedAt = time.Now()
	fresh.NextScreeningDate = time.Now().Add(90 * 24 * time.Hour)

	stale := testAssessment(uuid.New(), 30)
	stale.AssessedAt = time.Now().Add(-time.Hour)
	stale.NextScreeningDate = time.Now().Add(-time.Minute)

	cases := []struct {
		name     string
		existing *RiskAssessment
		found    bool
		force    bool
		want     assessmentState
	}{
		{"missing", nil, false, false, stateMissing},
		{"missing wins over force", nil, false, true, stateMissing},
		{"forced", fresh, true, true, stateForced},
		{"stale", stale, true, false, stateStale},
		{"fresh", fresh, true, false, stateFresh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := orch.classify(tc.existing, tc.found, tc.force); got != tc.want {
				t.Errorf("classify() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestIsStale_MaxAgeCeiling(t *testing.T) {
	orch := newTestOrchestrator(t, newStubProvider(), NewMemoryStore())

	// Screening date far in the future, but the record predates the age cap.
	a := testAssessment(uuid.New(), 10)
	a.AssessedAt = time.Now().Add(-800 * time.Hour)
	a.NextScreeningDate = time.Now().Add(365 * 24 * time.Hour)

	if !orch.IsStale(a) {
		t.Error("assessment beyond the max age cap should be stale")
	}
}

// ── AssessMany ──

func TestAssessMany_FailureIsolation(t *testing.T) {
	provider := newStubProvider()
	good1, good2, bad := uuid.New(), uuid.New(), uuid.New()
	provider.add(good1, &HealthSignalSnapshot{Age: intPtr(50)})
	provider.add(good2, &HealthSignalSnapshot{Age: intPtr(65), HbA1c: floatPtr(7)})
	provider.fail[bad] = errors.New("record service timeout")

	orch := newTestOrchestrator(t, provider, NewMemoryStore())

	results, failures, err := orch.AssessMany(context.Background(), []uuid.UUID{good1, bad, good2}, false)
	if err != nil {
		t.Fatalf("AssessMany: %v", err)
	}

	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
	if _, ok := results[bad]; ok {
		t.Error("failing patient must not appear in results")
	}
	if len(failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(failures))
	}
	if failures[bad] == nil || failures[bad].Code != CodeSignalUnavailable {
		t.Errorf("failure = %+v, want signal_unavailable for %s", failures[bad], bad)
	}
}

func TestAssessMany_IdempotentWithoutForce(t *testing.T) {
	provider := newStubProvider()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		provider.add(id, &HealthSignalSnapshot{Age: intPtr(50)})
	}

	orch := newTestOrchestrator(t, provider, NewMemoryStore())

	first, _, err := orch.AssessMany(context.Background(), ids, false)
	if err != nil {
		t.Fatalf("first AssessMany: %v", err)
	}
	second, _, err := orch.AssessMany(context.Background(), ids, false)
	if err != nil {
		t.Fatalf("second AssessMany: %v", err)
	}

	for _, id := range ids {
		if provider.callCount(id) != 1 {
			t.Errorf("patient %s fetched %d times, want 1", id, provider.callCount(id))
		}
		if first[id].FromCache {
			t.Errorf("patient %s: first pass should recompute", id)
		}
		if !second[id].FromCache {
			t.Errorf("patient %s: second pass should hit cache", id)
		}
	}
}

func TestAssessMany_StoreFailureAbortsBatch(t *testing.T) {
	provider := newStubProvider()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	for _, id := range ids {
		provider.add(id, &HealthSignalSnapshot{Age: intPtr(50)})
	}

	orch := newTestOrchestrator(t, provider, &brokenStore{Store: NewMemoryStore(), failPut: true})

	_, _, err := orch.AssessMany(context.Background(), ids, false)
	if CodeOf(err) != CodeStoreUnavailable {
		t.Errorf("code = %q, want store_unavailable", CodeOf(err))
	}
}

func TestAssessMany_Cancellation(t *testing.T) {
	provider := newStubProvider()
	ids := make([]uuid.UUID, 20)
	for i := range ids {
		ids[i] = uuid.New()
		provider.add(ids[i], &HealthSignalSnapshot{Age: intPtr(50)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := newTestOrchestrator(t, provider, NewMemoryStore())
	_, _, err := orch.AssessMany(ctx, ids, false)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAssessMany_DeduplicatesIDs(t *testing.T) {
	provider := newStubProvider()
	id := uuid.New()
	provider.add(id, &HealthSignalSnapshot{Age: intPtr(50)})

	orch := newTestOrchestrator(t, provider, NewMemoryStore())

	results, _, err := orch.AssessMany(context.Background(), []uuid.UUID{id, id, id, uuid.Nil}, true)
	if err != nil {
		t.Fatalf("AssessMany: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1 after dedupe", len(results))
	}
	if provider.callCount(id) != 1 {
		t.Errorf("patient fetched %d times, want 1", provider.callCount(id))
	}
}
