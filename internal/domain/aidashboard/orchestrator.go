package aidashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SignalProvider supplies a patient's demographic and clinical inputs on
// request. Read-only from the engine's perspective.
type SignalProvider interface {
	Snapshot(ctx context.Context, patientID uuid.UUID) (*HealthSignalSnapshot, error)
}

// OrchestratorConfig tunes assessment reuse and bulk concurrency.
type OrchestratorConfig struct {
	// MaxAge is the hard ceiling on assessment age. An assessment older than
	// this is stale even before its own screening date.
	MaxAge time.Duration

	// Workers bounds the bulk worker pool.
	Workers int

	// FetchTimeout caps a single patient's signal fetch.
	FetchTimeout time.Duration
}

// BulkResult is one patient's outcome within a bulk assessment, recording
// whether the assessment was recomputed or served from cache.
type BulkResult struct {
	Assessment *RiskAssessment
	FromCache  bool
}

// Orchestrator decides when a stored assessment is reusable and when it must
// be recomputed, and drives single and bulk assessment.
type Orchestrator struct {
	provider SignalProvider
	scorer   *Scorer
	store    Store
	cfg      OrchestratorConfig
	logger   zerolog.Logger
	now      func() time.Time
}

// NewOrchestrator wires the scoring pipeline. Zero config fields get
// conservative defaults.
func NewOrchestrator(provider SignalProvider, scorer *Scorer, store Store, cfg OrchestratorConfig, logger zerolog.Logger) *Orchestrator {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 720 * time.Hour
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	return &Orchestrator{
		provider: provider,
		scorer:   scorer,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// assessmentState is the explicit reuse decision for one patient, keeping the
// four cases independently testable.
type assessmentState int

const (
	stateMissing assessmentState = iota
	stateForced
	stateStale
	stateFresh
)

func (o *Orchestrator) classify(existing *RiskAssessment, found, force bool) assessmentState {
	switch {
	case !found:
		return stateMissing
	case force:
		return stateForced
	case o.IsStale(existing):
		return stateStale
	default:
		return stateFresh
	}
}

// IsStale reports whether an assessment should no longer be served from
// cache: its own screening date has arrived, or it exceeds the hard age cap.
func (o *Orchestrator) IsStale(a *RiskAssessment) bool {
	now := o.now()
	if !now.Before(a.NextScreeningDate) {
		return true
	}
	return now.Sub(a.AssessedAt) > o.cfg.MaxAge
}

// Assess returns the patient's current assessment, recomputing when none is
// stored, the stored one is stale, or force is set. A fresh stored assessment
// is returned without touching the signal provider.
func (o *Orchestrator) Assess(ctx context.Context, patientID uuid.UUID, force bool) (*RiskAssessment, error) {
	result, err := o.assessOne(ctx, patientID, force)
	if err != nil {
		return nil, err
	}
	return result.Assessment, nil
}

func (o *Orchestrator) assessOne(ctx context.Context, patientID uuid.UUID, force bool) (BulkResult, error) {
	existing, found, err := o.store.Get(ctx, patientID)
	if err != nil {
		return BulkResult{}, StoreUnavailable(err, "read assessment for %s", patientID)
	}

	if o.classify(existing, found, force) == stateFresh {
		return BulkResult{Assessment: existing, FromCache: true}, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
	defer cancel()

	snap, err := o.provider.Snapshot(fetchCtx, patientID)
	if err != nil {
		if CodeOf(err) != "" {
			return BulkResult{}, err
		}
		return BulkResult{}, SignalUnavailable(err, "fetch signals for %s", patientID)
	}

	assessment, err := o.scorer.Score(snap, o.now())
	if err != nil {
		return BulkResult{}, err
	}

	if err := o.store.Put(ctx, assessment); err != nil {
		return BulkResult{}, StoreUnavailable(err, "write assessment for %s", patientID)
	}

	o.logger.Debug().
		Str("patient_id", patientID.String()).
		Int("risk_score", assessment.RiskScore).
		Str("risk_level", string(assessment.RiskLevel)).
		Msg("assessment computed")

	return BulkResult{Assessment: assessment}, nil
}

// AssessMany assesses each patient independently through a bounded worker
// pool. One patient's failure is reported in the failures map and never
// aborts the rest. A store failure is fatal: the batch is cancelled and the
// error returned, alongside whatever completed first. Cancellation of ctx
// stops dispatch; completed assessments remain stored and are returned.
func (o *Orchestrator) AssessMany(ctx context.Context, patientIDs []uuid.UUID, force bool) (map[uuid.UUID]BulkResult, map[uuid.UUID]*Error, error) {
	results := make(map[uuid.UUID]BulkResult)
	failures := make(map[uuid.UUID]*Error)

	ids := dedupe(patientIDs)
	if len(ids) == 0 {
		return results, failures, nil
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		fatal error
	)

	jobs := make(chan uuid.UUID)

	workers := o.cfg.Workers
	if workers > len(ids) {
		workers = len(ids)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				result, err := o.assessOne(batchCtx, id, force)

				mu.Lock()
				if err != nil {
					if CodeOf(err) == CodeStoreUnavailable {
						if fatal == nil {
							fatal = err
						}
						mu.Unlock()
						cancel()
						continue
					}
					failures[id] = AsError(err)
				} else {
					results[id] = result
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, id := range ids {
		select {
		case jobs <- id:
		case <-batchCtx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if fatal != nil {
		return results, failures, fatal
	}
	if err := ctx.Err(); err != nil {
		return results, failures, err
	}
	return results, failures, nil
}

// Cached returns whatever assessments are currently stored for the given
// patients, without triggering any recomputation.
func (o *Orchestrator) Cached(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]*RiskAssessment, error) {
	assessments, err := o.store.GetMany(ctx, patientIDs)
	if err != nil {
		return nil, StoreUnavailable(err, "read assessments")
	}
	return assessments, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
