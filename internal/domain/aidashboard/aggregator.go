package aidashboard

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/emr/internal/domain/patient"
)

// Filter narrows the dashboard population. Search matches name and MRN
// case-insensitively; RiskLevel matches the assessment tier, including the
// synthetic no_data (never assessed) and reassess (stale or missing) values.
type Filter struct {
	Search    string
	RiskLevel RiskLevel
}

// Aggregator computes dashboard overviews from a patient population and
// their current assessments. Stateless apart from its staleness policy.
type Aggregator struct {
	stale func(*RiskAssessment) bool
	now   func() time.Time
}

// NewAggregator builds an aggregator using the given staleness predicate,
// normally Orchestrator.IsStale so the dashboard's reassess tier and the
// orchestrator's recompute policy agree.
func NewAggregator(stale func(*RiskAssessment) bool) *Aggregator {
	return &Aggregator{stale: stale, now: time.Now}
}

// Summarize filters the population, then computes per-tier counts, the mean
// score over assessed patients, and the follow-up count. Safe on an empty or
// fully-unassessed population: the average defaults to 0.
func (g *Aggregator) Summarize(patients []patient.Ref, assessments map[uuid.UUID]*RiskAssessment, filter Filter) DashboardOverview {
	now := g.now()

	var (
		rows       []PatientRisk
		stats      RiskStats
		scoreSum   float64
		scoreCount int
		followUp   int
	)

	for _, p := range patients {
		assessment := assessments[p.ID]
		if !g.matches(p, assessment, filter) {
			continue
		}

		rows = append(rows, PatientRisk{
			ID:           p.ID,
			Demographics: p,
			DiabetesRisk: assessment,
		})

		if assessment == nil {
			stats.NoData++
			continue
		}

		switch assessment.RiskLevel {
		case RiskLow:
			stats.Low++
		case RiskModerate:
			stats.Moderate++
		case RiskHigh:
			stats.High++
		case RiskVeryHigh:
			stats.VeryHigh++
		default:
			stats.NoData++
		}

		scoreSum += float64(assessment.RiskScore)
		scoreCount++
		if !now.Before(assessment.NextScreeningDate) {
			followUp++
		}
	}

	average := 0.0
	if scoreCount > 0 {
		average = scoreSum / float64(scoreCount)
	}

	if rows == nil {
		rows = []PatientRisk{}
	}

	return DashboardOverview{
		Overview: OverviewStats{
			TotalPatients: len(rows),
			RiskStats:     stats,
			LastUpdated:   now,
		},
		Summary: OverviewSummary{
			AverageRiskScore: average,
			NeedsFollowUp:    followUp,
		},
		Patients: rows,
	}
}

func (g *Aggregator) matches(p patient.Ref, assessment *RiskAssessment, filter Filter) bool {
	if filter.Search != "" {
		q := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(p.FullName), q) &&
			!strings.Contains(strings.ToLower(p.MRN), q) &&
			!strings.Contains(strings.ToLower(p.ID.String()), q) {
			return false
		}
	}

	switch filter.RiskLevel {
	case "":
		return true
	case RiskNoData:
		return assessment == nil
	case RiskReassess:
		return assessment == nil || g.stale(assessment)
	default:
		return assessment != nil && assessment.RiskLevel == filter.RiskLevel
	}
}
