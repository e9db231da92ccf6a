package aidashboard

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Scorer maps health signal snapshots to risk assessments. It is pure and
// deterministic: identical snapshots produce identical assessments apart from
// the assessment timestamp. It holds no mutable state and is safe for
// concurrent use.
type Scorer struct {
	rules *Ruleset
}

// NewScorer validates the ruleset and returns a scorer bound to it.
func NewScorer(rules *Ruleset) (*Scorer, error) {
	if rules == nil {
		return nil, fmt.Errorf("ruleset is required")
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ruleset: %w", err)
	}
	return &Scorer{rules: rules}, nil
}

// Ruleset returns the active scoring configuration.
func (s *Scorer) Ruleset() *Ruleset { return s.rules }

// Score computes a risk assessment from a snapshot as of the given time.
// Missing optional clinical values contribute zero weight and never cause
// failure; only structural defects return an invalid_input error.
func (s *Scorer) Score(snap *HealthSignalSnapshot, now time.Time) (*RiskAssessment, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}

	type scored struct {
		rule         FactorRule
		contribution float64
		label        string
	}

	var (
		total float64
		acute bool
		hits  []scored
	)

	for _, rule := range s.rules.Factors {
		value, ok := rule.Value(snap)
		if !ok {
			continue
		}

		severity, label := severityFor(rule.Bands, value)
		if severity == 0 {
			continue
		}

		contribution := severity * rule.Weight
		total += contribution
		if rule.AcuteMin != nil && value >= *rule.AcuteMin {
			acute = true
		}
		hits = append(hits, scored{rule: rule, contribution: contribution, label: label})
	}

	score := int(math.Round(total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	level := s.rules.LevelFor(score)
	urgency := urgencyFor(level)
	if acute {
		urgency = urgency.Escalate()
	}

	// Significant factors, largest contribution first. Table order breaks
	// ties so output stays deterministic.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].contribution > hits[j].contribution
	})

	var factors []ContributingFactor
	var recommendations []string
	seen := make(map[string]bool)
	for _, h := range hits {
		if h.contribution < s.rules.MinSignificance {
			continue
		}
		factors = append(factors, ContributingFactor{
			Factor:       h.rule.Key,
			Description:  fmt.Sprintf("%s (%s)", h.rule.Display, h.label),
			Contribution: round1(h.contribution),
		})
		if rec := h.rule.Recommendation; rec != "" && !seen[rec] && len(recommendations) < s.rules.MaxRecommendations {
			seen[rec] = true
			recommendations = append(recommendations, rec)
		}
	}

	return &RiskAssessment{
		PatientID:           snap.PatientID,
		RiskScore:           score,
		RiskLevel:           level,
		UrgencyLevel:        urgency,
		ContributingFactors: factors,
		Recommendations:     recommendations,
		NextScreeningDate:   now.Add(s.rules.ScreeningInterval(level)),
		AssessedAt:          now,
		AssessedFromVersion: s.rules.Version,
	}, nil
}

func validateSnapshot(snap *HealthSignalSnapshot) error {
	if snap == nil {
		return InvalidInput("nil snapshot")
	}
	if snap.Age != nil && (*snap.Age < 0 || *snap.Age > 130) {
		return InvalidInput("implausible age %d", *snap.Age)
	}
	if snap.HbA1c != nil && *snap.HbA1c < 0 {
		return InvalidInput("negative HbA1c %.2f", *snap.HbA1c)
	}
	if snap.FastingGlucose != nil && *snap.FastingGlucose < 0 {
		return InvalidInput("negative fasting glucose %.2f", *snap.FastingGlucose)
	}
	if snap.BMI != nil && (*snap.BMI <= 5 || *snap.BMI >= 120) {
		return InvalidInput("implausible BMI %.2f", *snap.BMI)
	}
	if snap.SystolicBP != nil && *snap.SystolicBP < 0 {
		return InvalidInput("negative systolic pressure %d", *snap.SystolicBP)
	}
	return nil
}

// severityFor returns the severity of the highest band whose threshold the
// value meets, or zero if the value is below every band.
func severityFor(bands []SeverityBand, value float64) (float64, string) {
	severity := 0.0
	label := ""
	for _, b := range bands {
		if value >= b.Min {
			severity = b.Severity
			label = b.Label
		}
	}
	return severity, label
}

func urgencyFor(level RiskLevel) UrgencyLevel {
	switch level {
	case RiskHigh:
		return UrgencyPrompt
	case RiskVeryHigh:
		return UrgencyUrgent
	default:
		return UrgencyRoutine
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
