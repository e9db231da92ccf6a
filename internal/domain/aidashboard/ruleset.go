package aidashboard

import (
	"fmt"
	"time"
)

// SeverityBand maps a factor value at or above Min to a normalized 0-1
// severity. Bands must be listed in ascending Min order; the highest matching
// band wins.
type SeverityBand struct {
	Min      float64
	Severity float64
	Label    string
}

// FactorRule is one row of the scoring table. Adding a risk factor means
// adding a row here; scoring control flow never changes.
type FactorRule struct {
	Key     string
	Display string
	Weight  float64

	// Value extracts the factor's raw value from a snapshot. ok=false means
	// the signal is absent and the factor contributes nothing.
	Value func(s *HealthSignalSnapshot) (value float64, ok bool)

	Bands []SeverityBand

	// AcuteMin, when set, marks the factor as acute at or above this raw
	// value. Acute factors escalate the urgency level by one step.
	AcuteMin *float64

	Recommendation string
}

// RiskBand assigns a risk level to an inclusive score range.
type RiskBand struct {
	Min   int
	Max   int
	Level RiskLevel
}

// Ruleset is the complete, versioned scoring configuration: the factor table,
// the score-to-level cut points, and the per-level screening intervals.
type Ruleset struct {
	Version            string
	Factors            []FactorRule
	Bands              []RiskBand
	MinSignificance    float64
	MaxRecommendations int
	ScreeningIntervals map[RiskLevel]time.Duration
}

// LevelFor returns the risk level whose band contains score.
func (r *Ruleset) LevelFor(score int) RiskLevel {
	for _, b := range r.Bands {
		if score >= b.Min && score <= b.Max {
			return b.Level
		}
	}
	// Validate guarantees full coverage; this is unreachable for 0-100 input.
	return RiskVeryHigh
}

// ScreeningInterval returns the screening interval for a risk level.
func (r *Ruleset) ScreeningInterval(level RiskLevel) time.Duration {
	if d, ok := r.ScreeningIntervals[level]; ok {
		return d
	}
	return 365 * 24 * time.Hour
}

// Validate checks structural invariants: bands form a contiguous partition of
// 0-100, every factor has a positive weight and ascending severity bands, and
// every level has a screening interval.
func (r *Ruleset) Validate() error {
	if r.Version == "" {
		return fmt.Errorf("ruleset version is required")
	}
	if len(r.Bands) == 0 {
		return fmt.Errorf("ruleset has no risk bands")
	}

	next := 0
	for i, b := range r.Bands {
		if b.Min != next {
			return fmt.Errorf("risk band %d starts at %d, want %d", i, b.Min, next)
		}
		if b.Max < b.Min {
			return fmt.Errorf("risk band %d has max %d below min %d", i, b.Max, b.Min)
		}
		if !b.Level.Valid() {
			return fmt.Errorf("risk band %d has invalid level %q", i, b.Level)
		}
		next = b.Max + 1
	}
	if next != 101 {
		return fmt.Errorf("risk bands end at %d, want 100", next-1)
	}

	for _, f := range r.Factors {
		if f.Key == "" {
			return fmt.Errorf("factor with empty key")
		}
		if f.Weight <= 0 {
			return fmt.Errorf("factor %s has non-positive weight", f.Key)
		}
		if f.Value == nil {
			return fmt.Errorf("factor %s has no value extractor", f.Key)
		}
		if len(f.Bands) == 0 {
			return fmt.Errorf("factor %s has no severity bands", f.Key)
		}
		for i := 1; i < len(f.Bands); i++ {
			if f.Bands[i].Min <= f.Bands[i-1].Min {
				return fmt.Errorf("factor %s severity bands not ascending", f.Key)
			}
		}
		for _, b := range f.Bands {
			if b.Severity < 0 || b.Severity > 1 {
				return fmt.Errorf("factor %s severity out of [0,1]", f.Key)
			}
		}
	}

	for _, lvl := range []RiskLevel{RiskLow, RiskModerate, RiskHigh, RiskVeryHigh} {
		if _, ok := r.ScreeningIntervals[lvl]; !ok {
			return fmt.Errorf("no screening interval for level %q", lvl)
		}
	}

	if r.MaxRecommendations <= 0 {
		return fmt.Errorf("max recommendations must be positive")
	}

	return nil
}

func acute(v float64) *float64 { return &v }

const day = 24 * time.Hour

// DefaultRuleset returns scoring table version 2024.1.
//
// The weights and thresholds below are placeholder defaults aligned with
// published ADA screening criteria. The table is version-stamped so a
// clinically signed-off table can replace it without code changes.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Version: "2024.1",
		Bands: []RiskBand{
			{Min: 0, Max: 24, Level: RiskLow},
			{Min: 25, Max: 49, Level: RiskModerate},
			{Min: 50, Max: 74, Level: RiskHigh},
			{Min: 75, Max: 100, Level: RiskVeryHigh},
		},
		MinSignificance:    5.0,
		MaxRecommendations: 6,
		ScreeningIntervals: map[RiskLevel]time.Duration{
			RiskLow:      365 * day,
			RiskModerate: 180 * day,
			RiskHigh:     90 * day,
			RiskVeryHigh: 30 * day,
		},
		Factors: []FactorRule{
			{
				Key:     "hba1c",
				Display: "Elevated HbA1c",
				Weight:  22,
				Value: func(s *HealthSignalSnapshot) (float64, bool) {
					if s.HbA1c == nil {
						return 0, false
					}
					return *s.HbA1c, true
				},
				Bands: []SeverityBand{
					{Min: 5.7, Severity: 0.45, Label: "prediabetic range"},
					{Min: 6.5, Severity: 1.0, Label: "diabetic range"},
				},
				AcuteMin:       acute(9.0),
				Recommendation: "Repeat HbA1c testing and review glycemic management",
			},
			{
				Key:     "fasting_glucose",
				Display: "Elevated fasting glucose",
				Weight:  18,
				Value: func(s *HealthSignalSnapshot) (float64, bool) {
					if s.FastingGlucose == nil {
						return 0, false
					}
					return *s.FastingGlucose, true
				},
				Bands: []SeverityBand{
					{Min: 100, Severity: 0.4, Label: "impaired fasting glucose"},
					{Min: 126, Severity: 1.0, Label: "diabetic range"},
				},
				AcuteMin:       acute(250),
				Recommendation: "Order confirmatory fasting plasma glucose test",
			},
			{
				Key:     "bmi",
				Display: "Elevated BMI",
				Weight:  15,
				Value: func(s *HealthSignalSnapshot) (float64, bool) {
					return s.EffectiveBMI()
				},
				Bands: []SeverityBand{
					{Min: 25, Severity: 0.4, Label: "overweight"},
					{Min: 30, Severity: 0.7, Label: "obese"},
					{Min: 35, Severity: 1.0, Label: "severely obese"},
				},
				Recommendation: "Refer to weight management and nutrition counselling",
			},
			{
				Key:     "age",
				Display: "Age-related risk",
				Weight:  12,
				Value: func(s *HealthSignalSnapshot) (float64, bool) {
					if s.Age == nil {
						return 0, false
					}
					return float64(*s.Age), true
				},
				Bands: []SeverityBand{
					{Min: 35, Severity: 0.3, Label: "over 35"},
					{Min: 45, Severity: 0.6, Label: "over 45"},
					{Min: 60, Severity: 1.0, Label: "over 60"},
				},
				Recommendation: "Schedule routine diabetes screening",
			},
			{
				Key:     "systolic_bp",
				Display: "Elevated blood pressure",
				Weight:  10,
				Value: func(s *HealthSignalSnapshot) (float64, bool) {
					if s.SystolicBP == nil {
						return 0, false
					}
					return float64(*s.SystolicBP), true
				},
				Bands: []SeverityBand{
					{Min: 130, Severity: 0.5, Label: "stage 1 hypertension"},
					{Min: 140, Severity: 1.0, Label: "stage 2 hypertension"},
				},
				AcuteMin:       acute(180),
				Recommendation: "Review blood pressure management",
			},
			{
				Key:     "family_history",
				Display: "Family history of diabetes",
				Weight:  10,
				Value: func(s *HealthSignalSnapshot) (float64, bool) {
					return 1, s.FamilyHistoryDiabetes
				},
				Bands:          []SeverityBand{{Min: 1, Severity: 1.0, Label: "first-degree relative"}},
				Recommendation: "Discuss hereditary risk and early screening",
			},
			{
				Key:     "low_activity",
				Display: "Low physical activity",
				Weight:  5,
				Value: func(s *HealthSignalSnapshot) (float64, bool) {
					return 1, s.LowActivity
				},
				Bands:          []SeverityBand{{Min: 1, Severity: 1.0, Label: "sedentary"}},
				Recommendation: "Recommend structured physical activity program",
			},
			{
				Key:     "smoking",
				Display: "Current smoker",
				Weight:  5,
				Value: func(s *HealthSignalSnapshot) (float64, bool) {
					return 1, s.Smoker
				},
				Bands:          []SeverityBand{{Min: 1, Severity: 1.0, Label: "active smoker"}},
				Recommendation: "Offer smoking cessation support",
			},
			{
				Key:     "gestational_history",
				Display: "History of gestational diabetes",
				Weight:  3,
				Value: func(s *HealthSignalSnapshot) (float64, bool) {
					return 1, s.GestationalDiabetesHistory
				},
				Bands:          []SeverityBand{{Min: 1, Severity: 1.0, Label: "prior gestational diabetes"}},
				Recommendation: "Schedule routine diabetes screening",
			},
		},
	}
}
