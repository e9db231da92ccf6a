package aidashboard

import (
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/emr/internal/domain/patient"
)

// RiskLevel is the coarse risk category derived from a numeric risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"

	// Synthetic filter values. Never stored on an assessment.
	RiskNoData   RiskLevel = "no_data"
	RiskReassess RiskLevel = "reassess"
)

// Valid reports whether l is a storable risk level.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskModerate, RiskHigh, RiskVeryHigh:
		return true
	}
	return false
}

// ValidFilter reports whether l is usable as a dashboard filter value,
// including the synthetic no_data and reassess tiers.
func (l RiskLevel) ValidFilter() bool {
	return l.Valid() || l == RiskNoData || l == RiskReassess
}

// UrgencyLevel is the recommended response speed, distinct from risk level.
type UrgencyLevel string

const (
	UrgencyRoutine   UrgencyLevel = "routine"
	UrgencySoon      UrgencyLevel = "soon"
	UrgencyPrompt    UrgencyLevel = "prompt"
	UrgencyUrgent    UrgencyLevel = "urgent"
	UrgencyImmediate UrgencyLevel = "immediate"
)

// urgencyOrder ranks urgency levels from least to most acute.
var urgencyOrder = []UrgencyLevel{
	UrgencyRoutine, UrgencySoon, UrgencyPrompt, UrgencyUrgent, UrgencyImmediate,
}

// Escalate returns the next more acute urgency level, saturating at immediate.
func (u UrgencyLevel) Escalate() UrgencyLevel {
	for i, lvl := range urgencyOrder {
		if lvl == u && i < len(urgencyOrder)-1 {
			return urgencyOrder[i+1]
		}
	}
	return u
}

// HealthSignalSnapshot holds the demographic and clinical inputs for one
// assessment. Built per assessment, never mutated after construction. Missing
// optional values are nil and contribute zero weight to the score.
type HealthSignalSnapshot struct {
	PatientID uuid.UUID

	Age *int
	Sex *string

	HbA1c          *float64 // percent
	HbA1cDate      *time.Time
	FastingGlucose *float64 // mg/dL
	GlucoseDate    *time.Time

	BMI      *float64
	WeightKg *float64
	HeightCm *float64

	SystolicBP  *int
	DiastolicBP *int

	FamilyHistoryDiabetes      bool
	Smoker                     bool
	LowActivity                bool
	GestationalDiabetesHistory bool
	HypertensionDx             bool
}

// EffectiveBMI returns the snapshot's BMI, deriving it from weight and height
// when no direct measurement is present.
func (s *HealthSignalSnapshot) EffectiveBMI() (float64, bool) {
	if s.BMI != nil {
		return *s.BMI, true
	}
	if s.WeightKg != nil && s.HeightCm != nil && *s.HeightCm > 0 {
		m := *s.HeightCm / 100
		return *s.WeightKg / (m * m), true
	}
	return 0, false
}

// ContributingFactor describes one factor that drove a risk score.
type ContributingFactor struct {
	Factor       string  `json:"factor"`
	Description  string  `json:"description"`
	Contribution float64 `json:"contribution"`
}

// RiskAssessment is the current assessment record for one patient. A patient
// has at most one current assessment; each reassessment supersedes the last.
type RiskAssessment struct {
	PatientID           uuid.UUID            `json:"patientId"`
	RiskScore           int                  `json:"riskScore"`
	RiskLevel           RiskLevel            `json:"riskLevel"`
	UrgencyLevel        UrgencyLevel         `json:"urgencyLevel"`
	ContributingFactors []ContributingFactor `json:"contributingFactors"`
	Recommendations     []string             `json:"recommendations"`
	NextScreeningDate   time.Time            `json:"nextScreeningDate"`
	AssessedAt          time.Time            `json:"assessedAt"`
	AssessedFromVersion string               `json:"assessedFromVersion"`
}

// Clone returns a deep copy so stored records are never shared with callers.
func (a *RiskAssessment) Clone() *RiskAssessment {
	if a == nil {
		return nil
	}
	cp := *a
	cp.ContributingFactors = append([]ContributingFactor(nil), a.ContributingFactors...)
	cp.Recommendations = append([]string(nil), a.Recommendations...)
	return &cp
}

// RiskStats is the per-tier patient count, including the synthetic no_data
// bucket for patients never assessed.
type RiskStats struct {
	Low      int `json:"low"`
	Moderate int `json:"moderate"`
	High     int `json:"high"`
	VeryHigh int `json:"very_high"`
	NoData   int `json:"no_data"`
}

// PatientRisk pairs a patient's demographics with their current assessment.
// DiabetesRisk is null for patients never assessed.
type PatientRisk struct {
	ID           uuid.UUID       `json:"id"`
	Demographics patient.Ref     `json:"demographics"`
	DiabetesRisk *RiskAssessment `json:"diabetesRisk"`
}

// OverviewStats is the population block of a dashboard overview.
type OverviewStats struct {
	TotalPatients int       `json:"totalPatients"`
	RiskStats     RiskStats `json:"riskStats"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// OverviewSummary is the aggregate block of a dashboard overview.
type OverviewSummary struct {
	AverageRiskScore float64 `json:"averageRiskScore"`
	NeedsFollowUp    int     `json:"needsFollowUp"`
}

// DashboardOverview is computed per request and never persisted.
type DashboardOverview struct {
	Overview OverviewStats   `json:"overview"`
	Summary  OverviewSummary `json:"summary"`
	Patients []PatientRisk   `json:"patients"`
}
