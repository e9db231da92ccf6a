package clinical

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meditrack/emr/internal/domain/aidashboard"
	"github.com/meditrack/emr/internal/domain/patient"
)

// Provider assembles a patient's health signal snapshot from the patient
// registry and the clinical record. It implements the risk engine's signal
// provider contract.
type Provider struct {
	patients patient.Repository
	clinical Repository
	now      func() time.Time
}

func NewProvider(patients patient.Repository, clinical Repository) *Provider {
	return &Provider{patients: patients, clinical: clinical, now: time.Now}
}

// Snapshot fetches demographics, latest labs, latest vitals and risk flags
// for one patient. An unknown patient or any fetch failure is reported as
// signal_unavailable; missing individual values are left nil so they simply
// carry no weight.
func (p *Provider) Snapshot(ctx context.Context, patientID uuid.UUID) (*aidashboard.HealthSignalSnapshot, error) {
	pt, err := p.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, aidashboard.SignalUnavailable(err, "lookup patient %s", patientID)
	}

	snap := &aidashboard.HealthSignalSnapshot{
		PatientID: patientID,
		Sex:       pt.Gender,
	}
	if age := pt.AgeAt(p.now()); age >= 0 {
		snap.Age = &age
	}

	hba1c, err := p.clinical.LatestLab(ctx, patientID, CodeHbA1c)
	if err != nil {
		return nil, aidashboard.SignalUnavailable(err, "fetch HbA1c for %s", patientID)
	}
	if hba1c != nil {
		v, at := hba1c.Value, hba1c.CollectedAt
		snap.HbA1c, snap.HbA1cDate = &v, &at
	}

	glucose, err := p.clinical.LatestLab(ctx, patientID, CodeFastingGlucose)
	if err != nil {
		return nil, aidashboard.SignalUnavailable(err, "fetch glucose for %s", patientID)
	}
	if glucose != nil {
		v, at := glucose.Value, glucose.CollectedAt
		snap.FastingGlucose, snap.GlucoseDate = &v, &at
	}

	vitals, err := p.clinical.LatestVitals(ctx, patientID)
	if err != nil {
		return nil, aidashboard.SignalUnavailable(err, "fetch vitals for %s", patientID)
	}
	if vitals != nil {
		snap.SystolicBP = vitals.SystolicBP
		snap.DiastolicBP = vitals.DiastolicBP
		snap.BMI = vitals.BMI
		snap.WeightKg = vitals.WeightKg
		snap.HeightCm = vitals.HeightCm
	}

	flags, err := p.clinical.RiskFlags(ctx, patientID)
	if err != nil {
		return nil, aidashboard.SignalUnavailable(err, "fetch risk flags for %s", patientID)
	}
	if flags != nil {
		snap.FamilyHistoryDiabetes = flags.FamilyHistoryDiabetes
		snap.Smoker = flags.Smoker
		snap.LowActivity = flags.LowActivity
		snap.GestationalDiabetesHistory = flags.GestationalDiabetesHistory
		snap.HypertensionDx = flags.HypertensionDx
	}

	return snap, nil
}

var _ aidashboard.SignalProvider = (*Provider)(nil)
