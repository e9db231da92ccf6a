package clinical

import (
	"time"

	"github.com/google/uuid"
)

// Observation codes consumed by the risk engine.
const (
	CodeHbA1c          = "hba1c"
	CodeFastingGlucose = "glucose_fasting"
)

// LabResult is the most recent lab value for one observation code.
type LabResult struct {
	ID          uuid.UUID `db:"id"`
	PatientID   uuid.UUID `db:"patient_id"`
	Code        string    `db:"code"`
	Value       float64   `db:"value"`
	Unit        string    `db:"unit"`
	CollectedAt time.Time `db:"collected_at"`
}

// Vitals is the most recent vital signs reading for a patient.
type Vitals struct {
	PatientID   uuid.UUID `db:"patient_id"`
	SystolicBP  *int      `db:"systolic_bp"`
	DiastolicBP *int      `db:"diastolic_bp"`
	HeightCm    *float64  `db:"height_cm"`
	WeightKg    *float64  `db:"weight_kg"`
	BMI         *float64  `db:"bmi"`
	RecordedAt  time.Time `db:"recorded_at"`
}

// RiskFlags are the chart-level risk markers recorded for a patient.
type RiskFlags struct {
	PatientID                  uuid.UUID `db:"patient_id"`
	FamilyHistoryDiabetes      bool      `db:"family_history_diabetes"`
	Smoker                     bool      `db:"smoker"`
	LowActivity                bool      `db:"low_activity"`
	GestationalDiabetesHistory bool      `db:"gestational_diabetes_history"`
	HypertensionDx             bool      `db:"hypertension_dx"`
}
