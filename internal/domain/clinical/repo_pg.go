package clinical

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meditrack/emr/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) LatestLab(ctx context.Context, patientID uuid.UUID, code string) (*LabResult, error) {
	var lab LabResult
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, patient_id, code, value, unit, collected_at
		FROM lab_result
		WHERE patient_id = $1 AND code = $2
		ORDER BY collected_at DESC
		LIMIT 1`, patientID, code).
		Scan(&lab.ID, &lab.PatientID, &lab.Code, &lab.Value, &lab.Unit, &lab.CollectedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lab, nil
}

func (r *repoPG) LatestVitals(ctx context.Context, patientID uuid.UUID) (*Vitals, error) {
	var v Vitals
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT patient_id, systolic_bp, diastolic_bp, height_cm, weight_kg, bmi, recorded_at
		FROM vitals
		WHERE patient_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`, patientID).
		Scan(&v.PatientID, &v.SystolicBP, &v.DiastolicBP, &v.HeightCm, &v.WeightKg, &v.BMI, &v.RecordedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repoPG) RiskFlags(ctx context.Context, patientID uuid.UUID) (*RiskFlags, error) {
	var f RiskFlags
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT patient_id, family_history_diabetes, smoker, low_activity,
			gestational_diabetes_history, hypertension_dx
		FROM patient_risk_flags
		WHERE patient_id = $1`, patientID).
		Scan(&f.PatientID, &f.FamilyHistoryDiabetes, &f.Smoker, &f.LowActivity,
			&f.GestationalDiabetesHistory, &f.HypertensionDx)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
