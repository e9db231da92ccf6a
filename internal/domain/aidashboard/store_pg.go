package aidashboard

import (
	"context"
	"encoding/json"

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

type storePG struct{ pool *pgxpool.Pool }

// NewStorePG returns a Postgres-backed Store. The upsert keyed on patient_id
// guarantees at most one current assessment per patient.
func NewStorePG(pool *pgxpool.Pool) Store { return &storePG{pool: pool} }

func (s *storePG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

const assessmentCols = `patient_id, risk_score, risk_level, urgency_level,
	contributing_factors, recommendations, next_screening_date, assessed_at, ruleset_version`

func scanAssessment(row pgx.Row) (*RiskAssessment, error) {
	var (
		a           RiskAssessment
		factorsJSON []byte
		recsJSON    []byte
	)
	err := row.Scan(&a.PatientID, &a.RiskScore, &a.RiskLevel, &a.UrgencyLevel,
		&factorsJSON, &recsJSON, &a.NextScreeningDate, &a.AssessedAt, &a.AssessedFromVersion)
	if err != nil {
		return nil, err
	}
	if len(factorsJSON) > 0 {
		if err := json.Unmarshal(factorsJSON, &a.ContributingFactors); err != nil {
			return nil, err
		}
	}
	if len(recsJSON) > 0 {
		if err := json.Unmarshal(recsJSON, &a.Recommendations); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func (s *storePG) Get(ctx context.Context, patientID uuid.UUID) (*RiskAssessment, bool, error) {
	a, err := scanAssessment(s.conn(ctx).QueryRow(ctx,
		`SELECT `+assessmentCols+` FROM ai_risk_assessment WHERE patient_id = $1`, patientID))
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

func (s *storePG) GetMany(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]*RiskAssessment, error) {
	out := make(map[uuid.UUID]*RiskAssessment, len(patientIDs))
	if len(patientIDs) == 0 {
		return out, nil
	}
	rows, err := s.conn(ctx).Query(ctx,
		`SELECT `+assessmentCols+` FROM ai_risk_assessment WHERE patient_id = ANY($1)`, patientIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out[a.PatientID] = a
	}
	return out, rows.Err()
}

func (s *storePG) Put(ctx context.Context, assessment *RiskAssessment) error {
	if assessment == nil {
		return InvalidInput("nil assessment")
	}
	factorsJSON, err := json.Marshal(assessment.ContributingFactors)
	if err != nil {
		return err
	}
	recsJSON, err := json.Marshal(assessment.Recommendations)
	if err != nil {
		return err
	}

	_, err = s.conn(ctx).Exec(ctx, `
		INSERT INTO ai_risk_assessment (patient_id, risk_score, risk_level, urgency_level,
			contributing_factors, recommendations, next_screening_date, assessed_at, ruleset_version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (patient_id) DO UPDATE SET
			risk_score = EXCLUDED.risk_score,
			risk_level = EXCLUDED.risk_level,
			urgency_level = EXCLUDED.urgency_level,
			contributing_factors = EXCLUDED.contributing_factors,
			recommendations = EXCLUDED.recommendations,
			next_screening_date = EXCLUDED.next_screening_date,
			assessed_at = EXCLUDED.assessed_at,
			ruleset_version = EXCLUDED.ruleset_version,
			updated_at = NOW()`,
		assessment.PatientID, assessment.RiskScore, assessment.RiskLevel, assessment.UrgencyLevel,
		factorsJSON, recsJSON, assessment.NextScreeningDate, assessment.AssessedAt, assessment.AssessedFromVersion)
	return err
}
