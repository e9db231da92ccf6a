package clinical

import (
	"context"

	"github.com/google/uuid"
)

// Repository provides read access to a patient's clinical record. Absent data
// is reported as a nil result, not an error; the risk engine treats missing
// signals as zero-weight.
type Repository interface {
	LatestLab(ctx context.Context, patientID uuid.UUID, code string) (*LabResult, error)
	LatestVitals(ctx context.Context, patientID uuid.UUID) (*Vitals, error)
	RiskFlags(ctx context.Context, patientID uuid.UUID) (*RiskFlags, error)
}
