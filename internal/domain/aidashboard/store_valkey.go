package aidashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

type valkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore returns a Store backed by a Valkey-compatible database.
// Records are stored as JSON values. A ttl of zero keeps records until
// overwritten; a positive ttl bounds how long a superseded deployment's
// assessments can linger.
func NewValkeyStore(client valkey.Client, ttl time.Duration) Store {
	return &valkeyStore{client: client, prefix: "risk:assessment", ttl: ttl}
}

func (s *valkeyStore) key(patientID uuid.UUID) string {
	return s.prefix + ":" + patientID.String()
}

func (s *valkeyStore) Get(ctx context.Context, patientID uuid.UUID) (*RiskAssessment, bool, error) {
	cmd := s.client.B().Get().Key(s.key(patientID)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var a RiskAssessment
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, false, err
	}
	return &a, true, nil
}

func (s *valkeyStore) GetMany(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]*RiskAssessment, error) {
	out := make(map[uuid.UUID]*RiskAssessment, len(patientIDs))
	if len(patientIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(patientIDs))
	for i, id := range patientIDs {
		keys[i] = s.key(id)
	}

	cmd := s.client.B().Mget().Key(keys...).Build()
	arr, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return out, nil
		}
		return nil, err
	}

	for i, entry := range arr {
		if i >= len(patientIDs) {
			break
		}
		payload, err := entry.ToString()
		if err != nil {
			if valkey.IsValkeyNil(err) {
				continue
			}
			return nil, err
		}
		var a RiskAssessment
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, err
		}
		out[patientIDs[i]] = &a
	}
	return out, nil
}

func (s *valkeyStore) Put(ctx context.Context, assessment *RiskAssessment) error {
	if assessment == nil {
		return InvalidInput("nil assessment")
	}
	payload, err := json.Marshal(assessment)
	if err != nil {
		return err
	}

	builder := s.client.B().Set().Key(s.key(assessment.PatientID)).Value(string(payload))
	var cmd valkey.Completed
	if s.ttl > 0 {
		ttl := s.ttl
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

var _ Store = (*valkeyStore)(nil)
