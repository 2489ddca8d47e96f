package trust

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aesthetiq/aesthetiq/internal/platform/apperr"
)

type Service struct {
	events  EventRepository
	scores  ScoreStore
	hashKey []byte
	logger  zerolog.Logger
}

func NewService(events EventRepository, scores ScoreStore, hashKey []byte, logger zerolog.Logger) *Service {
	return &Service{events: events, scores: scores, hashKey: hashKey, logger: logger}
}

// HashPatientID derives the one-way ledger identifier for a patient.
// HMAC-SHA256 with a server-side key: stable for de-duplication, not
// reversible without the key.
func (s *Service) HashPatientID(patientID uuid.UUID) string {
	mac := hmac.New(sha256.New, s.hashKey)
	mac.Write([]byte(patientID.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// RecordEvent appends a trust event and synchronously refreshes the stored
// score. The refresh is best-effort: the stored column is a cache over the
// ledger, so a failed refresh is logged and corrected by the next
// recomputation rather than failing the ingestion.
func (s *Service) RecordEvent(ctx context.Context, eventType string, practitionerID uuid.UUID, patientID *uuid.UUID, metadata json.RawMessage) (*TrustEvent, error) {
	weight, ok := Weights[eventType]
	if !ok {
		return nil, apperr.Validation("unknown event type", "event_type")
	}
	if practitionerID == uuid.Nil {
		return nil, apperr.Validation("missing required fields", "practitioner_id")
	}

	e := &TrustEvent{
		EventType:      eventType,
		PractitionerID: practitionerID,
		EventWeight:    weight,
		Metadata:       metadata,
	}
	if patientID != nil {
		hash := s.HashPatientID(*patientID)
		e.PatientIDHash = &hash
	}

	if err := s.events.Append(ctx, e); err != nil {
		return nil, err
	}

	if err := s.RefreshScore(ctx, practitionerID); err != nil {
		s.logger.Warn().Err(err).
			Str("practitioner_id", practitionerID.String()).
			Msg("trust score refresh failed; will converge on next recomputation")
	}

	return e, nil
}

// Score recomputes the trust score from the ledger. Deterministic for a
// fixed event set; calling it any number of times yields the same value.
func (s *Service) Score(ctx context.Context, practitionerID uuid.UUID) (int, error) {
	sum, err := s.events.SumWeights(ctx, practitionerID)
	if err != nil {
		return 0, err
	}
	return ClampScore(sum), nil
}

// RefreshScore materializes the ledger aggregate into the practitioner row.
func (s *Service) RefreshScore(ctx context.Context, practitionerID uuid.UUID) error {
	score, err := s.Score(ctx, practitionerID)
	if err != nil {
		return err
	}
	return s.scores.SetTrustScore(ctx, practitionerID, score)
}

// CareEventCount returns the number of care-completion events within the
// rolling window ending now. Signal feed for the badge engine.
func (s *Service) CareEventCount(ctx context.Context, practitionerID uuid.UUID, window time.Duration) (int, error) {
	return s.events.CountByTypes(ctx, practitionerID, CareEventTypes, time.Now().Add(-window))
}

// TotalEventCount returns the practitioner's all-time event volume.
func (s *Service) TotalEventCount(ctx context.Context, practitionerID uuid.UUID) (int, error) {
	return s.events.CountAll(ctx, practitionerID)
}

func (s *Service) ListEvents(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*TrustEvent, int, error) {
	return s.events.ListByPractitioner(ctx, practitionerID, limit, offset)
}
