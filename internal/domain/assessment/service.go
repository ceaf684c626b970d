package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinimetric/clinimetric/internal/domain/catalog"
)

// ErrNotSessionOwner is returned when a staff member other than the
// session's administrator drives it.
var ErrNotSessionOwner = errors.New("session belongs to another administrator")

// TxRunner executes fn inside a database transaction. A nil runner executes
// fn directly, which is what the in-memory test repositories need.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Service drives assessment sessions: creation, configuration, response
// capture, navigation and scoring. The catalog service supplies published
// definitions; the patient directory supplies the minimal patient identity.
type Service struct {
	sessions SessionRepository
	results  ResultRepository
	patients PatientDirectory
	catalog  *catalog.Service
	engine   *Engine
	tx       TxRunner
}

func NewService(sessions SessionRepository, results ResultRepository, patients PatientDirectory, cat *catalog.Service, engine *Engine, tx TxRunner) *Service {
	if engine == nil {
		engine = NewEngine(nil)
	}
	if tx == nil {
		tx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{sessions: sessions, results: results, patients: patients, catalog: cat, engine: engine, tx: tx}
}

// StartSession opens a new session against a published scale. The session
// starts on the config card; nothing is administered yet.
func (s *Service) StartSession(ctx context.Context, scaleID uuid.UUID, administratorID string) (*Session, error) {
	scale, err := s.catalog.AdministrableScale(ctx, scaleID)
	if err != nil {
		return nil, err
	}
	sess := NewSession(scale, administratorID)
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *Service) ListSessions(ctx context.Context, limit, offset int) ([]*Session, int, error) {
	return s.sessions.List(ctx, limit, offset)
}

func (s *Service) ListSessionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	return s.sessions.ListByPatient(ctx, patientID, limit, offset)
}

// owned loads a session and verifies the caller administers it. An empty
// actor is a trusted internal caller, used by remote redemption where the
// patient drives their own session.
func (s *Service) owned(ctx context.Context, id uuid.UUID, actor string) (*Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor != "" && sess.AdministratorID != actor {
		return nil, ErrNotSessionOwner
	}
	return sess, nil
}

// ConfigureInput carries the configuration choices for a session.
type ConfigureInput struct {
	PatientID uuid.UUID
	Mode      string
	Delivery  string
}

// ConfigureSession binds a patient from the directory and applies the
// administration choices, moving the session onto its first card.
func (s *Service) ConfigureSession(ctx context.Context, id uuid.UUID, actor string, in ConfigureInput) (*Session, error) {
	sess, err := s.owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	patient, err := s.patients.GetPatient(ctx, in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("lookup patient %s: %w", in.PatientID, err)
	}
	if err := sess.Configure(patient.ID, patient.DisplayName, in.Mode, in.Delivery); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// AcknowledgeInstructions moves a session past the instructions card.
func (s *Service) AcknowledgeInstructions(ctx context.Context, id uuid.UUID, actor string) (*Session, error) {
	sess, err := s.owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := sess.AcknowledgeInstructions(); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// RecordResponse resolves the selected option against the item's vocabulary,
// records it and advances the session.
func (s *Service) RecordResponse(ctx context.Context, id uuid.UUID, actor string, itemNumber int, value string) (*Session, error) {
	sess, err := s.owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	scale, err := s.catalog.GetScale(ctx, sess.ScaleID)
	if err != nil {
		return nil, err
	}
	item := scale.ItemByNumber(itemNumber)
	if item == nil {
		return nil, fmt.Errorf("scale %s has no item %d: %w", scale.Code, itemNumber, ErrInvalidTransition)
	}
	opt, err := catalog.OptionByValue(scale, item, value)
	if err != nil {
		return nil, err
	}
	resp := RecordedResponse{
		ItemNumber: itemNumber,
		Value:      opt.Value,
		Label:      opt.Label,
		Score:      opt.Score,
	}
	if err := sess.Record(resp); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Back navigates the session to the previous item.
func (s *Service) Back(ctx context.Context, id uuid.UUID, actor string) (*Session, error) {
	sess, err := s.owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := sess.Back(); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// CompleteAndScore scores a session that has answered every item. Scoring a
// session that was already completed returns the stored result unchanged.
// When the definition's bands fail to cover the total, the defect-flagged
// result is still persisted and returned together with
// ErrNoMatchingInterpretation so the operator sees the failure, never a
// guessed severity.
func (s *Service) CompleteAndScore(ctx context.Context, id uuid.UUID, actor string) (*ScoredResult, error) {
	sess, err := s.owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusCompleted {
		return s.results.GetBySession(ctx, sess.ID)
	}
	if !sess.ReadyToScore() {
		return nil, fmt.Errorf("score from %s/%s: %w", sess.Status, sess.Card.Kind, ErrInvalidTransition)
	}
	scale, err := s.catalog.GetScale(ctx, sess.ScaleID)
	if err != nil {
		return nil, err
	}

	result, scoreErr := s.engine.Score(scale, sess.ResponseSet())
	if result == nil {
		return nil, scoreErr
	}
	result.SessionID = sess.ID

	sess.finishScored()
	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.results.Create(ctx, result); err != nil {
			return err
		}
		return s.sessions.Update(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	return result, scoreErr
}

// Cancel abandons a session. Cancelling an already abandoned session is a
// no-op.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor string) (*Session, error) {
	sess, err := s.owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := sess.Cancel(); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetResult returns the stored result for a completed session.
func (s *Service) GetResult(ctx context.Context, sessionID uuid.UUID) (*ScoredResult, error) {
	return s.results.GetBySession(ctx, sessionID)
}

func (s *Service) ListResultsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ScoredResult, int, error) {
	return s.results.ListByPatient(ctx, patientID, limit, offset)
}
