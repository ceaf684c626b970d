package assessment

import (
	"context"

	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	List(ctx context.Context, limit, offset int) ([]*Session, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error)
}

type ResultRepository interface {
	Create(ctx context.Context, r *ScoredResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScoredResult, error)
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*ScoredResult, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ScoredResult, int, error)
}

// PatientDirectory is the boundary to the external record store: the core
// reads an opaque id and display name, nothing else.
type PatientDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*PatientRef, error)
}
