package remotelink

import (
	"context"

	"github.com/google/uuid"
)

// TokenRepository stores remote tokens. Redeem must be atomic: under
// concurrent redemptions of the same token, at most MaxUses calls may
// succeed.
type TokenRepository interface {
	Create(ctx context.Context, t *Token) error
	GetByID(ctx context.Context, id uuid.UUID) (*Token, error)
	// Redeem spends one use. It returns ErrTokenUnknown, ErrTokenExpired or
	// ErrTokenExhausted when the token cannot be spent.
	Redeem(ctx context.Context, id uuid.UUID) (*Token, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*Token, error)
}
