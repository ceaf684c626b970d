package remotelink

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memTokenRepo is the in-memory repository. It mirrors the conditional
// update of the Postgres implementation under a mutex, so redemption races
// behave identically in tests.
type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*Token
}

func NewMemTokenRepo() TokenRepository {
	return &memTokenRepo{tokens: make(map[uuid.UUID]*Token)}
}

func (r *memTokenRepo) Create(_ context.Context, t *Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.tokens[cp.ID] = &cp
	return nil
}

func (r *memTokenRepo) GetByID(_ context.Context, id uuid.UUID) (*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, ErrTokenUnknown
	}
	cp := *t
	return &cp, nil
}

func (r *memTokenRepo) Redeem(_ context.Context, id uuid.UUID) (*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, ErrTokenUnknown
	}
	if time.Now().After(t.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	if t.Uses >= t.MaxUses {
		return nil, ErrTokenExhausted
	}
	t.Uses++
	cp := *t
	return &cp, nil
}

func (r *memTokenRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tokens []*Token
	for _, t := range r.tokens {
		if t.SessionID == sessionID {
			cp := *t
			tokens = append(tokens, &cp)
		}
	}
	return tokens, nil
}
