package remotelink

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type tokenRepoPG struct{ pool *pgxpool.Pool }

func NewTokenRepoPG(pool *pgxpool.Pool) TokenRepository {
	return &tokenRepoPG{pool: pool}
}

func (r *tokenRepoPG) Create(ctx context.Context, t *Token) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assessment_token (id, session_id, expires_at, max_uses, uses)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.SessionID, t.ExpiresAt, t.MaxUses, t.Uses)
	return err
}

func (r *tokenRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Token, error) {
	return r.scan(r.pool.QueryRow(ctx, `
		SELECT id, session_id, expires_at, max_uses, uses, created_at
		FROM assessment_token WHERE id = $1`, id))
}

// Redeem spends one use in a single conditional update. The database
// serializes the increments, so concurrent redemptions can never exceed
// max_uses. A miss is disambiguated by a follow-up read.
func (r *tokenRepoPG) Redeem(ctx context.Context, id uuid.UUID) (*Token, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE assessment_token SET uses = uses + 1
		WHERE id = $1 AND uses < max_uses AND expires_at > NOW()
		RETURNING id, session_id, expires_at, max_uses, uses, created_at`, id)
	t, err := r.scan(row)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	t, err = r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenUnknown
		}
		return nil, err
	}
	if time.Now().After(t.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return nil, ErrTokenExhausted
}

func (r *tokenRepoPG) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*Token, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, expires_at, max_uses, uses, created_at
		FROM assessment_token WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tokens []*Token
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

func (r *tokenRepoPG) scan(row pgx.Row) (*Token, error) {
	var t Token
	if err := row.Scan(&t.ID, &t.SessionID, &t.ExpiresAt, &t.MaxUses, &t.Uses, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
