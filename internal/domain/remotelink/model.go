package remotelink

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinimetric/clinimetric/internal/domain/assessment"
)

// Token is one remote-administration grant bound to a session. Uses only
// ever increases; a token is spendable while uses < max_uses and the expiry
// has not passed.
type Token struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SessionID uuid.UUID `db:"session_id" json:"session_id"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	MaxUses   int       `db:"max_uses" json:"max_uses"`
	Uses      int       `db:"uses" json:"uses"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Issued is the result of issuing a token: the row, the signed credential
// embedded in the link, and the URL path the patient opens. Delivering the
// link to the patient is the caller's concern.
type Issued struct {
	Token      *Token `json:"token"`
	Credential string `json:"credential"`
	URL        string `json:"url"`
}

// RemoteSession is what a redeemed credential reveals: exactly what the
// remote client needs to render the assessment. Remote calls are keyed by
// the credential alone, so no session identifier leaves the clinic.
type RemoteSession struct {
	ScaleCode    string          `json:"scale_code"`
	ScaleName    string          `json:"scale_name"`
	Instructions string          `json:"instructions,omitempty"`
	Card         assessment.Card `json:"card"`
}

var (
	// ErrTokenUnknown is returned for credentials whose token row does not
	// exist.
	ErrTokenUnknown = errors.New("unknown token")
	// ErrTokenExpired is returned past the token's expiry.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenExhausted is returned once every permitted use is spent.
	ErrTokenExhausted = errors.New("token has no uses remaining")
)
