package remotelink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clinimetric/clinimetric/internal/domain/assessment"
	"github.com/clinimetric/clinimetric/internal/domain/catalog"
)

const (
	// DefaultExpiry applies when the issuer does not choose one.
	DefaultExpiry = 72 * time.Hour
	// DefaultMaxUses is one: a remote link is single-use unless the issuer
	// says otherwise.
	DefaultMaxUses = 1
)

// Service issues remote-administration links and drives the linked session
// on the patient's behalf. The credential in the link is a signed JWT
// carrying only the token ID, so every call verifies the signature before
// touching the store and a guessed URL cannot probe token IDs. Redeeming
// spends a use; driving calls on an already-redeemed credential do not.
type Service struct {
	tokens      TokenRepository
	assessments *assessment.Service
	catalog     *catalog.Service

	signingKey []byte
	baseURL    string
}

func NewService(tokens TokenRepository, assessments *assessment.Service, cat *catalog.Service, signingKey []byte, baseURL string) *Service {
	return &Service{
		tokens:      tokens,
		assessments: assessments,
		catalog:     cat,
		signingKey:  signingKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// Issue creates a token for a session and signs the redemption credential.
// Zero expiry and maxUses fall back to the defaults.
func (s *Service) Issue(ctx context.Context, sessionID uuid.UUID, expiry time.Duration, maxUses int) (*Issued, error) {
	sess, err := s.assessments.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == assessment.StatusCompleted || sess.Status == assessment.StatusAbandoned {
		return nil, assessment.ErrSessionClosed
	}

	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if maxUses <= 0 {
		maxUses = DefaultMaxUses
	}

	t := &Token{
		ID:        uuid.New(),
		SessionID: sessionID,
		ExpiresAt: time.Now().Add(expiry),
		MaxUses:   maxUses,
		CreatedAt: time.Now(),
	}
	if err := s.tokens.Create(ctx, t); err != nil {
		return nil, err
	}

	claims := jwt.RegisteredClaims{
		ID:        t.ID.String(),
		Subject:   sessionID.String(),
		ExpiresAt: jwt.NewNumericDate(t.ExpiresAt),
		IssuedAt:  jwt.NewNumericDate(t.CreatedAt),
	}
	credential, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return nil, fmt.Errorf("sign credential: %w", err)
	}

	return &Issued{
		Token:      t,
		Credential: credential,
		URL:        s.baseURL + "/remote/" + credential,
	}, nil
}

// Redeem spends one use of the credential's token and returns the minimal
// session view a remote client needs. The session's status is checked
// before the use is spent: opening a link for a session that was meanwhile
// closed does not burn a remaining use.
func (s *Service) Redeem(ctx context.Context, credential string) (*RemoteSession, error) {
	tokenID, err := s.verify(credential)
	if err != nil {
		return nil, err
	}

	t, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, ErrTokenUnknown
	}
	sess, err := s.assessments.GetSession(ctx, t.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == assessment.StatusCompleted || sess.Status == assessment.StatusAbandoned {
		return nil, assessment.ErrSessionClosed
	}

	if _, err := s.tokens.Redeem(ctx, tokenID); err != nil {
		return nil, err
	}
	return s.view(ctx, sess)
}

// AcknowledgeInstructions moves the linked session past the instructions
// card.
func (s *Service) AcknowledgeInstructions(ctx context.Context, credential string) (*RemoteSession, error) {
	sess, err := s.authorize(ctx, credential)
	if err != nil {
		return nil, err
	}
	if sess, err = s.assessments.AcknowledgeInstructions(ctx, sess.ID, ""); err != nil {
		return nil, err
	}
	return s.view(ctx, sess)
}

// RecordResponse records the patient's answer for an item and advances the
// linked session.
func (s *Service) RecordResponse(ctx context.Context, credential string, itemNumber int, value string) (*RemoteSession, error) {
	sess, err := s.authorize(ctx, credential)
	if err != nil {
		return nil, err
	}
	if sess, err = s.assessments.RecordResponse(ctx, sess.ID, "", itemNumber, value); err != nil {
		return nil, err
	}
	return s.view(ctx, sess)
}

// Back navigates the linked session to the previous item.
func (s *Service) Back(ctx context.Context, credential string) (*RemoteSession, error) {
	sess, err := s.authorize(ctx, credential)
	if err != nil {
		return nil, err
	}
	if sess, err = s.assessments.Back(ctx, sess.ID, ""); err != nil {
		return nil, err
	}
	return s.view(ctx, sess)
}

// Complete scores the linked session once every item is answered. The
// patient only sees the completion card; the scored result stays on the
// clinic side, including any banding defect, which the staff endpoints
// surface.
func (s *Service) Complete(ctx context.Context, credential string) (*RemoteSession, error) {
	sess, err := s.authorize(ctx, credential)
	if err != nil {
		return nil, err
	}
	if _, err := s.assessments.CompleteAndScore(ctx, sess.ID, ""); err != nil &&
		!errors.Is(err, assessment.ErrNoMatchingInterpretation) {
		return nil, err
	}
	sess, err = s.assessments.GetSession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess)
}

// ListSessionTokens returns the tokens issued for a session, for the
// administrator's overview.
func (s *Service) ListSessionTokens(ctx context.Context, sessionID uuid.UUID) ([]*Token, error) {
	return s.tokens.ListBySession(ctx, sessionID)
}

// authorize validates the credential for a driving call without spending a
// use; the use was spent when the link was opened. The state machine's own
// guards reject driving a closed session.
func (s *Service) authorize(ctx context.Context, credential string) (*assessment.Session, error) {
	tokenID, err := s.verify(credential)
	if err != nil {
		return nil, err
	}
	t, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, ErrTokenUnknown
	}
	if time.Now().After(t.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return s.assessments.GetSession(ctx, t.SessionID)
}

func (s *Service) view(ctx context.Context, sess *assessment.Session) (*RemoteSession, error) {
	scale, err := s.catalog.GetScale(ctx, sess.ScaleID)
	if err != nil {
		return nil, err
	}
	return &RemoteSession{
		ScaleCode:    scale.Code,
		ScaleName:    scale.Name,
		Instructions: scale.Instructions,
		Card:         sess.Card,
	}, nil
}

func (s *Service) verify(credential string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(credential, &claims, func(*jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, ErrTokenUnknown
	}
	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return uuid.Nil, ErrTokenUnknown
	}
	return tokenID, nil
}
