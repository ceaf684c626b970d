package assessment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinimetric/clinimetric/internal/domain/catalog"
)

// NewSession creates a session in the configuring state against a published
// scale. The fields needed to drive navigation are denormalized onto the
// session so the state machine never reaches back into the catalog.
func NewSession(scale *catalog.ScaleDefinition, administratorID string) *Session {
	return &Session{
		ID:              uuid.New(),
		ScaleID:         scale.ID,
		ScaleCode:       scale.Code,
		ItemCount:       scale.ItemCount,
		HasInstructions: scale.Instructions != "",
		ScaleMode:       scale.Mode,
		AdministratorID: administratorID,
		Status:          StatusConfiguring,
		Card:            Card{Kind: CardConfig},
		Responses:       make(map[int]RecordedResponse),
	}
}

// Configure binds the patient and the administration mode, then leaves the
// config card. When the scale's mode is "either" an explicit choice is
// required; no default is applied. Scales with patient instructions show
// the instructions card next regardless of mode, others go straight to the
// first item.
func (s *Session) Configure(patientID uuid.UUID, patientName, mode, delivery string) error {
	if s.Status != StatusConfiguring || s.Card.Kind != CardConfig {
		return fmt.Errorf("configure from %s: %w", s.Card.Kind, ErrInvalidTransition)
	}
	if patientID == uuid.Nil {
		return fmt.Errorf("patient identity is required")
	}

	switch s.ScaleMode {
	case catalog.ModeEither:
		if mode != catalog.ModeSelf && mode != catalog.ModeClinician {
			return fmt.Errorf("scale allows either mode; an explicit choice of %q or %q is required",
				catalog.ModeSelf, catalog.ModeClinician)
		}
	default:
		if mode == "" {
			mode = s.ScaleMode
		}
		if mode != s.ScaleMode {
			return fmt.Errorf("scale is administered %s only", s.ScaleMode)
		}
	}

	switch delivery {
	case "":
		delivery = DeliveryInPerson
	case DeliveryInPerson, DeliveryRemote:
	default:
		return fmt.Errorf("unknown delivery %q", delivery)
	}

	s.PatientID = patientID
	s.PatientName = patientName
	s.Mode = mode
	s.Delivery = delivery
	s.Status = StatusInProgress
	if s.HasInstructions {
		s.Card = Card{Kind: CardInstructions}
	} else {
		s.Card = Card{Kind: CardItem, Item: 1}
	}
	s.UpdatedAt = time.Now()
	return nil
}

// AcknowledgeInstructions moves past the patient-instructions card.
func (s *Session) AcknowledgeInstructions() error {
	if s.Card.Kind != CardInstructions {
		return fmt.Errorf("acknowledge instructions from %s: %w", s.Card.Kind, ErrInvalidTransition)
	}
	s.Card = Card{Kind: CardItem, Item: 1}
	s.UpdatedAt = time.Now()
	return nil
}

// Record stores the selected response for the current item and
// auto-advances to the next item, or to the completion card after the last
// one. Exactly one response is held per item; re-recording after
// navigating back replaces the previous selection.
func (s *Session) Record(resp RecordedResponse) error {
	if s.Status != StatusInProgress {
		return ErrSessionClosed
	}
	if s.Card.Kind != CardItem {
		return fmt.Errorf("record from %s: %w", s.Card.Kind, ErrInvalidTransition)
	}
	if resp.ItemNumber != s.Card.Item {
		return fmt.Errorf("response is for item %d but session is on item %d: %w",
			resp.ItemNumber, s.Card.Item, ErrInvalidTransition)
	}

	s.Responses[resp.ItemNumber] = resp
	if s.Card.Item == s.ItemCount {
		s.Card = Card{Kind: CardComplete}
	} else {
		s.Card = Card{Kind: CardItem, Item: s.Card.Item + 1}
	}
	s.UpdatedAt = time.Now()
	return nil
}

// Back navigates to the previous item. Permitted from any item after the
// first, never from the config card.
func (s *Session) Back() error {
	if s.Status != StatusInProgress {
		return ErrSessionClosed
	}
	if s.Card.Kind != CardItem || s.Card.Item <= 1 {
		return fmt.Errorf("back from %s: %w", s.Card.Kind, ErrInvalidTransition)
	}
	s.Card = Card{Kind: CardItem, Item: s.Card.Item - 1}
	s.UpdatedAt = time.Now()
	return nil
}

// ReadyToScore reports whether the caller may request scoring.
func (s *Session) ReadyToScore() bool {
	return s.Status == StatusInProgress && s.Card.Kind == CardComplete
}

// finishScored marks the session scored and completed.
func (s *Session) finishScored() {
	s.Card = Card{Kind: CardResults}
	s.Status = StatusCompleted
	s.UpdatedAt = time.Now()
}

// Cancel abandons the session. Partial responses are retained for audit but
// an abandoned session is never scorable. Completed sessions cannot be
// cancelled.
func (s *Session) Cancel() error {
	switch s.Status {
	case StatusCompleted:
		return fmt.Errorf("session already completed: %w", ErrSessionClosed)
	case StatusAbandoned:
		return nil
	}
	s.Status = StatusAbandoned
	s.UpdatedAt = time.Now()
	return nil
}
