package assessment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session lifecycle statuses.
const (
	StatusConfiguring = "configuring"
	StatusInProgress  = "in_progress"
	StatusCompleted   = "completed"
	StatusAbandoned   = "abandoned"
)

// Delivery settings for an administration.
const (
	DeliveryInPerson = "in_person"
	DeliveryRemote   = "remote"
)

// CardKind names the addressable positions of an administration.
type CardKind string

const (
	CardConfig       CardKind = "config"
	CardInstructions CardKind = "instructions"
	CardItem         CardKind = "item"
	CardComplete     CardKind = "complete"
	CardResults      CardKind = "results"
)

// Card is the current navigational position of a session. Item is set only
// when Kind is CardItem.
type Card struct {
	Kind CardKind `json:"kind"`
	Item int      `json:"item,omitempty"`
}

// Session is one administration of a scale to one patient by one
// administrator. It is owned exclusively by its creator until scoring
// completes.
type Session struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ScaleID         uuid.UUID `db:"scale_id" json:"scale_id"`
	ScaleCode       string    `db:"scale_code" json:"scale_code"`
	ItemCount       int       `db:"item_count" json:"item_count"`
	HasInstructions bool      `db:"has_instructions" json:"-"`
	ScaleMode       string    `db:"scale_mode" json:"-"`

	PatientID       uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	PatientName     string    `db:"patient_name" json:"patient_name,omitempty"`
	AdministratorID string    `db:"administrator_id" json:"administrator_id"`
	Mode            string    `db:"mode" json:"mode,omitempty"`
	Delivery        string    `db:"delivery" json:"delivery,omitempty"`

	Status    string                   `db:"status" json:"status"`
	Card      Card                     `json:"card"`
	Responses map[int]RecordedResponse `json:"responses"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RecordedResponse captures the option a patient selected for one item,
// denormalized so results remain stable even if the catalog evolves.
type RecordedResponse struct {
	ItemNumber int    `json:"item_number"`
	Value      string `json:"value"`
	Label      string `json:"label"`
	Score      int    `json:"score"`
}

// ResponseSet is the complete answer set of one session, tagged with the
// scale it was collected for so it can never be scored against another.
type ResponseSet struct {
	ScaleID   uuid.UUID                `json:"scale_id"`
	Responses map[int]RecordedResponse `json:"responses"`
}

// ScoredResult is the derived, read-only outcome of scoring a complete
// ResponseSet. It is a pure function of the definition and the responses
// and is never mutated after creation.
type ScoredResult struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	SessionID uuid.UUID       `db:"session_id" json:"session_id"`
	ScaleID   uuid.UUID       `db:"scale_id" json:"scale_id"`
	ScaleCode string          `db:"scale_code" json:"scale_code"`
	Total     int             `json:"total_score"`
	Subscales []SubscaleScore `json:"subscale_scores,omitempty"`
	Interp    Interpretation  `json:"interpretation"`
	HighRisk  []HighRiskItem  `json:"high_risk_items,omitempty"`
	Analyses  []Analysis      `json:"analyses,omitempty"`
	ScoredAt  time.Time       `db:"scored_at" json:"scored_at"`
}

// SubscaleScore is the sum over one subscale's items, with the percentage
// of the subscale's own maximum used for severity banding independent of
// the total-score interpretation.
type SubscaleScore struct {
	Name       string  `json:"name"`
	Score      int     `json:"score"`
	MaxScore   int     `json:"max_score"`
	Percentage float64 `json:"percentage"`
}

// Interpretation is the matched severity band. Defect marks the explicit
// error-interpretation produced when no band covers the total score; it is
// never a clinical label and must be surfaced to the operator.
type Interpretation struct {
	Severity       string `json:"severity"`
	Description    string `json:"description,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	Defect         bool   `json:"defect,omitempty"`
}

// HighRiskItem is an alert-trigger item whose recorded response satisfied
// its condition. Surfaced regardless of the overall severity band.
type HighRiskItem struct {
	ItemNumber    int    `json:"item_number"`
	Text          string `json:"text"`
	SelectedLabel string `json:"selected_label"`
	Score         int    `json:"score"`
}

// Analysis is a non-scored qualitative classification produced by a
// scale-specific analyzer.
type Analysis struct {
	Name       string `json:"name"`
	Value      string `json:"value"`
	ItemNumber int    `json:"item_number"`
}

// PatientRef is the only patient data this core reads from the record
// store: an opaque identifier and a display name.
type PatientRef struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}

var (
	// ErrInvalidTransition is returned when a session operation is not
	// legal from the current card.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrSessionClosed is returned for operations on a completed or
	// abandoned session.
	ErrSessionClosed = errors.New("session is closed")
	// ErrIncompleteResponseSet rejects scoring over a partial answer set.
	ErrIncompleteResponseSet = errors.New("response set does not cover all items")
	// ErrScaleMismatch rejects a response set scored against a different
	// scale than it was collected for.
	ErrScaleMismatch = errors.New("response set does not belong to this scale")
	// ErrNoMatchingInterpretation marks a definition whose bands fail to
	// cover the computed total. Only reachable with an unvalidated or
	// corrupted definition; never papered over with a clinical label.
	ErrNoMatchingInterpretation = errors.New("no interpretation rule matches total score")
)

// ResponseSet snapshots the session's answers for scoring.
func (s *Session) ResponseSet() ResponseSet {
	return ResponseSet{ScaleID: s.ScaleID, Responses: s.Responses}
}
