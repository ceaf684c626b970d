package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Administration modes a scale supports.
const (
	ModeSelf      = "self"
	ModeClinician = "clinician"
	ModeEither    = "either"
)

// AlertCondition operators.
const (
	OpEquals  = "eq"
	OpAtLeast = "gte"
	OpAbove   = "gt"
)

// ScaleDefinition is a published assessment instrument: its items, response
// vocabularies, subscales and interpretation bands. Definitions are authored
// by the catalog pipeline and immutable once published.
type ScaleDefinition struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Code          string    `db:"code" json:"code"`
	Name          string    `json:"name"`
	Abbreviation  string    `json:"abbreviation,omitempty"`
	Description   string    `json:"description,omitempty"`
	ItemCount     int       `json:"item_count"`
	Mode          string    `json:"mode"`
	Instructions  string    `json:"instructions,omitempty"`
	ScoreRangeMin int       `json:"score_range_min"`
	ScoreRangeMax int       `json:"score_range_max"`

	// Options is the scale's global response vocabulary, used by every item
	// that carries neither its own options nor a group reference.
	Options   []ResponseOption     `json:"options,omitempty"`
	Groups    []ResponseGroup      `json:"groups,omitempty"`
	Items     []Item               `json:"items"`
	Subscales []Subscale           `json:"subscales,omitempty"`
	Rules     []InterpretationRule `json:"rules"`

	Published bool      `db:"published" json:"published"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Item is one question or statement within a scale. Number is the stable
// 1..N position; Code carries a legacy identifier (e.g. "7a") kept only for
// traceability with the paper instrument.
type Item struct {
	Number         int              `json:"number"`
	Text           string           `json:"text"`
	Code           string           `json:"code,omitempty"`
	Options        []ResponseOption `json:"options,omitempty"`
	GroupName      string           `json:"group_name,omitempty"`
	ReverseScored  bool             `json:"reverse_scored,omitempty"`
	AlertTrigger   bool             `json:"alert_trigger,omitempty"`
	AlertCondition *AlertCondition  `json:"alert_condition,omitempty"`
	Help           string           `json:"help,omitempty"`
}

// ResponseOption is one selectable answer. Options are always presented in
// OrderIndex order.
type ResponseOption struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	Score      int    `json:"score"`
	OrderIndex int    `json:"order_index"`
}

// ResponseGroup is a named vocabulary shared by items whose response style
// differs from the scale's global one.
type ResponseGroup struct {
	Name    string           `json:"name"`
	Options []ResponseOption `json:"options"`
}

// Subscale aggregates a subset of items into its own sub-score. Item
// membership may overlap between subscales.
type Subscale struct {
	Name        string `json:"name"`
	ItemNumbers []int  `json:"item_numbers"`
	MinScore    int    `json:"min_score"`
	MaxScore    int    `json:"max_score"`
}

// InterpretationRule maps an inclusive total-score band to a clinical
// severity label and guidance.
type InterpretationRule struct {
	MinScore       int    `json:"min_score"`
	MaxScore       int    `json:"max_score"`
	Severity       string `json:"severity"`
	Description    string `json:"description,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Contains reports whether score falls inside the rule's inclusive band.
func (r InterpretationRule) Contains(score int) bool {
	return score >= r.MinScore && score <= r.MaxScore
}

// AlertCondition is the numeric comparison evaluated against the score of a
// recorded response on an alert-trigger item.
type AlertCondition struct {
	Op        string `json:"op"`
	Threshold int    `json:"threshold"`
}

// Matches evaluates the condition against a response score.
func (c AlertCondition) Matches(score int) bool {
	switch c.Op {
	case OpEquals:
		return score == c.Threshold
	case OpAtLeast:
		return score >= c.Threshold
	case OpAbove:
		return score > c.Threshold
	default:
		return false
	}
}

// ItemByNumber returns the item with the given number, or nil.
func (d *ScaleDefinition) ItemByNumber(number int) *Item {
	for i := range d.Items {
		if d.Items[i].Number == number {
			return &d.Items[i]
		}
	}
	return nil
}

// GroupByName returns the named response group, or nil.
func (d *ScaleDefinition) GroupByName(name string) *ResponseGroup {
	for i := range d.Groups {
		if d.Groups[i].Name == name {
			return &d.Groups[i]
		}
	}
	return nil
}
