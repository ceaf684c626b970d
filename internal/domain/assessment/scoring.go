package assessment

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinimetric/clinimetric/internal/domain/catalog"
)

// Engine turns a complete ResponseSet into a ScoredResult. Scoring is a
// pure function of the definition and the responses: recomputing with the
// same input yields the same result, so it is safe to call at any time.
type Engine struct {
	analyses *AnalysisRegistry
}

func NewEngine(analyses *AnalysisRegistry) *Engine {
	if analyses == nil {
		analyses = NewAnalysisRegistry()
	}
	return &Engine{analyses: analyses}
}

// Score computes the total, subscale scores, interpretation, alerts and
// scale-specific analyses for a complete response set.
//
// A response set collected for another scale, covering unknown items, or
// missing any item is rejected outright. When no interpretation band covers
// the total — possible only against an unvalidated or corrupted definition —
// the result carries an explicitly flagged defect interpretation and
// ErrNoMatchingInterpretation is returned alongside it, so the caller can
// show the operator what went wrong without ever displaying a guessed
// severity.
func (e *Engine) Score(d *catalog.ScaleDefinition, rs ResponseSet) (*ScoredResult, error) {
	if rs.ScaleID != d.ID {
		return nil, fmt.Errorf("responses collected for scale %s, scoring against %s: %w",
			rs.ScaleID, d.ID, ErrScaleMismatch)
	}
	for n := range rs.Responses {
		if n < 1 || n > d.ItemCount {
			return nil, fmt.Errorf("response for unknown item %d: %w", n, ErrScaleMismatch)
		}
	}
	var missing []int
	for n := 1; n <= d.ItemCount; n++ {
		if _, ok := rs.Responses[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing responses for items %v: %w", missing, ErrIncompleteResponseSet)
	}

	total := 0
	for n := 1; n <= d.ItemCount; n++ {
		total += rs.Responses[n].Score
	}

	result := &ScoredResult{
		ID:        uuid.New(),
		ScaleID:   d.ID,
		ScaleCode: d.Code,
		Total:     total,
		Subscales: subscaleScores(d, rs),
		HighRisk:  highRiskItems(d, rs),
		Analyses:  e.analyses.apply(d, rs),
		ScoredAt:  time.Now(),
	}

	matched := false
	for _, rule := range d.Rules {
		if rule.Contains(total) {
			result.Interp = Interpretation{
				Severity:       rule.Severity,
				Description:    rule.Description,
				Recommendation: rule.Recommendation,
			}
			matched = true
			break
		}
	}
	if !matched {
		result.Interp = Interpretation{
			Severity:    "scoring-defect",
			Description: fmt.Sprintf("no interpretation band covers total score %d; the scale definition is defective", total),
			Defect:      true,
		}
		return result, fmt.Errorf("total %d on scale %s: %w", total, d.Code, ErrNoMatchingInterpretation)
	}

	return result, nil
}

// subscaleScores sums each subscale over only its referenced items. Item
// membership may overlap, so subscale totals can legitimately exceed the
// scale total.
func subscaleScores(d *catalog.ScaleDefinition, rs ResponseSet) []SubscaleScore {
	if len(d.Subscales) == 0 {
		return nil
	}
	scores := make([]SubscaleScore, 0, len(d.Subscales))
	for _, sub := range d.Subscales {
		sum := 0
		for _, n := range sub.ItemNumbers {
			sum += rs.Responses[n].Score
		}
		sc := SubscaleScore{Name: sub.Name, Score: sum, MaxScore: sub.MaxScore}
		if sub.MaxScore > 0 {
			sc.Percentage = float64(sum) / float64(sub.MaxScore) * 100
		}
		scores = append(scores, sc)
	}
	return scores
}

// highRiskItems collects every alert-trigger item whose recorded response
// satisfies its condition, in item order. A single safety-relevant response
// can be clinically decisive, so this list is independent of the severity
// band.
func highRiskItems(d *catalog.ScaleDefinition, rs ResponseSet) []HighRiskItem {
	var items []HighRiskItem
	for i := range d.Items {
		item := &d.Items[i]
		if !item.AlertTrigger || item.AlertCondition == nil {
			continue
		}
		resp, ok := rs.Responses[item.Number]
		if !ok {
			continue
		}
		if item.AlertCondition.Matches(resp.Score) {
			items = append(items, HighRiskItem{
				ItemNumber:    item.Number,
				Text:          item.Text,
				SelectedLabel: resp.Label,
				Score:         resp.Score,
			})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemNumber < items[j].ItemNumber })
	return items
}
