package assessment

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/clinimetric/clinimetric/internal/domain/catalog"
)

// testDefinition builds a published 3-item scale with a global vocabulary
// scored 0..3, a subscale over items 1-2 and three contiguous bands.
func testDefinition() *catalog.ScaleDefinition {
	return &catalog.ScaleDefinition{
		ID:            uuid.New(),
		Code:          "tst",
		Name:          "Test Scale",
		ItemCount:     3,
		Mode:          catalog.ModeEither,
		ScoreRangeMin: 0,
		ScoreRangeMax: 9,
		Options: []catalog.ResponseOption{
			{Value: "0", Label: "Not at all", Score: 0, OrderIndex: 0},
			{Value: "1", Label: "Several days", Score: 1, OrderIndex: 1},
			{Value: "2", Label: "More than half the days", Score: 2, OrderIndex: 2},
			{Value: "3", Label: "Nearly every day", Score: 3, OrderIndex: 3},
		},
		Items: []catalog.Item{
			{Number: 1, Text: "Little interest or pleasure"},
			{Number: 2, Text: "Feeling down or hopeless"},
			{Number: 3, Text: "Trouble sleeping"},
		},
		Subscales: []catalog.Subscale{
			{Name: "core", ItemNumbers: []int{1, 2}, MinScore: 0, MaxScore: 6},
		},
		Rules: []catalog.InterpretationRule{
			{MinScore: 0, MaxScore: 3, Severity: "minimal"},
			{MinScore: 4, MaxScore: 6, Severity: "moderate"},
			{MinScore: 7, MaxScore: 9, Severity: "severe", Recommendation: "refer for treatment"},
		},
		Published: true,
	}
}

func responsesFor(d *catalog.ScaleDefinition, scores map[int]int) ResponseSet {
	rs := ResponseSet{ScaleID: d.ID, Responses: make(map[int]RecordedResponse)}
	for n, score := range scores {
		rs.Responses[n] = RecordedResponse{ItemNumber: n, Value: "x", Label: "x", Score: score}
	}
	return rs
}

func TestScoreTotalsAndInterpretation(t *testing.T) {
	d := testDefinition()
	engine := NewEngine(nil)

	result, err := engine.Score(d, responsesFor(d, map[int]int{1: 2, 2: 2, 3: 3}))
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 7 {
		t.Fatalf("expected total 7, got %d", result.Total)
	}
	if result.Interp.Severity != "severe" {
		t.Fatalf("expected severity severe, got %q", result.Interp.Severity)
	}
	if result.Interp.Recommendation != "refer for treatment" {
		t.Fatalf("unexpected recommendation %q", result.Interp.Recommendation)
	}

	if len(result.Subscales) != 1 {
		t.Fatalf("expected one subscale score, got %d", len(result.Subscales))
	}
	sub := result.Subscales[0]
	if sub.Score != 4 || sub.MaxScore != 6 {
		t.Fatalf("expected 4/6, got %d/%d", sub.Score, sub.MaxScore)
	}
	if math.Abs(sub.Percentage-66.666) > 0.01 {
		t.Fatalf("expected ~66.67%%, got %f", sub.Percentage)
	}
}

func TestScoreBandBoundaries(t *testing.T) {
	d := testDefinition()
	engine := NewEngine(nil)

	for total, want := range map[int]string{0: "minimal", 3: "minimal", 4: "moderate", 6: "moderate", 7: "severe", 9: "severe"} {
		scores := map[int]int{1: 0, 2: 0, 3: 0}
		remaining := total
		for n := 1; n <= 3 && remaining > 0; n++ {
			s := remaining
			if s > 3 {
				s = 3
			}
			scores[n] = s
			remaining -= s
		}
		result, err := engine.Score(d, responsesFor(d, scores))
		if err != nil {
			t.Fatalf("total %d: %v", total, err)
		}
		if result.Interp.Severity != want {
			t.Errorf("total %d: expected %q, got %q", total, want, result.Interp.Severity)
		}
	}
}

func TestScoreHighRiskItems(t *testing.T) {
	d := testDefinition()
	d.Items[2].AlertTrigger = true
	d.Items[2].AlertCondition = &catalog.AlertCondition{Op: catalog.OpAtLeast, Threshold: 1}
	engine := NewEngine(nil)

	result, err := engine.Score(d, responsesFor(d, map[int]int{1: 0, 2: 0, 3: 2}))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.HighRisk) != 1 || result.HighRisk[0].ItemNumber != 3 {
		t.Fatalf("expected item 3 flagged, got %v", result.HighRisk)
	}
	if result.Interp.Severity != "minimal" {
		t.Fatalf("alert must be independent of the band, got %q", result.Interp.Severity)
	}

	result, err = engine.Score(d, responsesFor(d, map[int]int{1: 3, 2: 3, 3: 0}))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.HighRisk) != 0 {
		t.Fatalf("score below threshold must not flag, got %v", result.HighRisk)
	}
}

func TestScoreRejectsIncompleteSet(t *testing.T) {
	d := testDefinition()
	engine := NewEngine(nil)

	_, err := engine.Score(d, responsesFor(d, map[int]int{1: 1, 3: 1}))
	if !errors.Is(err, ErrIncompleteResponseSet) {
		t.Fatalf("expected ErrIncompleteResponseSet, got %v", err)
	}
}

func TestScoreRejectsForeignResponseSet(t *testing.T) {
	d := testDefinition()
	engine := NewEngine(nil)

	rs := responsesFor(d, map[int]int{1: 1, 2: 1, 3: 1})
	rs.ScaleID = uuid.New()
	if _, err := engine.Score(d, rs); !errors.Is(err, ErrScaleMismatch) {
		t.Fatalf("expected ErrScaleMismatch, got %v", err)
	}

	rs = responsesFor(d, map[int]int{1: 1, 2: 1, 3: 1, 4: 1})
	if _, err := engine.Score(d, rs); !errors.Is(err, ErrScaleMismatch) {
		t.Fatalf("expected ErrScaleMismatch for unknown item, got %v", err)
	}
}

func TestScoreDefectWhenNoBandMatches(t *testing.T) {
	d := testDefinition()
	// A corrupted definition whose bands stop short of the range.
	d.Rules = d.Rules[:2]
	engine := NewEngine(nil)

	result, err := engine.Score(d, responsesFor(d, map[int]int{1: 3, 2: 3, 3: 3}))
	if !errors.Is(err, ErrNoMatchingInterpretation) {
		t.Fatalf("expected ErrNoMatchingInterpretation, got %v", err)
	}
	if result == nil {
		t.Fatal("the defect result must still be returned")
	}
	if !result.Interp.Defect {
		t.Fatal("expected the interpretation to be flagged as a defect")
	}
	if result.Total != 9 {
		t.Fatalf("expected total 9, got %d", result.Total)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	d := testDefinition()
	engine := NewEngine(nil)
	rs := responsesFor(d, map[int]int{1: 2, 2: 2, 3: 3})

	a, err := engine.Score(d, rs)
	if err != nil {
		t.Fatal(err)
	}
	b, err := engine.Score(d, rs)
	if err != nil {
		t.Fatal(err)
	}
	if a.Total != b.Total || a.Interp.Severity != b.Interp.Severity {
		t.Fatal("scoring the same input twice must agree")
	}
}
