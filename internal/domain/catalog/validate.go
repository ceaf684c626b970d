package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError describes one structural defect in a scale definition.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is the full set of defects found in a definition. A
// definition with any defect is rejected whole; there is no partial
// acceptance.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "invalid scale definition: " + strings.Join(msgs, "; ")
}

// Validate checks a scale definition for structural soundness. Every check
// is fatal: a definition that returns a non-empty result must never be
// offered for administration.
func Validate(d *ScaleDefinition) ValidationErrors {
	var errs ValidationErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if d.Code == "" {
		add("code", "is required")
	}
	if d.Name == "" {
		add("name", "is required")
	}
	switch d.Mode {
	case ModeSelf, ModeClinician, ModeEither:
	default:
		add("mode", "must be %q, %q or %q, got %q", ModeSelf, ModeClinician, ModeEither, d.Mode)
	}
	if d.ItemCount <= 0 {
		add("item_count", "must be positive, got %d", d.ItemCount)
	}

	validateVocabulary(&errs, "options", d.Options)

	groupNames := make(map[string]bool, len(d.Groups))
	for i, g := range d.Groups {
		field := fmt.Sprintf("groups[%d]", i)
		if g.Name == "" {
			add(field+".name", "is required")
		} else if groupNames[g.Name] {
			add(field+".name", "duplicate group name %q", g.Name)
		}
		groupNames[g.Name] = true
		if len(g.Options) == 0 {
			add(field+".options", "group %q has no options", g.Name)
		}
		validateVocabulary(&errs, field+".options", g.Options)
	}

	validateItems(&errs, d, groupNames)
	validateSubscales(&errs, d)
	validateRules(&errs, d)

	return errs
}

// validateVocabulary checks option value uniqueness within one vocabulary.
func validateVocabulary(errs *ValidationErrors, field string, options []ResponseOption) {
	seen := make(map[string]bool, len(options))
	for i, o := range options {
		if o.Value == "" {
			*errs = append(*errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d].value", field, i),
				Message: "is required",
			})
			continue
		}
		if seen[o.Value] {
			*errs = append(*errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d].value", field, i),
				Message: fmt.Sprintf("duplicate option value %q", o.Value),
			})
		}
		seen[o.Value] = true
	}
}

func validateItems(errs *ValidationErrors, d *ScaleDefinition, groupNames map[string]bool) {
	add := func(field, format string, args ...interface{}) {
		*errs = append(*errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(d.Items) != d.ItemCount {
		add("items", "declared item_count %d but found %d items", d.ItemCount, len(d.Items))
	}

	seen := make(map[int]bool, len(d.Items))
	for i, item := range d.Items {
		field := fmt.Sprintf("items[%d]", i)
		if seen[item.Number] {
			add(field+".number", "duplicate item number %d", item.Number)
		}
		seen[item.Number] = true
		if item.Number != i+1 {
			add(field+".number", "expected consecutive number %d, got %d", i+1, item.Number)
		}
		if item.Text == "" {
			add(field+".text", "is required")
		}

		// Exactly one response source: own options, a group reference, or
		// the scale's global vocabulary.
		hasOwn := len(item.Options) > 0
		hasGroup := item.GroupName != ""
		if hasOwn && hasGroup {
			add(field, "item %d declares both its own options and group %q", item.Number, item.GroupName)
		}
		if hasOwn {
			validateVocabulary(errs, field+".options", item.Options)
		}
		if hasGroup && !groupNames[item.GroupName] {
			add(field+".group_name", "item %d references unknown group %q", item.Number, item.GroupName)
		}
		if !hasOwn && !hasGroup && len(d.Options) == 0 {
			add(field, "item %d has no response source and the scale has no global options", item.Number)
		}

		if item.AlertTrigger && item.AlertCondition == nil {
			add(field+".alert_condition", "item %d has alert_trigger without a condition", item.Number)
		}
		if item.AlertCondition != nil {
			switch item.AlertCondition.Op {
			case OpEquals, OpAtLeast, OpAbove:
			default:
				add(field+".alert_condition.op", "unknown operator %q", item.AlertCondition.Op)
			}
		}
	}
}

func validateSubscales(errs *ValidationErrors, d *ScaleDefinition) {
	add := func(field, format string, args ...interface{}) {
		*errs = append(*errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	names := make(map[string]bool, len(d.Subscales))
	for i, sub := range d.Subscales {
		field := fmt.Sprintf("subscales[%d]", i)
		if sub.Name == "" {
			add(field+".name", "is required")
		} else if names[sub.Name] {
			add(field+".name", "duplicate subscale name %q", sub.Name)
		}
		names[sub.Name] = true
		if len(sub.ItemNumbers) == 0 {
			add(field+".item_numbers", "subscale %q aggregates no items", sub.Name)
		}
		for _, n := range sub.ItemNumbers {
			if n < 1 || n > len(d.Items) || d.ItemByNumber(n) == nil {
				add(field+".item_numbers", "subscale %q references unknown item %d", sub.Name, n)
			}
		}
		if sub.MaxScore <= sub.MinScore {
			add(field, "subscale %q score range [%d, %d] is empty", sub.Name, sub.MinScore, sub.MaxScore)
		}
	}
}

// validateRules checks that interpretation bands are contiguous,
// non-overlapping and jointly cover [ScoreRangeMin, ScoreRangeMax].
func validateRules(errs *ValidationErrors, d *ScaleDefinition) {
	add := func(field, format string, args ...interface{}) {
		*errs = append(*errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(d.Rules) == 0 {
		add("rules", "at least one interpretation rule is required")
		return
	}
	if d.ScoreRangeMax < d.ScoreRangeMin {
		add("score_range", "[%d, %d] is empty", d.ScoreRangeMin, d.ScoreRangeMax)
		return
	}

	rules := make([]InterpretationRule, len(d.Rules))
	copy(rules, d.Rules)
	sort.Slice(rules, func(i, j int) bool { return rules[i].MinScore < rules[j].MinScore })

	severities := make(map[string]bool, len(rules))
	for i, r := range rules {
		field := fmt.Sprintf("rules[%d]", i)
		if r.Severity == "" {
			add(field+".severity", "is required")
		} else if severities[r.Severity] {
			add(field+".severity", "duplicate severity %q", r.Severity)
		}
		severities[r.Severity] = true
		if r.MaxScore < r.MinScore {
			add(field, "band [%d, %d] is empty", r.MinScore, r.MaxScore)
			return
		}
	}

	if rules[0].MinScore != d.ScoreRangeMin {
		add("rules", "bands start at %d, score range starts at %d", rules[0].MinScore, d.ScoreRangeMin)
	}
	for i := 1; i < len(rules); i++ {
		prev, cur := rules[i-1], rules[i]
		if cur.MinScore != prev.MaxScore+1 {
			add("rules", "band %q [%d, %d] does not follow %q [%d, %d]",
				cur.Severity, cur.MinScore, cur.MaxScore, prev.Severity, prev.MinScore, prev.MaxScore)
		}
	}
	if last := rules[len(rules)-1]; last.MaxScore != d.ScoreRangeMax {
		add("rules", "bands end at %d, score range ends at %d", last.MaxScore, d.ScoreRangeMax)
	}
}
