package catalog

import (
	"fmt"
	"sort"
)

// ResolveOptions returns the response vocabulary that applies to an item.
// Priority: the item's own options, then its named group, then the scale's
// global vocabulary. Validation guarantees exactly one source exists, so on
// a validated definition this never fails; the error path is reachable only
// for definitions that bypassed validation, which are not administrable.
func ResolveOptions(d *ScaleDefinition, item *Item) ([]ResponseOption, error) {
	var source []ResponseOption
	switch {
	case len(item.Options) > 0:
		source = item.Options
	case item.GroupName != "":
		g := d.GroupByName(item.GroupName)
		if g == nil {
			return nil, fmt.Errorf("item %d references unknown response group %q", item.Number, item.GroupName)
		}
		source = g.Options
	case len(d.Options) > 0:
		source = d.Options
	default:
		return nil, fmt.Errorf("item %d has no response source", item.Number)
	}

	options := make([]ResponseOption, len(source))
	copy(options, source)
	sort.SliceStable(options, func(i, j int) bool { return options[i].OrderIndex < options[j].OrderIndex })
	return options, nil
}

// OptionByValue resolves an item's vocabulary and picks the option with the
// given value.
func OptionByValue(d *ScaleDefinition, item *Item, value string) (*ResponseOption, error) {
	options, err := ResolveOptions(d, item)
	if err != nil {
		return nil, err
	}
	for i := range options {
		if options[i].Value == value {
			return &options[i], nil
		}
	}
	return nil, fmt.Errorf("item %d has no option with value %q", item.Number, value)
}
