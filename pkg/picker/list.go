package picker

import (
	"strings"

	"github.com/moneyboard/moneyboard/pkg/option"
)

// Section is one block of the rendered list. The ungrouped section has an
// empty Key and always comes first.
type Section struct {
	Key     string
	Label   string
	Options []option.Option
}

// Matches reports whether query is a case-insensitive substring of the label
// or of any keyword. The query is used as typed, spaces included. The empty
// query matches everything.
func Matches(o option.Option, query string) bool {
	q := strings.ToLower(query)
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(o.Label()), q) {
		return true
	}
	for _, kw := range option.KeywordsOf(o) {
		if strings.Contains(strings.ToLower(kw), q) {
			return true
		}
	}
	return false
}

func Filter(options []option.Option, query string) []option.Option {
	out := make([]option.Option, 0, len(options))
	for _, o := range options {
		if Matches(o, query) {
			out = append(out, o)
		}
	}
	return out
}

// Group buckets options: ungrouped ones first in their original order, then
// one section per group key in first-seen order.
func Group(options []option.Option) []Section {
	var ungrouped []option.Option
	var groups []*Section
	byKey := make(map[string]*Section)

	for _, o := range options {
		key, label, ok := option.GroupOf(o)
		if !ok {
			ungrouped = append(ungrouped, o)
			continue
		}
		s, seen := byKey[key]
		if !seen {
			s = &Section{Key: key, Label: label}
			byKey[key] = s
			groups = append(groups, s)
		}
		s.Options = append(s.Options, o)
	}

	sections := make([]Section, 0, len(groups)+1)
	if len(ungrouped) > 0 {
		sections = append(sections, Section{Options: ungrouped})
	}
	for _, s := range groups {
		sections = append(sections, *s)
	}
	return sections
}

// SameKey is the selection equality: options are rebuilt on every read, so
// only their keys are compared.
func SameKey(a, b option.Option) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

func Find(options []option.Option, key string) (option.Option, bool) {
	for _, o := range options {
		if o.Key() == key {
			return o, true
		}
	}
	return nil, false
}
