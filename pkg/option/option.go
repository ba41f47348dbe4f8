// Package option projects cached entities into the uniform shape consumed by
// pickers. An option is anything with a key and a label; icons, grouping and
// search keywords are optional capabilities discovered by type assertion.
package option

type Keyed interface {
	Key() string
}

type Labeled interface {
	Label() string
}

type Option interface {
	Keyed
	Labeled
}

type Iconed interface {
	Icon() string
}

// Grouped options are bucketed under their group key. ok is false for
// options that render ungrouped.
type Grouped interface {
	GroupKey() (key string, ok bool)
}

type GroupLabeled interface {
	GroupLabel() string
}

type Searchable interface {
	Keywords() []string
}

func IconOf(o Option) string {
	if i, ok := o.(Iconed); ok {
		return i.Icon()
	}
	return ""
}

// GroupOf returns the group of o. The label falls back to the key when o
// does not provide one.
func GroupOf(o Option) (key, label string, ok bool) {
	g, isGrouped := o.(Grouped)
	if !isGrouped {
		return "", "", false
	}
	key, ok = g.GroupKey()
	if !ok {
		return "", "", false
	}
	label = key
	if gl, hasLabel := o.(GroupLabeled); hasLabel {
		if l := gl.GroupLabel(); l != "" {
			label = l
		}
	}
	return key, label, true
}

func KeywordsOf(o Option) []string {
	if s, ok := o.(Searchable); ok {
		return s.Keywords()
	}
	return nil
}

// Static is a plain option value.
type Static struct {
	K          string
	L          string
	IconName   string
	Group      string
	GroupName  string
	SearchTags []string
}

func (s Static) Key() string   { return s.K }
func (s Static) Label() string { return s.L }
func (s Static) Icon() string  { return s.IconName }

func (s Static) GroupKey() (string, bool) {
	return s.Group, s.Group != ""
}

func (s Static) GroupLabel() string { return s.GroupName }
func (s Static) Keywords() []string { return s.SearchTags }
