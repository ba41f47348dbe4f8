package picker

import "github.com/moneyboard/moneyboard/pkg/option"

type OptionView struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Icon     string `json:"icon,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

type SectionView struct {
	Key     string       `json:"key,omitempty"`
	Label   string       `json:"label,omitempty"`
	Options []OptionView `json:"options"`
}

// Render turns sections into their wire form, marking the option whose key
// equals selectedKey.
func Render(sections []Section, selectedKey string) []SectionView {
	out := make([]SectionView, 0, len(sections))
	for _, s := range sections {
		view := SectionView{Key: s.Key, Label: s.Label, Options: make([]OptionView, 0, len(s.Options))}
		for _, o := range s.Options {
			view.Options = append(view.Options, OptionView{
				Key:      o.Key(),
				Label:    o.Label(),
				Icon:     option.IconOf(o),
				Selected: selectedKey != "" && o.Key() == selectedKey,
			})
		}
		out = append(out, view)
	}
	return out
}
