// Package picker implements a headless, searchable, optionally grouped
// single-select control over selectable options.
package picker

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moneyboard/moneyboard/internal/utils"
	"github.com/moneyboard/moneyboard/pkg/option"
)

var ErrUnknownOption = errors.New("option not found")

type SearchState string

const (
	SearchIdle      SearchState = "idle"
	SearchSearching SearchState = "searching"
)

type Config struct {
	ID string
	// Source returns the current options. It is called on every read.
	Source func() []option.Option
	// Value, when set, puts the combobox in controlled mode: the selection is
	// owned by the caller and only reported through OnChange.
	Value    func() string
	OnChange func(option.Option)
	// OnSearch receives the raw query once typing paused for Debounce.
	OnSearch func(string)
	Debounce time.Duration
	Clock    utils.Clock
}

type Combobox struct {
	id       string
	source   func() []option.Option
	value    func() string
	onChange func(option.Option)
	onSearch func(string)
	debounce *Debouncer[string]

	mu       sync.Mutex
	open     bool
	query    string
	search   SearchState
	selected string
	inFlight int
}

func New(cfg Config) *Combobox {
	c := &Combobox{
		id:       cfg.ID,
		source:   cfg.Source,
		value:    cfg.Value,
		onChange: cfg.OnChange,
		onSearch: cfg.OnSearch,
		search:   SearchIdle,
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	if c.source == nil {
		c.source = func() []option.Option { return nil }
	}
	c.debounce = NewDebouncer(cfg.Clock, cfg.Debounce, c.emitSearch)
	return c
}

func (c *Combobox) ID() string {
	return c.id
}

func (c *Combobox) Controlled() bool {
	return c.value != nil
}

func (c *Combobox) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
}

func (c *Combobox) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = !c.open
}

// Dismiss closes the list, as an outside click or escape would.
func (c *Combobox) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
}

func (c *Combobox) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Type records the query text, opens the list and restarts the search debounce.
func (c *Combobox) Type(text string) {
	c.mu.Lock()
	c.query = text
	c.open = true
	c.search = SearchSearching
	c.mu.Unlock()

	c.debounce.Trigger(text)
}

func (c *Combobox) emitSearch(text string) {
	c.mu.Lock()
	c.search = SearchIdle
	c.mu.Unlock()

	if c.onSearch != nil {
		c.onSearch(text)
	}
}

func (c *Combobox) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

func (c *Combobox) SearchState() SearchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search
}

// BeginFetch and EndFetch bracket an asynchronous search started by the owner
// of the combobox. Fetching stays true until every started fetch ended.
func (c *Combobox) BeginFetch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight++
}

func (c *Combobox) EndFetch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight > 0 {
		c.inFlight--
	}
}

func (c *Combobox) Fetching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

// Options returns the current options filtered by the query.
func (c *Combobox) Options() []option.Option {
	return Filter(c.source(), c.Query())
}

func (c *Combobox) Sections() []Section {
	return Group(c.Options())
}

// Select picks the option with the given key among the current, unfiltered
// options and closes the list.
func (c *Combobox) Select(key string) error {
	o, ok := Find(c.source(), key)
	if !ok {
		return ErrUnknownOption
	}

	c.mu.Lock()
	if c.value == nil {
		c.selected = o.Key()
	}
	c.open = false
	c.query = ""
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(o)
	}
	return nil
}

// Clear drops the selection. In controlled mode it reports nil via OnChange.
func (c *Combobox) Clear() {
	c.mu.Lock()
	if c.value == nil {
		c.selected = ""
	}
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(nil)
	}
}

func (c *Combobox) SelectedKey() string {
	if c.value != nil {
		return c.value()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Selected resolves the selected key against the current options.
func (c *Combobox) Selected() (option.Option, bool) {
	key := c.SelectedKey()
	if key == "" {
		return nil, false
	}
	return Find(c.source(), key)
}

func (c *Combobox) IsSelected(o option.Option) bool {
	key := c.SelectedKey()
	return key != "" && o != nil && o.Key() == key
}

// Release cancels a pending debounced search.
func (c *Combobox) Release() {
	c.debounce.Stop()
}

type View struct {
	ID            string      `json:"id"`
	Open          bool        `json:"open"`
	Query         string      `json:"query"`
	Search        SearchState `json:"search"`
	Fetching      bool        `json:"fetching"`
	Controlled    bool        `json:"controlled"`
	SelectedKey   string      `json:"selectedKey,omitempty"`
	SelectedLabel string      `json:"selectedLabel,omitempty"`
	Sections      []Section   `json:"-"`
}

func (c *Combobox) View() View {
	c.mu.Lock()
	v := View{
		ID:       c.id,
		Open:     c.open,
		Query:    c.query,
		Search:   c.search,
		Fetching: c.inFlight > 0,
	}
	c.mu.Unlock()

	v.Controlled = c.Controlled()
	v.SelectedKey = c.SelectedKey()
	if o, ok := c.Selected(); ok {
		v.SelectedLabel = o.Label()
	}
	v.Sections = Group(Filter(c.source(), v.Query))
	return v
}
