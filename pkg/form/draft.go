package form

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moneyboard/moneyboard/internal/utils"
	"github.com/moneyboard/moneyboard/pkg/catalog"
	"github.com/moneyboard/moneyboard/pkg/finance"
	"github.com/moneyboard/moneyboard/pkg/option"
	"github.com/moneyboard/moneyboard/pkg/picker"
	"github.com/moneyboard/moneyboard/pkg/session"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrIncomplete = errors.New("transaction form is incomplete")
var ErrUnknownField = errors.New("unknown form field")

const DateLayout = "2006-01-02"

// searchTimeout bounds one server-side search started by typing.
const searchTimeout = 10 * time.Second

type Field string

const (
	FieldAsset    Field = "asset"
	FieldAccount  Field = "account"
	FieldCategory Field = "category"
)

var Fields = []Field{FieldAsset, FieldAccount, FieldCategory}

func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

func (f Field) Kind() finance.Kind {
	switch f {
	case FieldAsset:
		return finance.KindAssets
	case FieldAccount:
		return finance.KindAccounts
	case FieldCategory:
		return finance.KindCategories
	}
	return ""
}

// Details are the free-form inputs of the form. Date is empty for today.
type Details struct {
	Date     string `json:"date"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
	Note     string `json:"note"`
}

type search struct {
	generation uint64
	cancel     context.CancelFunc
}

// Draft is a transaction being entered. Its three pickers are controlled:
// the draft owns the selected keys.
type Draft struct {
	Id      uuid.UUID
	Owner   string
	Created time.Time

	catalog catalog.Service
	clock   utils.Clock
	// base carries the session into searches fired from debounce timers.
	base context.Context

	fields map[Field]*picker.Combobox

	mu       sync.Mutex
	values   map[Field]string
	details  Details
	searches map[Field]search
	nextGen  uint64
	lastUsed time.Time
}

func newDraft(sess *session.Session, cat catalog.Service, clock utils.Clock, debounce time.Duration) *Draft {
	d := &Draft{
		Id:       uuid.New(),
		Owner:    sess.Owner,
		Created:  clock.Now(),
		lastUsed: clock.Now(),
		catalog:  cat,
		clock:    clock,
		base:     session.WithSession(context.Background(), sess),
		fields:   make(map[Field]*picker.Combobox, len(Fields)),
		values:   make(map[Field]string, len(Fields)),
		searches: make(map[Field]search),
	}
	for _, field := range Fields {
		var cb *picker.Combobox
		cb = picker.New(picker.Config{
			ID:       d.Id.String() + "-" + string(field),
			Source:   func() []option.Option { return option.ForKind(sess.Registry, field.Kind()) },
			Value:    func() string { return d.value(field) },
			OnChange: func(o option.Option) { d.setValue(field, o) },
			OnSearch: func(text string) { d.search(field, cb, text) },
			Debounce: debounce,
			Clock:    clock,
		})
		d.fields[field] = cb
	}
	return d
}

func (d *Draft) touch(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastUsed = now
}

// LastUsed is the last time the draft was read or changed through the service.
func (d *Draft) LastUsed() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastUsed
}

func (d *Draft) value(field Field) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values[field]
}

func (d *Draft) setValue(field Field, o option.Option) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o == nil {
		delete(d.values, field)
		return
	}
	d.values[field] = o.Key()
}

// search runs one server-side search for field, cancelling the one still
// running for the same field.
func (d *Draft) search(field Field, cb *picker.Combobox, text string) {
	if text == "" {
		return
	}
	ctx, cancel := context.WithTimeout(d.base, searchTimeout)
	d.mu.Lock()
	if previous, ok := d.searches[field]; ok {
		previous.cancel()
	}
	d.nextGen++
	gen := d.nextGen
	d.searches[field] = search{generation: gen, cancel: cancel}
	d.mu.Unlock()

	cb.BeginFetch()
	defer func() {
		cb.EndFetch()
		cancel()
		d.mu.Lock()
		if current, ok := d.searches[field]; ok && current.generation == gen {
			delete(d.searches, field)
		}
		d.mu.Unlock()
	}()

	if err := d.catalog.Search(ctx, field.Kind(), text); err != nil {
		if ctx.Err() != nil {
			log.Debugf("search of %s for %q superseded: %v", field, text, err)
			return
		}
		log.Warnf("search of %s for %q failed: %v", field, text, err)
	}
}

func (d *Draft) Field(field Field) (*picker.Combobox, error) {
	cb, ok := d.fields[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return cb, nil
}

func (d *Draft) SetDetails(details Details) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.details = details
}

func (d *Draft) Details() Details {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.details
}

// CanSubmit reports whether every picker has a selection that still resolves
// and the details parse.
func (d *Draft) CanSubmit() bool {
	_, err := d.transaction()
	return err == nil
}

// Release stops pending debounced searches and cancels running ones.
func (d *Draft) Release() {
	for _, cb := range d.fields {
		cb.Release()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for field, s := range d.searches {
		s.cancel()
		delete(d.searches, field)
	}
}

func (d *Draft) transaction() (finance.Transaction, error) {
	var tx finance.Transaction
	ids := make(map[Field]int, len(Fields))
	for _, f := range Fields {
		selected, ok := d.fields[f].Selected()
		if !ok {
			return tx, fmt.Errorf("%w: %s is not selected", ErrIncomplete, f)
		}
		id, err := strconv.Atoi(selected.Key())
		if err != nil {
			return tx, fmt.Errorf("%w: invalid %s key %q", ErrIncomplete, f, selected.Key())
		}
		ids[f] = id
	}

	details := d.Details()
	quantity, err := decimal.NewFromString(details.Quantity)
	if err != nil {
		return tx, fmt.Errorf("%w: invalid quantity: %v", ErrIncomplete, err)
	}
	price, err := decimal.NewFromString(details.Price)
	if err != nil {
		return tx, fmt.Errorf("%w: invalid price: %v", ErrIncomplete, err)
	}
	date := d.clock.Now().UTC().Truncate(24 * time.Hour)
	if details.Date != "" {
		date, err = time.Parse(DateLayout, details.Date)
		if err != nil {
			return tx, fmt.Errorf("%w: invalid date: %v", ErrIncomplete, err)
		}
	}

	return finance.Transaction{
		Date:       date,
		AssetId:    ids[FieldAsset],
		AccountId:  ids[FieldAccount],
		CategoryId: ids[FieldCategory],
		Quantity:   quantity,
		Price:      price,
		Note:       details.Note,
	}, nil
}

type FieldView struct {
	picker.View
	Kind finance.Kind         `json:"kind"`
	List []picker.SectionView `json:"sections,omitempty"`
}

type DraftView struct {
	Id        uuid.UUID   `json:"id"`
	Fields    []FieldView `json:"fields"`
	Details   Details     `json:"details"`
	Amount    string      `json:"amount,omitempty"`
	CanSubmit bool        `json:"can_submit"`
}

// View renders the draft. Option lists are only rendered for open pickers.
func (d *Draft) View() DraftView {
	view := DraftView{Id: d.Id, Details: d.Details()}
	for _, f := range Fields {
		v := d.fields[f].View()
		fv := FieldView{View: v, Kind: f.Kind()}
		if v.Open {
			fv.List = picker.Render(v.Sections, v.SelectedKey)
		}
		view.Fields = append(view.Fields, fv)
	}
	if tx, err := d.transaction(); err == nil {
		view.CanSubmit = true
		view.Amount = tx.Amount().String()
		if asset, ok := d.fields[FieldAsset].Selected(); ok {
			if a, isAsset := asset.(option.AssetOption); isAsset {
				view.Amount = finance.DisplayAmount(tx.Amount(), a.Asset.Currency)
			}
		}
	}
	return view
}
