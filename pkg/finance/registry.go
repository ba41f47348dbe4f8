package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/moneyboard/moneyboard/internal/event_bus"
	"github.com/moneyboard/moneyboard/pkg/entity"
	log "github.com/sirupsen/logrus"
)

type (
	ExpandedAccount     = entity.Expanded[Account, AccountType]
	ExpandedCategory    = entity.Expanded[Category, CategoryType]
	ExpandedAccountType = entity.Expanded[AccountType, LiquidityType]
)

// Registry owns one entity store per kind for a single session owner.
type Registry struct {
	owner  string
	closed atomic.Bool

	Assets         *entity.Store[int, Asset]
	Accounts       *entity.Store[int, Account]
	Categories     *entity.Store[int, Category]
	AccountTypes   *entity.Store[int, AccountType]
	CategoryTypes  *entity.Store[int, CategoryType]
	LiquidityTypes *entity.Store[string, LiquidityType]

	accounts     *entity.Expander[int, Account, int, AccountType]
	categories   *entity.Expander[int, Category, int, CategoryType]
	accountTypes *entity.Expander[int, AccountType, string, LiquidityType]
}

// NewRegistry creates empty stores. When bus is not nil every store mutation
// is published as an event_bus.EntitiesChanged carrying the full snapshot.
func NewRegistry(owner string, bus *event_bus.EventBus) *Registry {
	r := &Registry{owner: owner}
	r.Assets = entity.NewStore[int, Asset](string(KindAssets), publisher[int, Asset](r, bus)...)
	r.Accounts = entity.NewStore[int, Account](string(KindAccounts), publisher[int, Account](r, bus)...)
	r.Categories = entity.NewStore[int, Category](string(KindCategories), publisher[int, Category](r, bus)...)
	r.AccountTypes = entity.NewStore[int, AccountType](string(KindAccountTypes), publisher[int, AccountType](r, bus)...)
	r.CategoryTypes = entity.NewStore[int, CategoryType](string(KindCategoryTypes), publisher[int, CategoryType](r, bus)...)
	r.LiquidityTypes = entity.NewStore[string, LiquidityType](string(KindLiquidityTypes), publisher[string, LiquidityType](r, bus)...)

	r.accounts = entity.NewExpander(r.Accounts, r.AccountTypes, func(a Account) int { return a.AccountTypeId })
	r.categories = entity.NewExpander(r.Categories, r.CategoryTypes, func(c Category) int { return c.CategoryTypeId })
	r.accountTypes = entity.NewExpander(r.AccountTypes, r.LiquidityTypes, func(t AccountType) string { return t.LiquidityTypeId })
	return r
}

func (r *Registry) Owner() string {
	return r.owner
}

// Close stops publishing changes. The stores stay readable and writable for
// requests that still hold them.
func (r *Registry) Close() {
	r.closed.Store(true)
}

func (r *Registry) ExpandedAccounts() []ExpandedAccount {
	return r.accounts.Expand()
}

func (r *Registry) ExpandedCategories() []ExpandedCategory {
	return r.categories.Expand()
}

func (r *Registry) ExpandedAccountTypes() []ExpandedAccountType {
	return r.accountTypes.Expand()
}

// MergeLookups adds every embedded lookup table to its store.
func (r *Registry) MergeLookups(l Lookups) {
	r.Assets.Add(l.Assets)
	r.Accounts.Add(l.Accounts)
	r.Categories.Add(l.Categories)
}

// Records serializes the current content of one kind in store order.
func (r *Registry) Records(kind Kind) ([]event_bus.Record, error) {
	switch kind {
	case KindAssets:
		return Records[int](r.Assets.Snapshot().Items)
	case KindAccounts:
		return Records[int](r.Accounts.Snapshot().Items)
	case KindCategories:
		return Records[int](r.Categories.Snapshot().Items)
	case KindAccountTypes:
		return Records[int](r.AccountTypes.Snapshot().Items)
	case KindCategoryTypes:
		return Records[int](r.CategoryTypes.Snapshot().Items)
	case KindLiquidityTypes:
		return Records[string](r.LiquidityTypes.Snapshot().Items)
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

// Seed decodes persisted payloads of one kind and seeds its store without
// publishing a change.
func (r *Registry) Seed(kind Kind, payloads []json.RawMessage) error {
	switch kind {
	case KindAssets:
		return seed(r.Assets, payloads)
	case KindAccounts:
		return seed(r.Accounts, payloads)
	case KindCategories:
		return seed(r.Categories, payloads)
	case KindAccountTypes:
		return seed(r.AccountTypes, payloads)
	case KindCategoryTypes:
		return seed(r.CategoryTypes, payloads)
	case KindLiquidityTypes:
		return seed(r.LiquidityTypes, payloads)
	}
	return fmt.Errorf("unknown entity kind %q", kind)
}

func Records[K comparable, E entity.Keyed[K]](items []E) ([]event_bus.Record, error) {
	records := make([]event_bus.Record, 0, len(items))
	for _, e := range items {
		payload, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %v: %w", e.EntityKey(), err)
		}
		records = append(records, event_bus.Record{Key: fmt.Sprint(e.EntityKey()), Payload: payload})
	}
	return records, nil
}

func seed[K comparable, E entity.Keyed[K]](store *entity.Store[K, E], payloads []json.RawMessage) error {
	items := make([]E, 0, len(payloads))
	for _, p := range payloads {
		var e E
		if err := json.Unmarshal(p, &e); err != nil {
			return fmt.Errorf("failed to decode %s record: %w", store.Kind(), err)
		}
		items = append(items, e)
	}
	store.Seed(items)
	return nil
}

func publisher[K comparable, E entity.Keyed[K]](r *Registry, bus *event_bus.EventBus) []entity.Option[K, E] {
	if bus == nil {
		return nil
	}
	return []entity.Option[K, E]{entity.WithNotifier(func(c entity.Change[K, E]) {
		if r.closed.Load() {
			log.Debugf("dropping %s change of closed registry of %s", c.Kind, r.owner)
			return
		}
		records, err := Records[K](c.Snapshot.Items)
		if err != nil {
			log.Errorf("failed to serialize %s change: %v", c.Kind, err)
			return
		}
		event := event_bus.NewEvent(context.Background(), event_bus.EntitiesChangedType, event_bus.EntitiesChanged{
			Owner:   r.owner,
			Kind:    c.Kind,
			Op:      string(c.Op),
			Version: c.Snapshot.Version,
			Records: records,
		})
		if err := bus.Publish(event); err != nil {
			log.Warnf("publishing %s change for %s: %v", c.Kind, r.owner, err)
		}
	})}
}
