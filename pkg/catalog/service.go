package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/moneyboard/moneyboard/pkg/backend"
	"github.com/moneyboard/moneyboard/pkg/boundary"
	"github.com/moneyboard/moneyboard/pkg/entity"
	"github.com/moneyboard/moneyboard/pkg/finance"
	"github.com/moneyboard/moneyboard/pkg/option"
	"github.com/moneyboard/moneyboard/pkg/picker"
	"github.com/moneyboard/moneyboard/pkg/session"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrUnknownKind = errors.New("unknown entity kind")

// maxPages bounds the walk over a lookup table in case the backend keeps
// returning a next page.
const maxPages = 50

// dependencies lists the kinds whose entities group the options of a kind.
var dependencies = map[finance.Kind]finance.Kind{
	finance.KindAccounts:     finance.KindAccountTypes,
	finance.KindCategories:   finance.KindCategoryTypes,
	finance.KindAccountTypes: finance.KindLiquidityTypes,
}

type Service interface {
	Options(ctx context.Context, kind finance.Kind, query string) ([]option.Option, error)
	Search(ctx context.Context, kind finance.Kind, text string) error
	Status(ctx context.Context, kind finance.Kind) (Status, error)
	Reset(ctx context.Context, kind finance.Kind) error
	Transactions(ctx context.Context, page int) (TransactionList, error)
	SaveCategory(ctx context.Context, c finance.Category) (finance.Category, error)
	DeleteCategory(ctx context.Context, id int) error
	SaveAccount(ctx context.Context, a finance.Account) (finance.Account, error)
	DeleteAccount(ctx context.Context, id int) error
}

type Status struct {
	Kind  finance.Kind   `json:"kind"`
	State boundary.State `json:"state"`
	Error string         `json:"error,omitempty"`
	Count int            `json:"count"`
}

type TransactionView struct {
	finance.Transaction
	AssetName     string          `json:"asset_name,omitempty"`
	AccountName   string          `json:"account_name,omitempty"`
	CategoryName  string          `json:"category_name,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	AmountDisplay string          `json:"amount_display"`
}

type TransactionList struct {
	Items    []TransactionView `json:"items"`
	NextPage int               `json:"next_page,omitempty"`
}

type ServiceImpl struct {
	client backend.Client
}

func NewService(client backend.Client) *ServiceImpl {
	return &ServiceImpl{client: client}
}

func ParseKind(s string) (finance.Kind, error) {
	kind, err := finance.ParseKind(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return kind, nil
}

func (s *ServiceImpl) boundaryFor(sess *session.Session, kind finance.Kind) *boundary.Boundary {
	return sess.Boundary(kind, func(ctx context.Context) error {
		return s.fetch(ctx, sess.Registry, kind, backend.Query{}, kind.LookupTable())
	})
}

// Options ensures the initial load of kind has run and returns the current
// options matching query. Groups that cannot be resolved because their own
// kind failed to load are rendered ungrouped.
func (s *ServiceImpl) Options(ctx context.Context, kind finance.Kind, query string) ([]option.Option, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	if dep, ok := dependencies[kind]; ok {
		if err := s.boundaryFor(sess, dep).Ensure(ctx); err != nil {
			log.Warnf("grouping of %s unavailable, %s failed to load: %v", kind, dep, err)
		}
	}
	if err := s.boundaryFor(sess, kind).Ensure(ctx); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", kind, err)
	}
	return picker.Filter(option.ForKind(sess.Registry, kind), query), nil
}

// Search asks the backend for entities matching text and merges them into the
// store of kind.
func (s *ServiceImpl) Search(ctx context.Context, kind finance.Kind, text string) error {
	sess, err := session.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.fetch(ctx, sess.Registry, kind, backend.Query{Search: text}, false); err != nil {
		return fmt.Errorf("failed to search %s for %q: %w", kind, text, err)
	}
	return nil
}

func (s *ServiceImpl) Status(ctx context.Context, kind finance.Kind) (Status, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return Status{}, err
	}
	status := Status{Kind: kind, State: boundary.Idle, Count: count(sess.Registry, kind)}
	if b, ok := sess.ExistingBoundary(kind); ok {
		status.State = b.State()
		if b.Err() != nil {
			status.Error = b.Err().Error()
		}
	}
	return status, nil
}

func (s *ServiceImpl) Reset(ctx context.Context, kind finance.Kind) error {
	sess, err := session.Current(ctx)
	if err != nil {
		return err
	}
	return s.boundaryFor(sess, kind).Reset(ctx)
}

// Transactions fetches one page of transactions, merges the embedded lookup
// tables and resolves the names of the referenced entities.
func (s *ServiceImpl) Transactions(ctx context.Context, page int) (TransactionList, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return TransactionList{}, err
	}
	result, err := s.client.ListTransactions(ctx, page)
	if err != nil {
		return TransactionList{}, fmt.Errorf("failed to list transactions: %w", err)
	}
	registry := sess.Registry
	registry.MergeLookups(result.Lookups)

	views := make([]TransactionView, 0, len(result.Items))
	for _, tx := range result.Items {
		view := TransactionView{Transaction: tx, Amount: tx.Amount(), AmountDisplay: tx.Amount().String()}
		if a, ok := registry.Assets.Get(tx.AssetId); ok {
			view.AssetName = a.Name
			view.AmountDisplay = finance.DisplayAmount(view.Amount, a.Currency)
		}
		if a, ok := registry.Accounts.Get(tx.AccountId); ok {
			view.AccountName = a.Name
		}
		if c, ok := registry.Categories.Get(tx.CategoryId); ok {
			view.CategoryName = c.Name
		}
		views = append(views, view)
	}
	return TransactionList{Items: views, NextPage: result.NextPage}, nil
}

func (s *ServiceImpl) SaveCategory(ctx context.Context, c finance.Category) (finance.Category, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return finance.Category{}, err
	}
	return save(ctx, sess.Registry.Categories, c, s.client.CreateCategory, s.client.UpdateCategory)
}

func (s *ServiceImpl) DeleteCategory(ctx context.Context, id int) error {
	sess, err := session.Current(ctx)
	if err != nil {
		return err
	}
	return remove(ctx, sess.Registry.Categories, id, s.client.DeleteCategory)
}

func (s *ServiceImpl) SaveAccount(ctx context.Context, a finance.Account) (finance.Account, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return finance.Account{}, err
	}
	return save(ctx, sess.Registry.Accounts, a, s.client.CreateAccount, s.client.UpdateAccount)
}

func (s *ServiceImpl) DeleteAccount(ctx context.Context, id int) error {
	sess, err := session.Current(ctx)
	if err != nil {
		return err
	}
	return remove(ctx, sess.Registry.Accounts, id, s.client.DeleteAccount)
}

// save creates e when its key is zero, otherwise updates it optimistically:
// the store shows the new version right away and gets the previous one back
// if the backend rejects the update.
func save[E entity.Keyed[int]](
	ctx context.Context,
	store *entity.Store[int, E],
	e E,
	create, update func(context.Context, E) (E, error),
) (E, error) {
	if e.EntityKey() == 0 {
		created, err := create(ctx, e)
		if err != nil {
			return created, fmt.Errorf("failed to create %s: %w", store.Kind(), err)
		}
		store.Add([]E{created})
		return created, nil
	}

	previous, existed := store.Get(e.EntityKey())
	store.Upsert([]E{e})
	updated, err := update(ctx, e)
	if err != nil {
		if existed {
			store.Upsert([]E{previous})
		} else {
			store.Remove(e.EntityKey())
		}
		log.Warnf("rolled back %s %d: %v", store.Kind(), e.EntityKey(), err)
		return updated, fmt.Errorf("failed to update %s %d: %w", store.Kind(), e.EntityKey(), err)
	}
	store.Upsert([]E{updated})
	return updated, nil
}

// remove drops the entity optimistically. On failure the entity is added back
// at the end of the store.
func remove[E entity.Keyed[int]](
	ctx context.Context,
	store *entity.Store[int, E],
	id int,
	del func(context.Context, int) error,
) error {
	previous, existed := store.Get(id)
	store.Remove(id)
	if err := del(ctx, id); err != nil {
		if existed {
			store.Add([]E{previous})
		}
		log.Warnf("rolled back removal of %s %d: %v", store.Kind(), id, err)
		return fmt.Errorf("failed to delete %s %d: %w", store.Kind(), id, err)
	}
	return nil
}

// fetch loads the first page, or every page when all is set, of kind into the
// registry.
func (s *ServiceImpl) fetch(ctx context.Context, r *finance.Registry, kind finance.Kind, q backend.Query, all bool) error {
	switch kind {
	case finance.KindAssets:
		return fetchPages(ctx, q, all, s.client.ListAssets, r.Assets.Add)
	case finance.KindAccounts:
		return fetchPages(ctx, q, all, s.client.ListAccounts, r.Accounts.Add)
	case finance.KindCategories:
		return fetchPages(ctx, q, all, s.client.ListCategories, r.Categories.Add)
	case finance.KindAccountTypes:
		return fetchPages(ctx, q, all, s.client.ListAccountTypes, r.AccountTypes.Add)
	case finance.KindCategoryTypes:
		return fetchPages(ctx, q, all, s.client.ListCategoryTypes, r.CategoryTypes.Add)
	case finance.KindLiquidityTypes:
		return fetchPages(ctx, q, all, s.client.ListLiquidityTypes, r.LiquidityTypes.Add)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func fetchPages[T any](
	ctx context.Context,
	q backend.Query,
	all bool,
	list func(context.Context, backend.Query) (backend.Page[T], error),
	add func([]T),
) error {
	if q.Page == 0 {
		q.Page = 1
	}
	for i := 0; i < maxPages; i++ {
		page, err := list(ctx, q)
		if err != nil {
			return err
		}
		add(page.Items)
		if !all || page.NextPage <= q.Page {
			return nil
		}
		q.Page = page.NextPage
	}
	log.Warnf("stopped paging after %d pages", maxPages)
	return nil
}

func count(r *finance.Registry, kind finance.Kind) int {
	switch kind {
	case finance.KindAssets:
		return r.Assets.Len()
	case finance.KindAccounts:
		return r.Accounts.Len()
	case finance.KindCategories:
		return r.Categories.Len()
	case finance.KindAccountTypes:
		return r.AccountTypes.Len()
	case finance.KindCategoryTypes:
		return r.CategoryTypes.Len()
	case finance.KindLiquidityTypes:
		return r.LiquidityTypes.Len()
	}
	return 0
}
