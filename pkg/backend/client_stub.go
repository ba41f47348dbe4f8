package backend

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/moneyboard/moneyboard/pkg/finance"
)

var ErrClientTestError = errors.New("client test error")

// ClientStub serves canned data. Lists are filtered by a case-insensitive
// name match and paginated by PageSize (0 means a single page).
type ClientStub struct {
	mu             sync.RWMutex
	PageSize       int
	assets         []finance.Asset
	accounts       []finance.Account
	categories     []finance.Category
	accountTypes   []finance.AccountType
	categoryTypes  []finance.CategoryType
	liquidityTypes []finance.LiquidityType
	transactions   map[int]TransactionPage
	created        []finance.Transaction
	errs           map[string]error
	calls          map[string]int
	nextId         int
}

func NewClientStub() *ClientStub {
	return &ClientStub{
		transactions: make(map[int]TransactionPage),
		errs:         make(map[string]error),
		calls:        make(map[string]int),
		nextId:       1000,
	}
}

func stubPage[T any](items []T, name func(T) string, q Query, size int) Page[T] {
	filtered := make([]T, 0, len(items))
	needle := strings.ToLower(q.Search)
	for _, it := range items {
		if needle == "" || strings.Contains(strings.ToLower(name(it)), needle) {
			filtered = append(filtered, it)
		}
	}
	if size <= 0 {
		return Page[T]{Items: filtered}
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(filtered) {
		return Page[T]{Items: []T{}}
	}
	end := start + size
	next := page + 1
	if end >= len(filtered) {
		end = len(filtered)
		next = 0
	}
	return Page[T]{Items: filtered[start:end], NextPage: next}
}

func (c *ClientStub) enter(op string) error {
	c.calls[op]++
	return c.errs[op]
}

func (c *ClientStub) ListAssets(ctx context.Context, q Query) (Page[finance.Asset], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("ListAssets"); err != nil {
		return Page[finance.Asset]{}, err
	}
	return stubPage(c.assets, func(a finance.Asset) string { return a.Name + " " + a.Symbol }, q, c.PageSize), nil
}

func (c *ClientStub) ListAccounts(ctx context.Context, q Query) (Page[finance.Account], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("ListAccounts"); err != nil {
		return Page[finance.Account]{}, err
	}
	return stubPage(c.accounts, func(a finance.Account) string { return a.Name }, q, c.PageSize), nil
}

func (c *ClientStub) ListCategories(ctx context.Context, q Query) (Page[finance.Category], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("ListCategories"); err != nil {
		return Page[finance.Category]{}, err
	}
	return stubPage(c.categories, func(x finance.Category) string { return x.Name }, q, c.PageSize), nil
}

func (c *ClientStub) ListAccountTypes(ctx context.Context, q Query) (Page[finance.AccountType], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("ListAccountTypes"); err != nil {
		return Page[finance.AccountType]{}, err
	}
	return stubPage(c.accountTypes, func(x finance.AccountType) string { return x.Name }, q, c.PageSize), nil
}

func (c *ClientStub) ListCategoryTypes(ctx context.Context, q Query) (Page[finance.CategoryType], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("ListCategoryTypes"); err != nil {
		return Page[finance.CategoryType]{}, err
	}
	return stubPage(c.categoryTypes, func(x finance.CategoryType) string { return x.Name }, q, c.PageSize), nil
}

func (c *ClientStub) ListLiquidityTypes(ctx context.Context, q Query) (Page[finance.LiquidityType], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("ListLiquidityTypes"); err != nil {
		return Page[finance.LiquidityType]{}, err
	}
	return stubPage(c.liquidityTypes, func(x finance.LiquidityType) string { return x.Name }, q, c.PageSize), nil
}

func (c *ClientStub) ListTransactions(ctx context.Context, page int) (TransactionPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("ListTransactions"); err != nil {
		return TransactionPage{}, err
	}
	return c.transactions[page], nil
}

func (c *ClientStub) CreateTransaction(ctx context.Context, tx finance.Transaction) (finance.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CreateTransaction"); err != nil {
		return finance.Transaction{}, err
	}
	c.nextId++
	tx.Id = c.nextId
	c.created = append(c.created, tx)
	return tx, nil
}

func (c *ClientStub) CreateCategory(ctx context.Context, category finance.Category) (finance.Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CreateCategory"); err != nil {
		return finance.Category{}, err
	}
	c.nextId++
	category.Id = c.nextId
	c.categories = append(c.categories, category)
	return category, nil
}

func (c *ClientStub) UpdateCategory(ctx context.Context, category finance.Category) (finance.Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("UpdateCategory"); err != nil {
		return finance.Category{}, err
	}
	for i := range c.categories {
		if c.categories[i].Id == category.Id {
			c.categories[i] = category
			return category, nil
		}
	}
	return finance.Category{}, &StatusError{Code: 404, Body: "category not found"}
}

func (c *ClientStub) DeleteCategory(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("DeleteCategory"); err != nil {
		return err
	}
	for i := range c.categories {
		if c.categories[i].Id == id {
			c.categories = append(c.categories[:i:i], c.categories[i+1:]...)
			return nil
		}
	}
	return &StatusError{Code: 404, Body: "category not found"}
}

func (c *ClientStub) CreateAccount(ctx context.Context, account finance.Account) (finance.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CreateAccount"); err != nil {
		return finance.Account{}, err
	}
	c.nextId++
	account.Id = c.nextId
	c.accounts = append(c.accounts, account)
	return account, nil
}

func (c *ClientStub) UpdateAccount(ctx context.Context, account finance.Account) (finance.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("UpdateAccount"); err != nil {
		return finance.Account{}, err
	}
	for i := range c.accounts {
		if c.accounts[i].Id == account.Id {
			c.accounts[i] = account
			return account, nil
		}
	}
	return finance.Account{}, &StatusError{Code: 404, Body: "account not found"}
}

func (c *ClientStub) DeleteAccount(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("DeleteAccount"); err != nil {
		return err
	}
	for i := range c.accounts {
		if c.accounts[i].Id == id {
			c.accounts = append(c.accounts[:i:i], c.accounts[i+1:]...)
			return nil
		}
	}
	return &StatusError{Code: 404, Body: "account not found"}
}

// Helper methods for test setup

func (c *ClientStub) SetAssets(assets ...finance.Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets = append([]finance.Asset(nil), assets...)
}

func (c *ClientStub) SetAccounts(accounts ...finance.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts = append([]finance.Account(nil), accounts...)
}

func (c *ClientStub) SetCategories(categories ...finance.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = append([]finance.Category(nil), categories...)
}

func (c *ClientStub) SetAccountTypes(types ...finance.AccountType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountTypes = append([]finance.AccountType(nil), types...)
}

func (c *ClientStub) SetCategoryTypes(types ...finance.CategoryType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categoryTypes = append([]finance.CategoryType(nil), types...)
}

func (c *ClientStub) SetLiquidityTypes(types ...finance.LiquidityType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liquidityTypes = append([]finance.LiquidityType(nil), types...)
}

func (c *ClientStub) SetTransactions(page int, tp TransactionPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[page] = tp
}

// SetError makes the named operation fail until it is reset with a nil error.
func (c *ClientStub) SetError(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, op)
		return
	}
	c.errs[op] = err
}

func (c *ClientStub) Calls(op string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[op]
}

func (c *ClientStub) CreatedTransactions() []finance.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]finance.Transaction(nil), c.created...)
}

func (c *ClientStub) Categories() []finance.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]finance.Category(nil), c.categories...)
}
