package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/moneyboard/moneyboard/pkg/backend"
	"github.com/moneyboard/moneyboard/pkg/boundary"
	"github.com/moneyboard/moneyboard/pkg/finance"
	"github.com/moneyboard/moneyboard/pkg/option"
	"github.com/moneyboard/moneyboard/pkg/picker"
	"github.com/moneyboard/moneyboard/pkg/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (*ServiceImpl, *backend.ClientStub, context.Context, *session.Session) {
	stub := backend.NewClientStub()
	stub.SetAssets(
		finance.Asset{Id: 1, Name: "Euro", Symbol: "EUR", Currency: "EUR", Kind: "currency"},
		finance.Asset{Id: 2, Name: "US Dollar", Symbol: "USD", Currency: "USD", Kind: "currency"},
		finance.Asset{Id: 3, Name: "Bitcoin", Symbol: "BTC", Kind: "crypto"},
	)
	stub.SetAccountTypes(
		finance.AccountType{Id: 1, Name: "Checking", LiquidityTypeId: "liquid"},
		finance.AccountType{Id: 2, Name: "Brokerage", LiquidityTypeId: "invested"},
	)
	stub.SetAccounts(
		finance.Account{Id: 10, Name: "Main", AccountTypeId: 1},
		finance.Account{Id: 11, Name: "Broker", AccountTypeId: 2},
		finance.Account{Id: 12, Name: "Cash"},
	)
	stub.SetCategoryTypes(finance.CategoryType{Id: 1, Name: "Expense"})
	stub.SetCategories(
		finance.Category{Id: 20, Name: "Rent", CategoryTypeId: 1},
		finance.Category{Id: 21, Name: "Groceries", CategoryTypeId: 1},
	)
	stub.SetLiquidityTypes(
		finance.LiquidityType{Id: "liquid", Name: "Liquid"},
		finance.LiquidityType{Id: "invested", Name: "Invested"},
	)

	sess, err := session.NewManager(nil, nil).Open(context.Background(), "alice", "token")
	require.NoError(t, err)
	return NewService(stub), stub, session.WithSession(context.Background(), sess), sess
}

func keys(options []option.Option) []string {
	out := make([]string, 0, len(options))
	for _, o := range options {
		out = append(out, o.Key())
	}
	return out
}

func TestService_Options(t *testing.T) {
	t.Run("should load the first page once and filter locally", func(t *testing.T) {
		// given
		service, stub, ctx, _ := setupService(t)

		// when
		all, err1 := service.Options(ctx, finance.KindAssets, "")
		filtered, err2 := service.Options(ctx, finance.KindAssets, "usd")

		// then
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, []string{"1", "2", "3"}, keys(all))
		assert.Equal(t, []string{"2"}, keys(filtered))
		assert.Equal(t, 1, stub.Calls("ListAssets"))
	})

	t.Run("should group accounts by their account type", func(t *testing.T) {
		// given
		service, stub, ctx, _ := setupService(t)

		// when
		options, err := service.Options(ctx, finance.KindAccounts, "")

		// then
		require.NoError(t, err)
		sections := picker.Group(options)
		require.Len(t, sections, 3)
		assert.Equal(t, []string{"12"}, keys(sections[0].Options))
		assert.Equal(t, "Checking", sections[1].Label)
		assert.Equal(t, "Brokerage", sections[2].Label)
		assert.Equal(t, 1, stub.Calls("ListAccountTypes"))
	})

	t.Run("should still list accounts when their types fail to load", func(t *testing.T) {
		// given
		service, stub, ctx, _ := setupService(t)
		stub.SetError("ListAccountTypes", backend.ErrClientTestError)

		// when
		options, err := service.Options(ctx, finance.KindAccounts, "")

		// then
		require.NoError(t, err)
		sections := picker.Group(options)
		require.Len(t, sections, 1)
		assert.Len(t, sections[0].Options, 3)
	})

	t.Run("should load every page of a lookup table", func(t *testing.T) {
		// given
		service, stub, ctx, _ := setupService(t)
		stub.PageSize = 1

		// when
		options, err := service.Options(ctx, finance.KindLiquidityTypes, "")

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"liquid", "invested"}, keys(options))
		assert.Equal(t, 2, stub.Calls("ListLiquidityTypes"))
	})

	t.Run("should require a session", func(t *testing.T) {
		service, _, _, _ := setupService(t)

		_, err := service.Options(context.Background(), finance.KindAssets, "")

		assert.ErrorIs(t, err, session.ErrNoSession)
	})
}

func TestService_FailureAndReset(t *testing.T) {
	// given
	service, stub, ctx, _ := setupService(t)
	stub.SetError("ListCategories", backend.ErrClientTestError)

	// when
	_, err := service.Options(ctx, finance.KindCategories, "")
	status, statusErr := service.Status(ctx, finance.KindCategories)

	// then
	assert.ErrorIs(t, err, backend.ErrClientTestError)
	require.NoError(t, statusErr)
	assert.Equal(t, boundary.Error, status.State)
	assert.Contains(t, status.Error, "client test error")

	// when the failure is sticky
	_, err = service.Options(ctx, finance.KindCategories, "")
	assert.ErrorIs(t, err, backend.ErrClientTestError)
	assert.Equal(t, 1, stub.Calls("ListCategories"))

	// when reset after the backend recovered
	stub.SetError("ListCategories", nil)
	require.NoError(t, service.Reset(ctx, finance.KindCategories))
	status, _ = service.Status(ctx, finance.KindCategories)
	options, err := service.Options(ctx, finance.KindCategories, "")

	// then
	require.NoError(t, err)
	assert.Equal(t, boundary.Idle, status.State)
	assert.Empty(t, status.Error)
	assert.Equal(t, 2, status.Count)
	assert.Equal(t, []string{"20", "21"}, keys(options))
}

func TestService_StatusBeforeLoad(t *testing.T) {
	service, _, ctx, _ := setupService(t)

	status, err := service.Status(ctx, finance.KindAssets)

	require.NoError(t, err)
	assert.Equal(t, Status{Kind: finance.KindAssets, State: boundary.Idle}, status)
}

func TestService_Search(t *testing.T) {
	// given
	service, stub, ctx, sess := setupService(t)
	stub.PageSize = 1
	_, err := service.Options(ctx, finance.KindAssets, "")
	require.NoError(t, err)
	require.Equal(t, 1, sess.Registry.Assets.Len())

	// when
	err = service.Search(ctx, finance.KindAssets, "bit")
	require.NoError(t, err)
	err = service.Search(ctx, finance.KindAssets, "eur")
	require.NoError(t, err)

	// then
	options, err := service.Options(ctx, finance.KindAssets, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, keys(options))
}

func TestService_Transactions(t *testing.T) {
	// given
	service, stub, ctx, sess := setupService(t)
	stub.SetTransactions(1, backend.TransactionPage{
		Items: []finance.Transaction{{
			Id:         1,
			Date:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			AssetId:    2,
			AccountId:  10,
			CategoryId: 21,
			Quantity:   decimal.NewFromInt(3),
			Price:      decimal.RequireFromString("12.5"),
		}, {
			Id:       2,
			AssetId:  99,
			Quantity: decimal.NewFromInt(1),
			Price:    decimal.NewFromInt(1),
		}},
		Lookups: finance.Lookups{
			Assets:     []finance.Asset{{Id: 2, Name: "US Dollar", Currency: "USD"}},
			Accounts:   []finance.Account{{Id: 10, Name: "Main"}},
			Categories: []finance.Category{{Id: 21, Name: "Groceries"}},
		},
		NextPage: 2,
	})

	// when
	list, err := service.Transactions(ctx, 1)

	// then
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	first := list.Items[0]
	assert.Equal(t, "US Dollar", first.AssetName)
	assert.Equal(t, "Main", first.AccountName)
	assert.Equal(t, "Groceries", first.CategoryName)
	assert.True(t, decimal.RequireFromString("37.5").Equal(first.Amount))
	assert.Equal(t, "$37.50", first.AmountDisplay)
	assert.Empty(t, list.Items[1].AssetName)
	assert.Equal(t, "1", list.Items[1].AmountDisplay)
	assert.Equal(t, 2, list.NextPage)
	assert.Equal(t, 1, sess.Registry.Assets.Len())
	assert.Equal(t, 1, sess.Registry.Categories.Len())
}

func TestService_SaveCategory(t *testing.T) {
	t.Run("should create without touching the store on failure", func(t *testing.T) {
		service, stub, ctx, sess := setupService(t)
		stub.SetError("CreateCategory", backend.ErrClientTestError)

		_, err := service.SaveCategory(ctx, finance.Category{Name: "Travel"})

		assert.ErrorIs(t, err, backend.ErrClientTestError)
		assert.Equal(t, 0, sess.Registry.Categories.Len())
	})

	t.Run("should add a created category with its backend id", func(t *testing.T) {
		service, _, ctx, sess := setupService(t)

		created, err := service.SaveCategory(ctx, finance.Category{Name: "Travel"})

		require.NoError(t, err)
		assert.NotZero(t, created.Id)
		stored, ok := sess.Registry.Categories.Get(created.Id)
		require.True(t, ok)
		assert.Equal(t, "Travel", stored.Name)
	})

	t.Run("should update in place", func(t *testing.T) {
		service, stub, ctx, sess := setupService(t)
		_, err := service.Options(ctx, finance.KindCategories, "")
		require.NoError(t, err)

		_, err = service.SaveCategory(ctx, finance.Category{Id: 20, Name: "Housing", CategoryTypeId: 1})

		require.NoError(t, err)
		items := sess.Registry.Categories.Snapshot().Items
		assert.Equal(t, "Housing", items[0].Name)
		assert.Equal(t, "Housing", stub.Categories()[0].Name)
	})

	t.Run("should roll back a failed update", func(t *testing.T) {
		service, stub, ctx, sess := setupService(t)
		_, err := service.Options(ctx, finance.KindCategories, "")
		require.NoError(t, err)
		stub.SetError("UpdateCategory", backend.ErrClientTestError)

		_, err = service.SaveCategory(ctx, finance.Category{Id: 20, Name: "Housing"})

		assert.ErrorIs(t, err, backend.ErrClientTestError)
		stored, ok := sess.Registry.Categories.Get(20)
		require.True(t, ok)
		assert.Equal(t, "Rent", stored.Name)
		assert.Equal(t, 2, sess.Registry.Categories.Len())
	})

	t.Run("should drop an unknown category whose update failed", func(t *testing.T) {
		service, _, ctx, sess := setupService(t)

		_, err := service.SaveCategory(ctx, finance.Category{Id: 77, Name: "Ghost"})

		assert.ErrorIs(t, err, backend.ErrNotFound)
		_, ok := sess.Registry.Categories.Get(77)
		assert.False(t, ok)
	})
}

func TestService_DeleteAccount(t *testing.T) {
	t.Run("should remove the account", func(t *testing.T) {
		service, stub, ctx, sess := setupService(t)
		_, err := service.Options(ctx, finance.KindAccounts, "")
		require.NoError(t, err)

		err = service.DeleteAccount(ctx, 10)

		require.NoError(t, err)
		_, ok := sess.Registry.Accounts.Get(10)
		assert.False(t, ok)
		assert.Equal(t, 1, stub.Calls("DeleteAccount"))
	})

	t.Run("should restore the account when the backend fails", func(t *testing.T) {
		service, stub, ctx, sess := setupService(t)
		_, err := service.Options(ctx, finance.KindAccounts, "")
		require.NoError(t, err)
		stub.SetError("DeleteAccount", backend.ErrClientTestError)

		err = service.DeleteAccount(ctx, 10)

		assert.ErrorIs(t, err, backend.ErrClientTestError)
		items := sess.Registry.Accounts.Snapshot().Items
		require.Len(t, items, 3)
		assert.Equal(t, 10, items[2].Id)
	})
}

func TestService_SaveAccount(t *testing.T) {
	service, _, ctx, sess := setupService(t)
	_, err := service.Options(ctx, finance.KindAccounts, "")
	require.NoError(t, err)

	saved, err := service.SaveAccount(ctx, finance.Account{Id: 12, Name: "Wallet"})

	require.NoError(t, err)
	assert.Equal(t, "Wallet", saved.Name)
	stored, _ := sess.Registry.Accounts.Get(12)
	assert.Equal(t, "Wallet", stored.Name)
}
