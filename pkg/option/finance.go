package option

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Rhymond/go-money"
	"github.com/moneyboard/moneyboard/pkg/finance"
)

type AssetOption struct {
	Asset finance.Asset
}

func (o AssetOption) Key() string   { return strconv.Itoa(o.Asset.Id) }
func (o AssetOption) Label() string { return o.Asset.Name }

// Icon is the currency grapheme, e.g. "€" for EUR, or the bare code when the
// currency is unknown.
func (o AssetOption) Icon() string {
	code := strings.ToUpper(o.Asset.Currency)
	if code == "" {
		return ""
	}
	if c := money.GetCurrency(code); c != nil && c.Grapheme != "" {
		return c.Grapheme
	}
	return code
}

func (o AssetOption) GroupKey() (string, bool) {
	return o.Asset.Kind, o.Asset.Kind != ""
}

func (o AssetOption) GroupLabel() string {
	first, size := utf8.DecodeRuneInString(o.Asset.Kind)
	if size == 0 {
		return ""
	}
	return strings.ToUpper(string(first)) + o.Asset.Kind[size:]
}

func (o AssetOption) Keywords() []string {
	return nonEmpty(o.Asset.Symbol, o.Asset.Currency)
}

type AccountOption struct {
	Account finance.ExpandedAccount
}

func (o AccountOption) Key() string   { return strconv.Itoa(o.Account.Entity.Id) }
func (o AccountOption) Label() string { return o.Account.Entity.Name }

// GroupKey groups accounts by account type. Accounts whose type is not cached
// render ungrouped.
func (o AccountOption) GroupKey() (string, bool) {
	if o.Account.Type == nil {
		return "", false
	}
	return strconv.Itoa(o.Account.Type.Id), true
}

func (o AccountOption) GroupLabel() string {
	if o.Account.Type == nil {
		return ""
	}
	return o.Account.Type.Name
}

func (o AccountOption) Keywords() []string {
	return nonEmpty(o.Account.Entity.Institution)
}

type CategoryOption struct {
	Category finance.ExpandedCategory
}

func (o CategoryOption) Key() string   { return strconv.Itoa(o.Category.Entity.Id) }
func (o CategoryOption) Label() string { return o.Category.Entity.Name }
func (o CategoryOption) Icon() string  { return o.Category.Entity.Icon }

func (o CategoryOption) GroupKey() (string, bool) {
	if o.Category.Type == nil {
		return "", false
	}
	return strconv.Itoa(o.Category.Type.Id), true
}

func (o CategoryOption) GroupLabel() string {
	if o.Category.Type == nil {
		return ""
	}
	return o.Category.Type.Name
}

type AccountTypeOption struct {
	AccountType finance.ExpandedAccountType
}

func (o AccountTypeOption) Key() string   { return strconv.Itoa(o.AccountType.Entity.Id) }
func (o AccountTypeOption) Label() string { return o.AccountType.Entity.Name }

func (o AccountTypeOption) GroupKey() (string, bool) {
	if o.AccountType.Type == nil {
		return "", false
	}
	return o.AccountType.Type.Id, true
}

func (o AccountTypeOption) GroupLabel() string {
	if o.AccountType.Type == nil {
		return ""
	}
	return o.AccountType.Type.Name
}

type CategoryTypeOption struct {
	CategoryType finance.CategoryType
}

func (o CategoryTypeOption) Key() string   { return strconv.Itoa(o.CategoryType.Id) }
func (o CategoryTypeOption) Label() string { return o.CategoryType.Name }

type LiquidityTypeOption struct {
	LiquidityType finance.LiquidityType
}

func (o LiquidityTypeOption) Key() string   { return o.LiquidityType.Id }
func (o LiquidityTypeOption) Label() string { return o.LiquidityType.Name }

func Assets(assets []finance.Asset) []Option {
	out := make([]Option, 0, len(assets))
	for _, a := range assets {
		out = append(out, AssetOption{Asset: a})
	}
	return out
}

func Accounts(accounts []finance.ExpandedAccount) []Option {
	out := make([]Option, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountOption{Account: a})
	}
	return out
}

func Categories(categories []finance.ExpandedCategory) []Option {
	out := make([]Option, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryOption{Category: c})
	}
	return out
}

func AccountTypes(types []finance.ExpandedAccountType) []Option {
	out := make([]Option, 0, len(types))
	for _, t := range types {
		out = append(out, AccountTypeOption{AccountType: t})
	}
	return out
}

func CategoryTypes(types []finance.CategoryType) []Option {
	out := make([]Option, 0, len(types))
	for _, t := range types {
		out = append(out, CategoryTypeOption{CategoryType: t})
	}
	return out
}

func LiquidityTypes(types []finance.LiquidityType) []Option {
	out := make([]Option, 0, len(types))
	for _, t := range types {
		out = append(out, LiquidityTypeOption{LiquidityType: t})
	}
	return out
}

// ForKind adapts the current content of one registry store.
func ForKind(r *finance.Registry, kind finance.Kind) []Option {
	switch kind {
	case finance.KindAssets:
		return Assets(r.Assets.Snapshot().Items)
	case finance.KindAccounts:
		return Accounts(r.ExpandedAccounts())
	case finance.KindCategories:
		return Categories(r.ExpandedCategories())
	case finance.KindAccountTypes:
		return AccountTypes(r.ExpandedAccountTypes())
	case finance.KindCategoryTypes:
		return CategoryTypes(r.CategoryTypes.Snapshot().Items)
	case finance.KindLiquidityTypes:
		return LiquidityTypes(r.LiquidityTypes.Snapshot().Items)
	}
	return nil
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
