package finance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindAssets         Kind = "assets"
	KindAccounts       Kind = "accounts"
	KindCategories     Kind = "categories"
	KindAccountTypes   Kind = "account-types"
	KindCategoryTypes  Kind = "category-types"
	KindLiquidityTypes Kind = "liquidity-types"
)

var Kinds = []Kind{KindAssets, KindAccounts, KindCategories, KindAccountTypes, KindCategoryTypes, KindLiquidityTypes}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// LookupTable reports whether the kind is a small, fully loaded reference table
// rather than a paginated, searchable collection.
func (k Kind) LookupTable() bool {
	switch k {
	case KindAccountTypes, KindCategoryTypes, KindLiquidityTypes:
		return true
	}
	return false
}

type Asset struct {
	Id       int    `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol,omitempty"`
	Currency string `json:"currency,omitempty"`
	// Kind is the asset class, e.g. "currency", "stock", "fund".
	Kind string `json:"kind,omitempty"`
}

func (a Asset) EntityKey() int { return a.Id }

type LiquidityType struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

func (l LiquidityType) EntityKey() string { return l.Id }

type AccountType struct {
	Id              int    `json:"id"`
	Name            string `json:"name"`
	LiquidityTypeId string `json:"liquidity_type_id,omitempty"`
}

func (a AccountType) EntityKey() int { return a.Id }

type Account struct {
	Id            int    `json:"id"`
	Name          string `json:"name"`
	AccountTypeId int    `json:"account_type_id"`
	Institution   string `json:"institution,omitempty"`
	Archived      bool   `json:"archived,omitempty"`
}

func (a Account) EntityKey() int { return a.Id }

type CategoryType struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

func (c CategoryType) EntityKey() int { return c.Id }

type Category struct {
	Id             int    `json:"id"`
	Name           string `json:"name"`
	Icon           string `json:"icon,omitempty"`
	CategoryTypeId int    `json:"category_type_id"`
}

func (c Category) EntityKey() int { return c.Id }

type Transaction struct {
	Id         int             `json:"id"`
	Date       time.Time       `json:"date"`
	AssetId    int             `json:"asset_id"`
	AccountId  int             `json:"account_id"`
	CategoryId int             `json:"category_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Note       string          `json:"note,omitempty"`
}

func (t Transaction) Amount() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// Lookups are the referenced entities a backend response embeds next to its
// primary payload.
type Lookups struct {
	Assets     []Asset    `json:"assets,omitempty"`
	Accounts   []Account  `json:"accounts,omitempty"`
	Categories []Category `json:"categories,omitempty"`
}
