package finance

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DisplayAmount formats amount in currency using its symbol and fraction
// digits. Unknown currencies fall back to the plain decimal.
func DisplayAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.String()
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}
