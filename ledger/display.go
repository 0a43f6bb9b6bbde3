package ledger

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Convert turns a yen amount into Taiwan dollars at rate, rounded to a whole
// dollar. It is only used for display; stored amounts stay in yen.
func Convert(jpy, rate float64) float64 {
	return decimal.NewFromFloat(jpy).Mul(decimal.NewFromFloat(rate)).Round(0).InexactFloat64()
}

// Round is the display rounding of a balance.
func Round(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(0).InexactFloat64()
}

// Format renders amount in the currency's usual notation, e.g. ¥1,000.
func Format(amount float64, c Currency) string {
	cur := *money.New(0, string(c)).Currency()
	minor := decimal.NewFromFloat(amount).Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(minor.IntPart())
}
