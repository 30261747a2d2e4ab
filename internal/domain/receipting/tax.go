package receipting

import (
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// StandardTaxRate is the Japanese standard consumption tax rate.
var StandardTaxRate = decimal.RequireFromString("0.10")

// ReducedTaxRate applies to food and beverages taken out and newspapers.
var ReducedTaxRate = decimal.RequireFromString("0.08")

// TaxSplit is the decomposition of a tax-inclusive total.
type TaxSplit struct {
	Base  int64 `json:"amount"`
	Tax   int64 `json:"tax_amount"`
	Total int64 `json:"total_amount"`
}

// SplitTax backs the consumption tax out of a tax-inclusive total.
//
// Only the base is rounded (half away from zero, which for positive amounts is
// half-up); the tax is the exact remainder so Base+Tax always equals total.
func SplitTax(totalAmount int64, taxRate decimal.Decimal) (TaxSplit, error) {
	if totalAmount <= 0 {
		return TaxSplit{}, ErrInvalidAmount
	}
	if taxRate.IsNegative() {
		return TaxSplit{}, errors.Newf("tax rate must not be negative: %s", taxRate)
	}

	total := decimal.NewFromInt(totalAmount)
	base := total.DivRound(decimal.NewFromInt(1).Add(taxRate), 0).IntPart()

	return TaxSplit{
		Base:  base,
		Tax:   totalAmount - base,
		Total: totalAmount,
	}, nil
}
