package enum

import (
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/sangkips/receipt-api/internal/domain/receipting"
)

// TaxCategory selects the consumption tax rate applied to a receipt
type TaxCategory int

const (
	TaxCategoryStandard TaxCategory = 0
	TaxCategoryReduced  TaxCategory = 1
)

func (t TaxCategory) String() string {
	names := [...]string{"standard", "reduced"}
	if int(t) < 0 || int(t) >= len(names) {
		return "standard"
	}
	return names[t]
}

// Rate returns the consumption tax rate for the category
func (t TaxCategory) Rate() decimal.Decimal {
	if t == TaxCategoryReduced {
		return receipting.ReducedTaxRate
	}
	return receipting.StandardTaxRate
}

// Label is the rate as printed on a receipt, e.g. "10%"
func (t TaxCategory) Label() string {
	return t.Rate().Shift(2).String() + "%"
}

func (t TaxCategory) Valid() bool {
	return t == TaxCategoryStandard || t == TaxCategoryReduced
}

func (t TaxCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TaxCategory) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*t = TaxCategory(i)
		if !t.Valid() {
			return errors.Newf("unknown tax category %d", i)
		}
		return nil
	}
	parsed, err := ParseTaxCategory(str)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTaxCategory accepts the category name. An empty string is the standard rate.
func ParseTaxCategory(s string) (TaxCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "10", "10%":
		return TaxCategoryStandard, nil
	case "reduced", "8", "8%":
		return TaxCategoryReduced, nil
	}
	return TaxCategoryStandard, errors.Newf("unknown tax category %q", s)
}

func (t TaxCategory) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *TaxCategory) Scan(value interface{}) error {
	if value == nil {
		*t = TaxCategoryStandard
		return nil
	}
	switch v := value.(type) {
	case int64:
		*t = TaxCategory(v)
	case int:
		*t = TaxCategory(v)
	}
	return nil
}
