package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", s, err)
	}
	return d, nil
}
