package orders

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewOrderNumber derives the human-readable order number from the order
// id; stable for a given order, short enough for support tickets.
func NewOrderNumber(id uuid.UUID) string {
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10])
	return fmt.Sprintf("PF-%s", short)
}

func parseTotal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse total %q: %w", s, err)
	}
	return d, nil
}
