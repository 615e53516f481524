package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCaptured OrderStatus = "CAPTURED"
	OrderStatusFailed   OrderStatus = "FAILED"
)

// OrderItem records the price at capture time, independent of any
// client-held snapshot.
type OrderItem struct {
	Slug        string          `json:"slug"`
	Size        string          `json:"size"`
	DisplayName string          `json:"display_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Order is created exactly once per successful payment capture and is
// immutable thereafter. ProviderTransactionID carries the uniqueness
// constraint that makes duplicate capture deliveries a no-op.
type Order struct {
	ID                    uuid.UUID       `json:"id"`
	Number                string          `json:"number"`
	UserID                string          `json:"user_id"`
	Items                 []OrderItem     `json:"items"`
	ShippingAddress       ShippingAddress `json:"shipping_address"`
	TotalCharged          decimal.Decimal `json:"total_charged"`
	ProviderTransactionID string          `json:"provider_transaction_id"`
	Status                OrderStatus     `json:"status"`
	CreatedAt             time.Time       `json:"created_at"`
}
