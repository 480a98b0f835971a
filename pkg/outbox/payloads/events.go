package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmlink/farmlink-backend/pkg/enums"
)

// OrderLine is the slice of a line item the notification templates render.
type OrderLine struct {
	Title     string          `json:"title"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderPlacedEvent is emitted in the placement transaction.
type OrderPlacedEvent struct {
	OrderID      uuid.UUID          `json:"order_id"`
	CustomerID   uuid.UUID          `json:"customer_id"`
	ContactName  string             `json:"contact_name"`
	ContactEmail string             `json:"contact_email"`
	DeliveryType enums.DeliveryType `json:"delivery_type"`
	DeliveryID   *uuid.UUID         `json:"delivery_id,omitempty"`
	Subtotal     decimal.Decimal    `json:"subtotal"`
	DeliveryFee  decimal.Decimal    `json:"delivery_fee"`
	Total        decimal.Decimal    `json:"total"`
	Lines        []OrderLine        `json:"lines"`
}

// OrderStatusChangedEvent is emitted by the admin status endpoint.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	CustomerID     uuid.UUID         `json:"customer_id"`
	ContactEmail   string            `json:"contact_email"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
	StockRestored  bool              `json:"stock_restored"`
}

// OrderCancelledEvent drives the cancellation email.
type OrderCancelledEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	CustomerID     uuid.UUID         `json:"customer_id"`
	ContactName    string            `json:"contact_name"`
	ContactEmail   string            `json:"contact_email"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Total          decimal.Decimal   `json:"total"`
	CancelledAt    time.Time         `json:"cancelled_at"`
	CancelledBy    uuid.UUID         `json:"cancelled_by"`
}

// DeliveryStatusChangedEvent is emitted on assignment and driver updates.
type DeliveryStatusChangedEvent struct {
	DeliveryID     uuid.UUID            `json:"delivery_id"`
	OrderID        uuid.UUID            `json:"order_id"`
	DriverID       *uuid.UUID           `json:"driver_id,omitempty"`
	PreviousStatus enums.DeliveryStatus `json:"previous_status"`
	Status         enums.DeliveryStatus `json:"status"`
	Note           *string              `json:"note,omitempty"`
}
