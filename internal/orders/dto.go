package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
)

const defaultPaymentMethod = "cash_on_delivery"

// LineItemInput references one catalog row by id and type.
type LineItemInput struct {
	ItemID   uuid.UUID
	ItemType string
	Quantity decimal.Decimal
}

// OrderDetails carries the delivery and contact fields shared by both placement flows.
type OrderDetails struct {
	DeliveryType    string
	DeliveryAddress *string
	ContactName     string
	ContactPhone    string
	ContactEmail    string
	Notes           *string
	PaymentMethod   string
}

type PlaceOrderInput struct {
	CustomerID   uuid.UUID
	CustomerRole enums.UserRole
	Items        []LineItemInput
	OrderDetails
}

// PlaceFromCartInput places an order from the selected cart entries.
type PlaceFromCartInput struct {
	CustomerID    uuid.UUID
	CustomerRole  enums.UserRole
	SelectedItems []uuid.UUID
	OrderDetails
}

type UpdateStatusInput struct {
	OrderID   uuid.UUID
	Status    string
	ActorID   uuid.UUID
	ActorRole enums.UserRole
}

type CancelInput struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.UserRole
	Reason    string
}

type LineItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ItemID    uuid.UUID       `json:"itemId"`
	ItemType  enums.ItemType  `json:"itemType"`
	Title     string          `json:"title"`
	ImageURL  *string         `json:"imageUrl,omitempty"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type OrderDTO struct {
	ID              uuid.UUID          `json:"id"`
	CustomerID      uuid.UUID          `json:"customerId"`
	CustomerRole    enums.UserRole     `json:"customerRole"`
	Items           []LineItemDTO      `json:"items"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	DeliveryFee     decimal.Decimal    `json:"deliveryFee"`
	Total           decimal.Decimal    `json:"total"`
	DeliveryType    enums.DeliveryType `json:"deliveryType"`
	DeliveryAddress *string            `json:"deliveryAddress,omitempty"`
	ContactName     string             `json:"contactName"`
	ContactPhone    string             `json:"contactPhone"`
	ContactEmail    string             `json:"contactEmail"`
	Notes           *string            `json:"notes,omitempty"`
	PaymentMethod   string             `json:"paymentMethod"`
	Status          enums.OrderStatus  `json:"status"`
	DeliveryID      *uuid.UUID         `json:"deliveryId,omitempty"`
	CancelledAt     *time.Time         `json:"cancelledAt,omitempty"`
	DeliveredAt     *time.Time         `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]LineItemDTO, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, LineItemDTO{
			ID:        li.ID,
			ItemID:    li.ItemID,
			ItemType:  li.ItemType,
			Title:     li.Title,
			ImageURL:  li.ImageURL,
			Unit:      li.Unit,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
			LineTotal: li.LineTotal,
		})
	}
	return &OrderDTO{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		CustomerRole:    o.CustomerRole,
		Items:           items,
		Subtotal:        o.Subtotal,
		DeliveryFee:     o.DeliveryFee,
		Total:           o.Total,
		DeliveryType:    o.DeliveryType,
		DeliveryAddress: o.DeliveryAddress,
		ContactName:     o.ContactName,
		ContactPhone:    o.ContactPhone,
		ContactEmail:    o.ContactEmail,
		Notes:           o.Notes,
		PaymentMethod:   o.PaymentMethod,
		Status:          o.Status,
		DeliveryID:      o.DeliveryID,
		CancelledAt:     o.CancelledAt,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
	}
}
