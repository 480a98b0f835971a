package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmlink/farmlink-backend/pkg/enums"
)

// Order is created once at placement; only status and the delivery link change later.
type Order struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID      uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index"`
	CustomerRole    enums.UserRole     `gorm:"column:customer_role;type:text;not null"`
	Subtotal        decimal.Decimal    `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee     decimal.Decimal    `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	Total           decimal.Decimal    `gorm:"column:total;type:numeric(12,2);not null"`
	DeliveryType    enums.DeliveryType `gorm:"column:delivery_type;type:text;not null"`
	DeliveryAddress *string            `gorm:"column:delivery_address"`
	ContactName     string             `gorm:"column:contact_name;not null"`
	ContactPhone    string             `gorm:"column:contact_phone;not null"`
	ContactEmail    string             `gorm:"column:contact_email;not null"`
	Notes           *string            `gorm:"column:notes"`
	PaymentMethod   string             `gorm:"column:payment_method;not null;default:'cash_on_delivery'"`
	Status          enums.OrderStatus  `gorm:"column:status;type:text;not null"`
	DeliveryID      *uuid.UUID         `gorm:"column:delivery_id;type:uuid"`
	Items           []OrderLineItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CancelledAt     *time.Time         `gorm:"column:cancelled_at"`
	DeliveredAt     *time.Time         `gorm:"column:delivered_at"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLineItem snapshots a catalog row at order time.
type OrderLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ItemID    uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	ItemType  enums.ItemType  `gorm:"column:item_type;type:text;not null"`
	Title     string          `gorm:"column:title;not null"`
	ImageURL  *string         `gorm:"column:image_url"`
	Unit      string          `gorm:"column:unit;not null"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
