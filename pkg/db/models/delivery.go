package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmlink/farmlink-backend/pkg/enums"
)

// Delivery tracks the hand-off of a DELIVERY order. Status mirrors the newest History row.
type Delivery struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID             `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	RequesterID  uuid.UUID             `gorm:"column:requester_id;type:uuid;not null"`
	ContactName  string                `gorm:"column:contact_name;not null"`
	ContactPhone string                `gorm:"column:contact_phone;not null"`
	Address      string                `gorm:"column:address;not null"`
	DriverID     *uuid.UUID            `gorm:"column:driver_id;type:uuid;index"`
	Status       enums.DeliveryStatus  `gorm:"column:status;type:text;not null"`
	History      []DeliveryStatusEvent `gorm:"foreignKey:DeliveryID;constraint:OnDelete:CASCADE"`
	AssignedAt   *time.Time            `gorm:"column:assigned_at"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// DeliveryStatusEvent is an append-only history row.
type DeliveryStatusEvent struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	DeliveryID uuid.UUID            `gorm:"column:delivery_id;type:uuid;not null;index"`
	Status     enums.DeliveryStatus `gorm:"column:status;type:text;not null"`
	Note       *string              `gorm:"column:note"`
	ActorID    *uuid.UUID           `gorm:"column:actor_id;type:uuid"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}
