package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmlink/farmlink-backend/pkg/enums"
)

// InventoryItem is a unit-counted catalog product.
type InventoryItem struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Name          string                `gorm:"column:name;not null"`
	Category      string                `gorm:"column:category;not null"`
	Price         decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	StockQuantity int64                 `gorm:"column:stock_quantity;not null;default:0"`
	Status        enums.InventoryStatus `gorm:"column:status;type:text;not null"`
	Unit          string                `gorm:"column:unit;not null;default:'unit'"`
	ImageURL      *string               `gorm:"column:image_url"`
	CreatedBy     uuid.UUID             `gorm:"column:created_by;type:uuid;not null"`
	Version       int64                 `gorm:"column:version;not null;default:0"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// Listing is a kilogram-counted crop lot published by a farmer.
type Listing struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID   uuid.UUID           `gorm:"column:farmer_id;type:uuid;not null;index"`
	CropName   string              `gorm:"column:crop_name;not null"`
	PricePerKg decimal.Decimal     `gorm:"column:price_per_kg;type:numeric(12,2);not null"`
	CapacityKg decimal.Decimal     `gorm:"column:capacity_kg;type:numeric(12,3);not null"`
	Status     enums.ListingStatus `gorm:"column:status;type:text;not null"`
	ImageURL   *string             `gorm:"column:image_url"`
	Version    int64               `gorm:"column:version;not null;default:0"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
