package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
)

type CreateInventoryInput struct {
	ActorID       uuid.UUID
	ActorRole     enums.UserRole
	Name          string
	Category      string
	Price         decimal.Decimal
	StockQuantity int64
	ImageURL      *string
}

type SetStockInput struct {
	ItemID        uuid.UUID
	StockQuantity int64
	ActorID       uuid.UUID
	ActorRole     enums.UserRole
}

type CreateListingInput struct {
	ActorID    uuid.UUID
	ActorRole  enums.UserRole
	CropName   string
	PricePerKg decimal.Decimal
	CapacityKg decimal.Decimal
	ImageURL   *string
}

type InventoryItemDTO struct {
	ID            uuid.UUID             `json:"id"`
	Name          string                `json:"name"`
	Category      string                `json:"category"`
	Price         decimal.Decimal       `json:"price"`
	StockQuantity int64                 `json:"stockQuantity"`
	Status        enums.InventoryStatus `json:"status"`
	Unit          string                `json:"unit"`
	ImageURL      *string               `json:"imageUrl,omitempty"`
	CreatedBy     uuid.UUID             `json:"createdBy"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

type ListingDTO struct {
	ID         uuid.UUID           `json:"id"`
	FarmerID   uuid.UUID           `json:"farmerId"`
	CropName   string              `json:"cropName"`
	PricePerKg decimal.Decimal     `json:"pricePerKg"`
	CapacityKg decimal.Decimal     `json:"capacityKg"`
	Status     enums.ListingStatus `json:"status"`
	ImageURL   *string             `json:"imageUrl,omitempty"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

func inventoryDTO(item models.InventoryItem) InventoryItemDTO {
	return InventoryItemDTO{
		ID:            item.ID,
		Name:          item.Name,
		Category:      item.Category,
		Price:         item.Price,
		StockQuantity: item.StockQuantity,
		Status:        item.Status,
		Unit:          item.Unit,
		ImageURL:      item.ImageURL,
		CreatedBy:     item.CreatedBy,
		UpdatedAt:     item.UpdatedAt,
	}
}

func listingDTO(listing models.Listing) ListingDTO {
	return ListingDTO{
		ID:         listing.ID,
		FarmerID:   listing.FarmerID,
		CropName:   listing.CropName,
		PricePerKg: listing.PricePerKg,
		CapacityKg: listing.CapacityKg,
		Status:     listing.Status,
		ImageURL:   listing.ImageURL,
		UpdatedAt:  listing.UpdatedAt,
	}
}
