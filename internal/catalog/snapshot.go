package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
)

// ItemSnapshot is the kind-independent view of a catalog row that carts and
// orders price and validate against.
type ItemSnapshot struct {
	ID        uuid.UUID
	Type      enums.ItemType
	Title     string
	Price     decimal.Decimal
	ImageURL  *string
	Available decimal.Decimal
	Unit      string
	Orderable bool
}

// CanSupply reports whether qty can be taken from the live counter.
func (s ItemSnapshot) CanSupply(qty decimal.Decimal) bool {
	return s.Orderable && s.Available.GreaterThanOrEqual(qty)
}

func inventorySnapshot(item models.InventoryItem) ItemSnapshot {
	return ItemSnapshot{
		ID:        item.ID,
		Type:      enums.ItemTypeInventory,
		Title:     item.Name,
		Price:     item.Price,
		ImageURL:  item.ImageURL,
		Available: decimal.NewFromInt(item.StockQuantity),
		Unit:      enums.ItemTypeInventory.Unit(),
		Orderable: item.Status != enums.InventoryStatusOutOfStock && item.StockQuantity > 0,
	}
}

func listingSnapshot(listing models.Listing) ItemSnapshot {
	return ItemSnapshot{
		ID:        listing.ID,
		Type:      enums.ItemTypeListing,
		Title:     listing.CropName,
		Price:     listing.PricePerKg,
		ImageURL:  listing.ImageURL,
		Available: listing.CapacityKg,
		Unit:      enums.ItemTypeListing.Unit(),
		Orderable: listing.Status == enums.ListingStatusAvailable,
	}
}
