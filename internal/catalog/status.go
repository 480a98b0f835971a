package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/farmlink/farmlink-backend/pkg/enums"
)

// DeriveInventoryStatus classifies a stock counter: 0 is out of stock, anything
// under threshold is low stock.
func DeriveInventoryStatus(qty int64, threshold int) enums.InventoryStatus {
	switch {
	case qty <= 0:
		return enums.InventoryStatusOutOfStock
	case qty < int64(threshold):
		return enums.InventoryStatusLowStock
	default:
		return enums.InventoryStatusAvailable
	}
}

// DeriveListingStatus marks a lot SOLD once its capacity is exhausted.
func DeriveListingStatus(capacity decimal.Decimal) enums.ListingStatus {
	if capacity.LessThanOrEqual(decimal.Zero) {
		return enums.ListingStatusSold
	}
	return enums.ListingStatusAvailable
}
