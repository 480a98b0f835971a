package enums

// ItemType tags which catalog store a line or cart entry references.
type ItemType string

const (
	ItemTypeInventory ItemType = "inventory"
	ItemTypeListing   ItemType = "listing"
)

var validItemTypes = []ItemType{ItemTypeInventory, ItemTypeListing}

func (t ItemType) String() string { return string(t) }

func (t ItemType) IsValid() bool { return contains(validItemTypes, t) }

// Unit is the quantity label shown next to an entry of this type.
func (t ItemType) Unit() string {
	if t == ItemTypeListing {
		return "kg"
	}
	return "unit"
}

func ParseItemType(value string) (ItemType, error) {
	return parse("item type", value, validItemTypes)
}

// InventoryStatus is derived from stock_quantity; never written independently.
type InventoryStatus string

const (
	InventoryStatusAvailable  InventoryStatus = "Available"
	InventoryStatusLowStock   InventoryStatus = "Low stock"
	InventoryStatusOutOfStock InventoryStatus = "Out of stock"
)

var validInventoryStatuses = []InventoryStatus{
	InventoryStatusAvailable,
	InventoryStatusLowStock,
	InventoryStatusOutOfStock,
}

func (s InventoryStatus) String() string { return string(s) }

func (s InventoryStatus) IsValid() bool { return contains(validInventoryStatuses, s) }

// ListingStatus is derived from capacity_kg.
type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "AVAILABLE"
	ListingStatusSold      ListingStatus = "SOLD"
)

var validListingStatuses = []ListingStatus{ListingStatusAvailable, ListingStatusSold}

func (s ListingStatus) String() string { return string(s) }

func (s ListingStatus) IsValid() bool { return contains(validListingStatuses, s) }

// StockMode selects the direction of a stock adjustment.
type StockMode string

const (
	StockDebit  StockMode = "debit"
	StockCredit StockMode = "credit"
)

func (m StockMode) String() string { return string(m) }

// Sign is -1 for debits and +1 for credits.
func (m StockMode) Sign() int64 {
	if m == StockDebit {
		return -1
	}
	return 1
}
