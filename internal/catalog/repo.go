package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
)

// Repository persists inventory items and listings. Counter writes are
// version-checked: they report false when the row moved since it was read.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error
	FindInventoryItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	UpdateInventoryStock(ctx context.Context, id uuid.UUID, version, qty int64, status enums.InventoryStatus) (bool, error)
	CreateListing(ctx context.Context, listing *models.Listing) error
	FindListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	UpdateListingCapacity(ctx context.Context, id uuid.UUID, version int64, capacity decimal.Decimal, status enums.ListingStatus) (bool, error)
	FindItem(ctx context.Context, itemType enums.ItemType, id uuid.UUID) (*ItemSnapshot, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindInventoryItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateInventoryStock(ctx context.Context, id uuid.UUID, version, qty int64, status enums.InventoryStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"stock_quantity": qty,
			"status":         status,
			"version":        gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateListing(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) FindListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) UpdateListingCapacity(ctx context.Context, id uuid.UUID, version int64, capacity decimal.Decimal, status enums.ListingStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"capacity_kg": capacity,
			"status":      status,
			"version":     gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindItem resolves either kind of catalog row. Missing rows surface gorm.ErrRecordNotFound.
func (r *repository) FindItem(ctx context.Context, itemType enums.ItemType, id uuid.UUID) (*ItemSnapshot, error) {
	switch itemType {
	case enums.ItemTypeInventory:
		item, err := r.FindInventoryItem(ctx, id)
		if err != nil {
			return nil, err
		}
		snap := inventorySnapshot(*item)
		return &snap, nil
	case enums.ItemTypeListing:
		listing, err := r.FindListing(ctx, id)
		if err != nil {
			return nil, err
		}
		snap := listingSnapshot(*listing)
		return &snap, nil
	default:
		return nil, fmt.Errorf("unsupported item type %q", itemType)
	}
}
