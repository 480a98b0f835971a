package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
)

// Service is the catalog maintenance surface used by admins and farmers.
type Service interface {
	CreateInventoryItem(ctx context.Context, input CreateInventoryInput) (*InventoryItemDTO, error)
	SetInventoryStock(ctx context.Context, input SetStockInput) (*InventoryItemDTO, error)
	GetInventoryItem(ctx context.Context, id uuid.UUID) (*InventoryItemDTO, error)
	CreateListing(ctx context.Context, input CreateListingInput) (*ListingDTO, error)
	GetListing(ctx context.Context, id uuid.UUID) (*ListingDTO, error)
	Lookup(ctx context.Context, itemType enums.ItemType, id uuid.UUID) (*ItemSnapshot, error)
}

type service struct {
	repo     Repository
	lowStock int
}

// NewService builds the catalog service; lowStock is the threshold catalog
// edits classify stock with.
func NewService(repo Repository, lowStock int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if lowStock < 0 {
		return nil, fmt.Errorf("low stock threshold must not be negative")
	}
	return &service{repo: repo, lowStock: lowStock}, nil
}

func (s *service) CreateInventoryItem(ctx context.Context, input CreateInventoryInput) (*InventoryItemDTO, error) {
	if input.ActorRole != enums.RoleAdmin && input.ActorRole != enums.RoleFarmer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins and farmers manage inventory")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "price must not be negative")
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "stock quantity must not be negative")
	}

	item := &models.InventoryItem{
		Name:          name,
		Category:      strings.TrimSpace(input.Category),
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		Status:        DeriveInventoryStatus(input.StockQuantity, s.lowStock),
		Unit:          enums.ItemTypeInventory.Unit(),
		ImageURL:      input.ImageURL,
		CreatedBy:     input.ActorID,
	}
	if err := s.repo.CreateInventoryItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create inventory item")
	}
	dto := inventoryDTO(*item)
	return &dto, nil
}

func (s *service) SetInventoryStock(ctx context.Context, input SetStockInput) (*InventoryItemDTO, error) {
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "stock quantity must not be negative")
	}
	item, err := s.repo.FindInventoryItem(ctx, input.ItemID)
	if err != nil {
		return nil, notFoundOr(err, "inventory item not found", "load inventory item")
	}
	if input.ActorRole != enums.RoleAdmin && item.CreatedBy != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "inventory item belongs to another user")
	}

	status := DeriveInventoryStatus(input.StockQuantity, s.lowStock)
	ok, err := s.repo.UpdateInventoryStock(ctx, item.ID, item.Version, input.StockQuantity, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update inventory stock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "inventory item changed concurrently, please retry")
	}
	return s.GetInventoryItem(ctx, item.ID)
}

func (s *service) GetInventoryItem(ctx context.Context, id uuid.UUID) (*InventoryItemDTO, error) {
	item, err := s.repo.FindInventoryItem(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "inventory item not found", "load inventory item")
	}
	dto := inventoryDTO(*item)
	return &dto, nil
}

func (s *service) CreateListing(ctx context.Context, input CreateListingInput) (*ListingDTO, error) {
	if input.ActorRole != enums.RoleFarmer && input.ActorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only farmers publish listings")
	}
	crop := strings.TrimSpace(input.CropName)
	if crop == "" {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "crop name is required")
	}
	if input.PricePerKg.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "price per kg must not be negative")
	}
	if input.CapacityKg.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "capacity must not be negative")
	}

	listing := &models.Listing{
		FarmerID:   input.ActorID,
		CropName:   crop,
		PricePerKg: input.PricePerKg,
		CapacityKg: input.CapacityKg,
		Status:     DeriveListingStatus(input.CapacityKg),
		ImageURL:   input.ImageURL,
	}
	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create listing")
	}
	dto := listingDTO(*listing)
	return &dto, nil
}

func (s *service) GetListing(ctx context.Context, id uuid.UUID) (*ListingDTO, error) {
	listing, err := s.repo.FindListing(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "listing not found", "load listing")
	}
	dto := listingDTO(*listing)
	return &dto, nil
}

func (s *service) Lookup(ctx context.Context, itemType enums.ItemType, id uuid.UUID) (*ItemSnapshot, error) {
	if !itemType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeBadRequest, "invalid item type %q", itemType)
	}
	snap, err := s.repo.FindItem(ctx, itemType, id)
	if err != nil {
		return nil, notFoundOr(err, "catalog item not found", "load catalog item")
	}
	return snap, nil
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
