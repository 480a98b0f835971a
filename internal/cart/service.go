package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/internal/catalog"
	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
	"github.com/farmlink/farmlink-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart operations. Mutations validate against live catalog
// availability, never against the cached maxQuantity.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, cartItemID uuid.UUID, quantity decimal.Decimal) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, cartItemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	Count(ctx context.Context, userID uuid.UUID) (int64, error)
	SelectedItems(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cartItemIDs []uuid.UUID) ([]models.CartItem, error)
	RemoveItems(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cartItemIDs []uuid.UUID) error
}

type service struct {
	repo    CartRepository
	tx      txRunner
	catalog catalog.Repository
	logg    *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, catalogRepo catalog.Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, catalog: catalogRepo, logg: logg}, nil
}

// Get refreshes cached display fields from the catalog, clamps quantities down
// to live availability and drops entries that can no longer be supplied.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.GetOrCreate(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		loaded, err := repo.FindByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}

		kept := make([]models.CartItem, 0, len(loaded.Items))
		var dropped []uuid.UUID
		for _, item := range loaded.Items {
			snap, err := s.lookup(ctx, tx, item.ItemType, item.ItemID)
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					dropped = append(dropped, item.ID)
					continue
				}
				return err
			}
			if !snap.Orderable || !snap.Available.IsPositive() {
				dropped = append(dropped, item.ID)
				continue
			}
			if refresh(&item, snap) {
				if err := repo.SaveItem(ctx, &item); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refresh cart item")
				}
			}
			kept = append(kept, item)
		}
		if len(dropped) > 0 {
			if _, err := repo.DeleteItems(ctx, loaded.ID, dropped); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop unavailable cart items")
			}
			s.logg.Info(s.logg.WithField(ctx, "dropped_items", len(dropped)), "cart entries dropped on refresh")
		}
		loaded.Items = kept
		cart = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cartDTO(cart), nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	itemType, err := enums.ParseItemType(input.ItemType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "invalid item type")
	}
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "item id is required")
	}
	if err := validateQuantity(itemType, input.Quantity); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		snap, err := s.lookup(ctx, tx, itemType, input.ItemID)
		if err != nil {
			return err
		}
		cart, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}

		existing, err := repo.FindItemByRef(ctx, cart.ID, input.ItemID, itemType)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
		}
		if existing != nil {
			next := existing.Quantity.Add(input.Quantity)
			if err := ensureSupply(snap, next); err != nil {
				return err
			}
			existing.Quantity = next
			refresh(existing, snap)
			return wrapStoreError(repo.SaveItem(ctx, existing), "update cart item")
		}

		if err := ensureSupply(snap, input.Quantity); err != nil {
			return err
		}
		item := &models.CartItem{
			CartID:   cart.ID,
			ItemID:   snap.ID,
			ItemType: itemType,
			Quantity: input.Quantity,
		}
		refresh(item, snap)
		return wrapStoreError(repo.CreateItem(ctx, item), "create cart item")
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, userID)
}

// UpdateItem sets an absolute quantity. The check runs against the live
// catalog counter; a stale cached maxQuantity never admits more.
func (s *service) UpdateItem(ctx context.Context, userID, cartItemID uuid.UUID, quantity decimal.Decimal) (*CartDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.findOwnedItem(ctx, repo, userID, cartItemID)
		if err != nil {
			return err
		}
		if err := validateQuantity(item.ItemType, quantity); err != nil {
			return err
		}
		snap, err := s.lookup(ctx, tx, item.ItemType, item.ItemID)
		if err != nil {
			return err
		}
		if err := ensureSupply(snap, quantity); err != nil {
			return err
		}
		item.Quantity = quantity
		refresh(item, snap)
		return wrapStoreError(repo.SaveItem(ctx, item), "update cart item")
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, cartItemID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.findOwnedItem(ctx, repo, userID, cartItemID)
		if err != nil {
			return err
		}
		_, err = repo.DeleteItems(ctx, item.CartID, []uuid.UUID{item.ID})
		return wrapStoreError(err, "remove cart item")
	})
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return wrapStoreError(s.repo.ClearItems(ctx, cart.ID), "clear cart")
}

func (s *service) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountItems(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count cart items")
	}
	return count, nil
}

// SelectedItems returns the requested entries of the user's cart inside tx.
// Unknown ids are a client error.
func (s *service) SelectedItems(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cartItemIDs []uuid.UUID) ([]models.CartItem, error) {
	ids := dedupe(cartItemIDs)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "at least one cart item must be selected")
	}
	repo := s.repo.WithTx(tx)
	cart, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	items, err := repo.FindItemsByIDs(ctx, cart.ID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
	}
	if len(items) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "selected cart item not found")
	}
	return items, nil
}

// RemoveItems drops only the listed entries; unselected entries stay.
func (s *service) RemoveItems(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cartItemIDs []uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	cart, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	_, err = repo.DeleteItems(ctx, cart.ID, dedupe(cartItemIDs))
	return wrapStoreError(err, "remove cart items")
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return cartDTO(cart), nil
}

func (s *service) findOwnedItem(ctx context.Context, repo CartRepository, userID, cartItemID uuid.UUID) (*models.CartItem, error) {
	cart, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	item, err := repo.FindItem(ctx, cart.ID, cartItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	return item, nil
}

func (s *service) lookup(ctx context.Context, tx *gorm.DB, itemType enums.ItemType, id uuid.UUID) (*catalog.ItemSnapshot, error) {
	snap, err := s.catalog.WithTx(tx).FindItem(ctx, itemType, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load catalog item")
	}
	return snap, nil
}

// refresh copies live catalog fields onto the entry and clamps its quantity
// down to what the catalog can supply. It reports whether anything changed.
func refresh(item *models.CartItem, snap *catalog.ItemSnapshot) bool {
	changed := item.Title != snap.Title ||
		!item.Price.Equal(snap.Price) ||
		!item.MaxQuantity.Equal(snap.Available) ||
		item.Unit != snap.Unit ||
		!sameImage(item.ImageURL, snap.ImageURL)

	item.Title = snap.Title
	item.Price = snap.Price
	item.ImageURL = snap.ImageURL
	item.MaxQuantity = snap.Available
	item.Unit = snap.Unit
	if item.Quantity.GreaterThan(snap.Available) {
		item.Quantity = snap.Available
		changed = true
	}
	return changed
}

func validateQuantity(itemType enums.ItemType, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "quantity must be greater than zero")
	}
	if itemType == enums.ItemTypeInventory && !qty.Equal(qty.Truncate(0)) {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "inventory quantities must be whole units")
	}
	return nil
}

func ensureSupply(snap *catalog.ItemSnapshot, qty decimal.Decimal) error {
	if !snap.Orderable {
		return pkgerrors.Newf(pkgerrors.CodeBadRequest, "%s is not available", snap.Title)
	}
	if !snap.CanSupply(qty) {
		return pkgerrors.Newf(pkgerrors.CodeBadRequest, "only %s %s of %s available", snap.Available.String(), snap.Unit, snap.Title).
			WithDetails(map[string]string{
				"itemId":    snap.ID.String(),
				"requested": qty.String(),
				"available": snap.Available.String(),
			})
	}
	return nil
}

func wrapStoreError(err error, op string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func sameImage(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
