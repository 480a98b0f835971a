package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/internal/catalog"
	"github.com/farmlink/farmlink-backend/pkg/db"
	"github.com/farmlink/farmlink-backend/pkg/db/dbtest"
	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
	"github.com/farmlink/farmlink-backend/pkg/logger"
)

type fixture struct {
	client  *db.Client
	catalog catalog.Repository
	svc     Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.NewClient(t)
	catalogRepo := catalog.NewRepository(client.DB())
	svc, err := NewService(NewRepository(client.DB()), client, catalogRepo, logger.Nop())
	require.NoError(t, err)
	return fixture{client: client, catalog: catalogRepo, svc: svc}
}

func (f fixture) inventory(t *testing.T, stock int64) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		Name:          "Seed pack",
		Category:      "inputs",
		Price:         decimal.NewFromInt(100),
		StockQuantity: stock,
		Status:        catalog.DeriveInventoryStatus(stock, 15),
		Unit:          "unit",
		CreatedBy:     uuid.New(),
	}
	require.NoError(t, f.catalog.CreateInventoryItem(context.Background(), item))
	return item
}

func (f fixture) listing(t *testing.T, capacity string) *models.Listing {
	t.Helper()
	capacityKg := decimal.RequireFromString(capacity)
	listing := &models.Listing{
		FarmerID:   uuid.New(),
		CropName:   "Maize",
		PricePerKg: decimal.NewFromInt(50),
		CapacityKg: capacityKg,
		Status:     catalog.DeriveListingStatus(capacityKg),
	}
	require.NoError(t, f.catalog.CreateListing(context.Background(), listing))
	return listing
}

func (f fixture) setStock(t *testing.T, item *models.InventoryItem, qty int64) {
	t.Helper()
	current, err := f.catalog.FindInventoryItem(context.Background(), item.ID)
	require.NoError(t, err)
	ok, err := f.catalog.UpdateInventoryStock(context.Background(), item.ID, current.Version, qty, catalog.DeriveInventoryStatus(qty, 10))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAddItemMergesAndRejectsOverAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	item := f.inventory(t, 5)

	cart, err := f.svc.AddItem(ctx, user, AddItemInput{ItemID: item.ID, ItemType: "inventory", Quantity: decimal.NewFromInt(2)})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	cart, err = f.svc.AddItem(ctx, user, AddItemInput{ItemID: item.ID, ItemType: "inventory", Quantity: decimal.NewFromInt(3)})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.True(t, cart.Items[0].Quantity.Equal(decimal.NewFromInt(5)))
	require.True(t, cart.Items[0].MaxQuantity.Equal(decimal.NewFromInt(5)))
	require.Equal(t, "unit", cart.Items[0].Unit)
	require.True(t, cart.Subtotal.Equal(decimal.NewFromInt(500)))

	_, err = f.svc.AddItem(ctx, user, AddItemInput{ItemID: item.ID, ItemType: "inventory", Quantity: decimal.NewFromInt(1)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	_, err = f.svc.AddItem(ctx, user, AddItemInput{ItemID: uuid.New(), ItemType: "listing", Quantity: decimal.NewFromInt(1)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.AddItem(ctx, user, AddItemInput{ItemID: item.ID, ItemType: "inventory", Quantity: decimal.RequireFromString("0.5")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	_, err = f.svc.AddItem(ctx, user, AddItemInput{ItemID: item.ID, ItemType: "seeds", Quantity: decimal.NewFromInt(1)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))
}

func TestUpdateItemChecksLiveAvailabilityNotCachedMax(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	item := f.inventory(t, 5)

	cart, err := f.svc.AddItem(ctx, user, AddItemInput{ItemID: item.ID, ItemType: "inventory", Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)
	entry := cart.Items[0]
	require.True(t, entry.MaxQuantity.Equal(decimal.NewFromInt(5)))

	f.setStock(t, item, 2)

	_, err = f.svc.UpdateItem(ctx, user, entry.ID, decimal.NewFromInt(4))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	updated, err := f.svc.UpdateItem(ctx, user, entry.ID, decimal.NewFromInt(2))
	require.NoError(t, err)
	require.True(t, updated.Items[0].Quantity.Equal(decimal.NewFromInt(2)))
	require.True(t, updated.Items[0].MaxQuantity.Equal(decimal.NewFromInt(2)))

	_, err = f.svc.UpdateItem(ctx, user, entry.ID, decimal.Zero)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	_, err = f.svc.UpdateItem(ctx, uuid.New(), entry.ID, decimal.NewFromInt(1))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetClampsAndDropsStaleEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	kept := f.inventory(t, 8)
	soldOut := f.inventory(t, 3)
	listing := f.listing(t, "12.5")

	_, err := f.svc.AddItem(ctx, user, AddItemInput{ItemID: kept.ID, ItemType: "inventory", Quantity: decimal.NewFromInt(6)})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, user, AddItemInput{ItemID: soldOut.ID, ItemType: "inventory", Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, user, AddItemInput{ItemID: listing.ID, ItemType: "listing", Quantity: decimal.RequireFromString("2.5")})
	require.NoError(t, err)

	f.setStock(t, kept, 4)
	f.setStock(t, soldOut, 0)
	require.NoError(t, f.client.DB().Delete(&models.Listing{}, "id = ?", listing.ID).Error)

	cart, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, kept.ID, cart.Items[0].ItemID)
	require.True(t, cart.Items[0].Quantity.Equal(decimal.NewFromInt(4)))

	var stored models.CartItem
	require.NoError(t, f.client.DB().Where("item_id = ?", kept.ID).First(&stored).Error)
	require.True(t, stored.Quantity.Equal(decimal.NewFromInt(4)))

	count, err := f.svc.Count(ctx, user)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestRemoveItemsLeavesUnselectedEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	a := f.inventory(t, 10)
	b := f.listing(t, "30")

	_, err := f.svc.AddItem(ctx, user, AddItemInput{ItemID: a.ID, ItemType: "inventory", Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)
	cart, err := f.svc.AddItem(ctx, user, AddItemInput{ItemID: b.ID, ItemType: "listing", Quantity: decimal.NewFromInt(3)})
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)

	selected := []uuid.UUID{cart.Items[0].ID}
	err = f.client.WithTx(ctx, func(tx *gorm.DB) error {
		items, err := f.svc.SelectedItems(ctx, tx, user, selected)
		if err != nil {
			return err
		}
		require.Len(t, items, 1)
		return f.svc.RemoveItems(ctx, tx, user, selected)
	})
	require.NoError(t, err)

	after, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, after.Items, 1)
	require.Equal(t, enums.ItemTypeListing, after.Items[0].ItemType)

	err = f.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := f.svc.SelectedItems(ctx, tx, user, selected)
		return err
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRemoveAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	a := f.inventory(t, 10)
	b := f.inventory(t, 10)

	cart, err := f.svc.AddItem(ctx, user, AddItemInput{ItemID: a.ID, ItemType: "inventory", Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, user, AddItemInput{ItemID: b.ID, ItemType: "inventory", Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveItem(ctx, user, cart.Items[0].ID))
	require.True(t, pkgerrors.IsCode(f.svc.RemoveItem(ctx, user, cart.Items[0].ID), pkgerrors.CodeNotFound))

	require.NoError(t, f.svc.Clear(ctx, user))
	count, err := f.svc.Count(ctx, user)
	require.NoError(t, err)
	require.Zero(t, count)

	require.NoError(t, f.svc.Clear(ctx, uuid.New()))
}
