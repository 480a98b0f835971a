package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/pkg/db/dbtest"
	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
	"github.com/farmlink/farmlink-backend/pkg/metrics"
)

func TestDeriveInventoryStatus(t *testing.T) {
	cases := []struct {
		qty       int64
		threshold int
		want      enums.InventoryStatus
	}{
		{0, 10, enums.InventoryStatusOutOfStock},
		{1, 10, enums.InventoryStatusLowStock},
		{9, 10, enums.InventoryStatusLowStock},
		{10, 10, enums.InventoryStatusAvailable},
		{14, 15, enums.InventoryStatusLowStock},
		{15, 15, enums.InventoryStatusAvailable},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DeriveInventoryStatus(tc.qty, tc.threshold), "qty=%d threshold=%d", tc.qty, tc.threshold)
	}
	require.Equal(t, enums.ListingStatusSold, DeriveListingStatus(decimal.Zero))
	require.Equal(t, enums.ListingStatusAvailable, DeriveListingStatus(decimal.RequireFromString("0.5")))
}

type adjusterFixture struct {
	db       *gorm.DB
	repo     Repository
	adjuster *StockAdjuster
	registry *prometheus.Registry
}

func newAdjusterFixture(t *testing.T, repo func(Repository) Repository) adjusterFixture {
	t.Helper()
	conn := dbtest.New(t)
	base := NewRepository(conn)
	wrapped := base
	if repo != nil {
		wrapped = repo(base)
	}
	reg := prometheus.NewRegistry()
	adjuster, err := NewStockAdjuster(StockAdjusterParams{
		Repository:    wrapped,
		Metrics:       metrics.NewStockMetrics(reg),
		LowStock:      10,
		RetryAttempts: 3,
	})
	require.NoError(t, err)
	return adjusterFixture{db: conn, repo: base, adjuster: adjuster, registry: reg}
}

func seedInventory(t *testing.T, conn *gorm.DB, stock int64, price int64) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		Name:          "Fertilizer",
		Category:      "inputs",
		Price:         decimal.NewFromInt(price),
		StockQuantity: stock,
		Status:        DeriveInventoryStatus(stock, 15),
		Unit:          "unit",
		CreatedBy:     uuid.New(),
	}
	require.NoError(t, conn.Create(&item).Error)
	return item
}

func seedListing(t *testing.T, conn *gorm.DB, capacity string, price int64) models.Listing {
	t.Helper()
	capacityKg := decimal.RequireFromString(capacity)
	listing := models.Listing{
		FarmerID:   uuid.New(),
		CropName:   "Maize",
		PricePerKg: decimal.NewFromInt(price),
		CapacityKg: capacityKg,
		Status:     DeriveListingStatus(capacityKg),
	}
	require.NoError(t, conn.Create(&listing).Error)
	return listing
}

func (f adjusterFixture) apply(t *testing.T, mode enums.StockMode, adjustments ...StockAdjustment) error {
	t.Helper()
	return f.db.Transaction(func(tx *gorm.DB) error {
		return f.adjuster.Apply(context.Background(), tx, adjustments, mode)
	})
}

func TestApplyDebitRecomputesStatusWithOrderThreshold(t *testing.T) {
	f := newAdjusterFixture(t, nil)
	item := seedInventory(t, f.db, 15, 100)

	require.NoError(t, f.apply(t, enums.StockDebit, StockAdjustment{ItemID: item.ID, ItemType: enums.ItemTypeInventory, Quantity: decimal.NewFromInt(6)}))

	got, err := f.repo.FindInventoryItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, int64(9), got.StockQuantity)
	require.Equal(t, enums.InventoryStatusLowStock, got.Status)
	require.Equal(t, item.Version+1, got.Version)

	require.NoError(t, f.apply(t, enums.StockDebit, StockAdjustment{ItemID: item.ID, ItemType: enums.ItemTypeInventory, Quantity: decimal.NewFromInt(9)}))
	got, err = f.repo.FindInventoryItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Zero(t, got.StockQuantity)
	require.Equal(t, enums.InventoryStatusOutOfStock, got.Status)
}

func TestApplyDebitClampsAtZero(t *testing.T) {
	f := newAdjusterFixture(t, nil)
	item := seedInventory(t, f.db, 2, 100)
	listing := seedListing(t, f.db, "1.5", 40)

	require.NoError(t, f.apply(t, enums.StockDebit,
		StockAdjustment{ItemID: item.ID, ItemType: enums.ItemTypeInventory, Quantity: decimal.NewFromInt(3)},
		StockAdjustment{ItemID: listing.ID, ItemType: enums.ItemTypeListing, Quantity: decimal.NewFromInt(2)},
	))

	got, err := f.repo.FindInventoryItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Zero(t, got.StockQuantity)
	require.Equal(t, enums.InventoryStatusOutOfStock, got.Status)

	gotListing, err := f.repo.FindListing(context.Background(), listing.ID)
	require.NoError(t, err)
	require.True(t, gotListing.CapacityKg.IsZero())
	require.Equal(t, enums.ListingStatusSold, gotListing.Status)

	require.Equal(t, 2.0, metrics.CounterValue(f.registry, "farmlink_stock_adjustments_total", map[string]string{"result": metrics.StockResultClamped}))
	require.Equal(t, 1.0, metrics.CounterValue(f.registry, "farmlink_stock_reconciliation_warnings_total", map[string]string{"kind": "inventory"}))
}

func TestApplyKeepsGoingPastFailingItem(t *testing.T) {
	f := newAdjusterFixture(t, nil)
	broken := seedInventory(t, f.db, 20, 100)
	item := seedInventory(t, f.db, 8, 100)

	err := f.adjuster.Apply(context.Background(), nil, []StockAdjustment{
		{ItemID: broken.ID, ItemType: enums.ItemTypeInventory, Quantity: decimal.RequireFromString("1.5")},
		{ItemID: item.ID, ItemType: enums.ItemTypeInventory, Quantity: decimal.NewFromInt(3)},
	}, enums.StockCredit)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	got, err := f.repo.FindInventoryItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, int64(11), got.StockQuantity)
	require.Equal(t, enums.InventoryStatusAvailable, got.Status)

	untouched, err := f.repo.FindInventoryItem(context.Background(), broken.ID)
	require.NoError(t, err)
	require.Equal(t, int64(20), untouched.StockQuantity)
}

func TestApplyRejectsFractionalInventoryQuantity(t *testing.T) {
	f := newAdjusterFixture(t, nil)
	item := seedInventory(t, f.db, 20, 100)

	err := f.apply(t, enums.StockDebit, StockAdjustment{ItemID: item.ID, ItemType: enums.ItemTypeInventory, Quantity: decimal.RequireFromString("1.5")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))
}

func TestApplyListingDebitAndCredit(t *testing.T) {
	f := newAdjusterFixture(t, nil)
	listing := seedListing(t, f.db, "20", 50)
	adj := StockAdjustment{ItemID: listing.ID, ItemType: enums.ItemTypeListing, Quantity: decimal.NewFromInt(20)}

	require.NoError(t, f.apply(t, enums.StockDebit, adj))
	got, err := f.repo.FindListing(context.Background(), listing.ID)
	require.NoError(t, err)
	require.True(t, got.CapacityKg.IsZero())
	require.Equal(t, enums.ListingStatusSold, got.Status)

	require.NoError(t, f.apply(t, enums.StockCredit, adj))
	got, err = f.repo.FindListing(context.Background(), listing.ID)
	require.NoError(t, err)
	require.True(t, got.CapacityKg.Equal(decimal.NewFromInt(20)))
	require.Equal(t, enums.ListingStatusAvailable, got.Status)
}

func TestApplySkipsMissingItemWithWarning(t *testing.T) {
	f := newAdjusterFixture(t, nil)
	item := seedInventory(t, f.db, 1, 10)

	err := f.apply(t, enums.StockCredit,
		StockAdjustment{ItemID: uuid.New(), ItemType: enums.ItemTypeListing, Quantity: decimal.NewFromInt(2)},
		StockAdjustment{ItemID: item.ID, ItemType: enums.ItemTypeInventory, Quantity: decimal.NewFromInt(4)},
	)
	require.NoError(t, err)

	got, err := f.repo.FindInventoryItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), got.StockQuantity)
	require.Equal(t, 1.0, metrics.CounterValue(f.registry, "farmlink_stock_reconciliation_warnings_total", map[string]string{"kind": "listing"}))
}

// conflictingRepo reports a lost version race for the first n inventory writes.
type conflictingRepo struct {
	Repository
	conflicts int
	calls     int
}

func (r *conflictingRepo) WithTx(tx *gorm.DB) Repository {
	return &conflictingTxRepo{Repository: r.Repository.WithTx(tx), parent: r}
}

type conflictingTxRepo struct {
	Repository
	parent *conflictingRepo
}

func (r *conflictingTxRepo) UpdateInventoryStock(ctx context.Context, id uuid.UUID, version, qty int64, status enums.InventoryStatus) (bool, error) {
	r.parent.calls++
	if r.parent.calls <= r.parent.conflicts {
		return false, nil
	}
	return r.Repository.UpdateInventoryStock(ctx, id, version, qty, status)
}

func TestApplyRetriesVersionConflicts(t *testing.T) {
	stub := &conflictingRepo{conflicts: 2}
	f := newAdjusterFixture(t, func(base Repository) Repository {
		stub.Repository = base
		return stub
	})
	item := seedInventory(t, f.db, 12, 100)

	require.NoError(t, f.apply(t, enums.StockDebit, StockAdjustment{ItemID: item.ID, ItemType: enums.ItemTypeInventory, Quantity: decimal.NewFromInt(2)}))
	require.Equal(t, 3, stub.calls)

	got, err := f.repo.FindInventoryItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10), got.StockQuantity)
	require.Equal(t, 2.0, metrics.CounterValue(f.registry, "farmlink_stock_adjustments_total", map[string]string{"result": metrics.StockResultConflict}))
}

func TestApplyGivesUpAfterRetries(t *testing.T) {
	stub := &conflictingRepo{conflicts: 100}
	f := newAdjusterFixture(t, func(base Repository) Repository {
		stub.Repository = base
		return stub
	})
	item := seedInventory(t, f.db, 12, 100)

	err := f.apply(t, enums.StockDebit, StockAdjustment{ItemID: item.ID, ItemType: enums.ItemTypeInventory, Quantity: decimal.NewFromInt(2)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	require.Equal(t, 4, stub.calls)
}
