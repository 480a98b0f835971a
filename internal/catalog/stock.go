package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
	"github.com/farmlink/farmlink-backend/pkg/logger"
	"github.com/farmlink/farmlink-backend/pkg/metrics"
)

const (
	defaultStockRetryAttempts = 5
	stockRetryBackoff         = 5 * time.Millisecond
)

var errVersionConflict = errors.New("catalog row changed concurrently")

// StockAdjustment moves one catalog counter by Quantity in the adjuster's mode.
type StockAdjustment struct {
	ItemID   uuid.UUID
	ItemType enums.ItemType
	Quantity decimal.Decimal
}

// StockAdjusterParams wires the adjuster.
type StockAdjusterParams struct {
	Repository    Repository
	Logger        *logger.Logger
	Metrics       *metrics.StockMetrics
	LowStock      int
	RetryAttempts uint64
}

// StockAdjuster applies order-driven debits and credits to catalog counters.
type StockAdjuster struct {
	repo     Repository
	logg     *logger.Logger
	metrics  *metrics.StockMetrics
	lowStock int
	attempts uint64
}

func NewStockAdjuster(params StockAdjusterParams) (*StockAdjuster, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	attempts := params.RetryAttempts
	if attempts == 0 {
		attempts = defaultStockRetryAttempts
	}
	return &StockAdjuster{
		repo:     params.Repository,
		logg:     logg,
		metrics:  params.Metrics,
		lowStock: params.LowStock,
		attempts: attempts,
	}, nil
}

// Apply adjusts every referenced counter, inside tx when one is given. Items
// are adjusted independently: a failing item is collected and the rest still
// run. Counters floor at zero, so a debit larger than the live counter is
// clamped and reported. Rows that no longer exist are skipped with a
// reconciliation warning.
func (a *StockAdjuster) Apply(ctx context.Context, tx *gorm.DB, adjustments []StockAdjustment, mode enums.StockMode) error {
	if mode != enums.StockDebit && mode != enums.StockCredit {
		return pkgerrors.Newf(pkgerrors.CodeInternal, "unsupported stock mode %q", mode)
	}
	repo := a.repo.WithTx(tx)
	var errs error
	for _, adj := range adjustments {
		if !adj.Quantity.IsPositive() {
			errs = multierr.Append(errs, pkgerrors.Newf(pkgerrors.CodeBadRequest, "%s %s: quantity must be greater than zero", adj.ItemType, adj.ItemID))
			continue
		}
		errs = multierr.Append(errs, a.applyOne(ctx, repo, adj, mode))
	}
	return errs
}

func (a *StockAdjuster) applyOne(ctx context.Context, repo Repository, adj StockAdjustment, mode enums.StockMode) error {
	backoff := retry.WithMaxRetries(a.attempts, retry.NewConstant(stockRetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		switch adj.ItemType {
		case enums.ItemTypeInventory:
			err = a.adjustInventory(ctx, repo, adj, mode)
		case enums.ItemTypeListing:
			err = a.adjustListing(ctx, repo, adj, mode)
		default:
			return pkgerrors.Newf(pkgerrors.CodeBadRequest, "unsupported item type %q", adj.ItemType)
		}
		if errors.Is(err, errVersionConflict) {
			a.metrics.IncAdjustment(mode.String(), adj.ItemType.String(), metrics.StockResultConflict)
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, errVersionConflict) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "stock changed concurrently, please retry")
	}
	return err
}

func (a *StockAdjuster) adjustInventory(ctx context.Context, repo Repository, adj StockAdjustment, mode enums.StockMode) error {
	if !adj.Quantity.Equal(adj.Quantity.Truncate(0)) {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "inventory quantities must be whole units")
	}
	item, err := repo.FindInventoryItem(ctx, adj.ItemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		a.warnMissing(ctx, adj, mode)
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory item")
	}

	qty := adj.Quantity.IntPart()
	next := item.StockQuantity + mode.Sign()*qty
	clamped := next < 0
	if clamped {
		next = 0
	}
	ok, err := repo.UpdateInventoryStock(ctx, item.ID, item.Version, next, DeriveInventoryStatus(next, a.lowStock))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update inventory stock")
	}
	if !ok {
		return errVersionConflict
	}
	if clamped {
		a.warnClamped(ctx, adj, decimal.NewFromInt(item.StockQuantity))
		return nil
	}
	a.metrics.IncAdjustment(mode.String(), adj.ItemType.String(), metrics.StockResultApplied)
	return nil
}

func (a *StockAdjuster) adjustListing(ctx context.Context, repo Repository, adj StockAdjustment, mode enums.StockMode) error {
	listing, err := repo.FindListing(ctx, adj.ItemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		a.warnMissing(ctx, adj, mode)
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}

	next := listing.CapacityKg.Add(adj.Quantity.Mul(decimal.NewFromInt(mode.Sign())))
	clamped := next.IsNegative()
	if clamped {
		next = decimal.Zero
	}
	ok, err := repo.UpdateListingCapacity(ctx, listing.ID, listing.Version, next, DeriveListingStatus(next))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update listing capacity")
	}
	if !ok {
		return errVersionConflict
	}
	if clamped {
		a.warnClamped(ctx, adj, listing.CapacityKg)
		return nil
	}
	a.metrics.IncAdjustment(mode.String(), adj.ItemType.String(), metrics.StockResultApplied)
	return nil
}

func (a *StockAdjuster) warnMissing(ctx context.Context, adj StockAdjustment, mode enums.StockMode) {
	a.metrics.IncAdjustment(mode.String(), adj.ItemType.String(), metrics.StockResultSkipped)
	a.metrics.IncReconciliationWarning(adj.ItemType.String())
	logCtx := a.logg.WithFields(ctx, map[string]any{
		"item_id":   adj.ItemID.String(),
		"item_type": adj.ItemType,
		"mode":      mode,
		"quantity":  adj.Quantity.String(),
	})
	a.logg.Warn(logCtx, "stock adjustment skipped: catalog item missing")
}

// warnClamped reports a debit that exceeded the live counter; the counter was
// written as zero.
func (a *StockAdjuster) warnClamped(ctx context.Context, adj StockAdjustment, available decimal.Decimal) {
	a.metrics.IncAdjustment(enums.StockDebit.String(), adj.ItemType.String(), metrics.StockResultClamped)
	a.metrics.IncReconciliationWarning(adj.ItemType.String())
	logCtx := a.logg.WithFields(ctx, map[string]any{
		"item_id":   adj.ItemID.String(),
		"item_type": adj.ItemType,
		"quantity":  adj.Quantity.String(),
		"available": available.String(),
	})
	a.logg.Warn(logCtx, "stock debit clamped at zero")
}
