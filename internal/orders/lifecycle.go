package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/internal/catalog"
	"github.com/farmlink/farmlink-backend/internal/ledger"
	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
	"github.com/farmlink/farmlink-backend/pkg/outbox"
	"github.com/farmlink/farmlink-backend/pkg/outbox/payloads"
)

// UpdateStatus sets any of the six order statuses; none is barred from
// following another. Moving into CANCELLED from any other status restores the
// stock of every line.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if input.ActorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins change order status")
	}
	next, err := enums.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(input.Status)))
	if err != nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeBadRequest, "invalid order status %q", input.Status)
	}

	order, err := s.load(ctx, nil, input.OrderID)
	if err != nil {
		return nil, err
	}
	previous := order.Status
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if previous == next {
		return FromModel(order), nil
	}

	now := s.now().UTC()
	updates := map[string]any{"status": next}
	switch next {
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
	}
	if err := s.writeStatus(ctx, order, updates); err != nil {
		return nil, err
	}

	var e effects
	restored := false
	switch next {
	case enums.OrderStatusCancelled:
		e.run("restore stock", func() error {
			return s.stock.Apply(ctx, nil, lineAdjustments(order), enums.StockCredit)
		})
		restored = true
		e.run("record ledger reversal", func() error {
			return s.recordReversal(ctx, order, input.ActorID, "status changed to CANCELLED")
		})
	case enums.OrderStatusPaid:
		e.run("record payment", func() error {
			return s.recordPaid(ctx, order, input.ActorID)
		})
	}
	e.run("queue status change", func() error {
		return s.emit(ctx, enums.EventOrderStatusChanged, order, input.ActorID, input.ActorRole, payloads.OrderStatusChangedEvent{
			OrderID:        order.ID,
			CustomerID:     order.CustomerID,
			ContactEmail:   order.ContactEmail,
			PreviousStatus: previous,
			Status:         next,
			StockRestored:  restored,
		})
	})
	s.report(ctx, &e, "order status updated but a follow-up step failed")

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"status": string(next), "previous": string(previous)}), "order status updated")
	return s.after(ctx, order, updates), nil
}

// Cancel is available to the owner and to admins. DELIVERED and CANCELLED
// orders are refused without any write. Once the order is CANCELLED the
// delivery, the stock, the ledger and the notification are handled one by
// one; a failing step is logged and the rest still run.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*OrderDTO, error) {
	order, err := s.load(ctx, nil, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != input.ActorID && input.ActorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.Newf(pkgerrors.CodeBadRequest, "order is already %s", order.Status).
			WithDetails(map[string]string{"status": string(order.Status)})
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	now := s.now().UTC()
	updates := map[string]any{"status": enums.OrderStatusCancelled, "cancelled_at": now}
	if err := s.writeStatus(ctx, order, updates); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "order cancelled"
	}

	var e effects
	if order.DeliveryID != nil {
		e.run("cancel delivery", func() error {
			return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
				return s.deliveries.Cancel(ctx, tx, *order.DeliveryID, input.ActorID, reason)
			})
		})
	}
	e.run("restore stock", func() error {
		return s.stock.Apply(ctx, nil, lineAdjustments(order), enums.StockCredit)
	})
	e.run("record ledger reversal", func() error {
		return s.recordReversal(ctx, order, input.ActorID, reason)
	})
	e.run("queue cancellation notice", func() error {
		return s.emit(ctx, enums.EventOrderCancelled, order, input.ActorID, input.ActorRole, payloads.OrderCancelledEvent{
			OrderID:        order.ID,
			CustomerID:     order.CustomerID,
			ContactName:    order.ContactName,
			ContactEmail:   order.ContactEmail,
			PreviousStatus: order.Status,
			Total:          order.Total,
			CancelledAt:    now,
			CancelledBy:    actorOr(input.ActorID, order.CustomerID),
		})
	})
	s.report(ctx, &e, "order cancelled but a follow-up step failed")

	s.logg.Info(s.logg.WithActorRole(ctx, string(input.ActorRole)), "order cancelled")
	return s.after(ctx, order, updates), nil
}

// writeStatus applies updates only if nobody changed the status since order was read.
func (s *service) writeStatus(ctx context.Context, order *models.Order, updates map[string]any) error {
	ok, err := s.repo.UpdateStatusFrom(ctx, order.ID, order.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently, please retry")
	}
	return nil
}

func lineAdjustments(order *models.Order) []catalog.StockAdjustment {
	adjustments := make([]catalog.StockAdjustment, 0, len(order.Items))
	for _, li := range order.Items {
		adjustments = append(adjustments, catalog.StockAdjustment{ItemID: li.ItemID, ItemType: li.ItemType, Quantity: li.Quantity})
	}
	return adjustments
}

// recordReversal books the negative of the order total once per order.
func (s *service) recordReversal(ctx context.Context, order *models.Order, actorID uuid.UUID, note string) error {
	reversed, err := s.ledger.HasEvent(ctx, nil, order.ID, enums.LedgerEventOrderCancelled)
	if err != nil || reversed {
		return err
	}
	_, err = s.ledger.RecordEvent(ctx, nil, ledger.RecordLedgerEventInput{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		ActorUserID: actorOr(actorID, order.CustomerID),
		Type:        enums.LedgerEventOrderCancelled,
		Amount:      order.Total.Neg(),
		Metadata:    map[string]any{"previous_status": string(order.Status), "note": note},
	})
	return err
}

func (s *service) recordPaid(ctx context.Context, order *models.Order, actorID uuid.UUID) error {
	paid, err := s.ledger.HasEvent(ctx, nil, order.ID, enums.LedgerEventOrderPaid)
	if err != nil || paid {
		return err
	}
	_, err = s.ledger.RecordEvent(ctx, nil, ledger.RecordLedgerEventInput{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		ActorUserID: actorOr(actorID, order.CustomerID),
		Type:        enums.LedgerEventOrderPaid,
		Amount:      order.Total,
		Metadata:    map[string]any{"payment_method": order.PaymentMethod},
	})
	return err
}

// emit queues an order event in its own transaction.
func (s *service) emit(ctx context.Context, eventType enums.OutboxEventType, order *models.Order, actorID uuid.UUID, role enums.UserRole, data any) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actorID, role),
			Data:          data,
		})
	})
}

// after re-reads the order for the response. The status write has already
// committed, so a failed read falls back to the row with updates applied.
func (s *service) after(ctx context.Context, order *models.Order, updates map[string]any) *OrderDTO {
	fresh, err := s.load(ctx, nil, order.ID)
	if err == nil {
		return FromModel(fresh)
	}
	s.logg.Error(ctx, "reload order", err)
	written := *order
	if status, ok := updates["status"].(enums.OrderStatus); ok {
		written.Status = status
	}
	if at, ok := updates["cancelled_at"].(time.Time); ok {
		written.CancelledAt = &at
	}
	if at, ok := updates["delivered_at"].(time.Time); ok {
		written.DeliveredAt = &at
	}
	return FromModel(&written)
}

func actorOr(actorID, fallback uuid.UUID) uuid.UUID {
	if actorID == uuid.Nil {
		return fallback
	}
	return actorID
}
