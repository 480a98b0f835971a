package deliveries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
	"github.com/farmlink/farmlink-backend/pkg/outbox"
	"github.com/farmlink/farmlink-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// UserLookup resolves the driver an admin assigns.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service manages delivery records created by order placement.
type Service interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Delivery, error)
	Assign(ctx context.Context, input AssignInput) (*DeliveryDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*DeliveryDTO, error)
	Cancel(ctx context.Context, tx *gorm.DB, deliveryID, actorID uuid.UUID, note string) error
	Get(ctx context.Context, deliveryID, actorID uuid.UUID, actorRole enums.UserRole) (*DeliveryDTO, error)
	ListForDriver(ctx context.Context, driverID uuid.UUID) ([]DeliveryDTO, error)
}

type service struct {
	repo   Repository
	users  UserLookup
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

func NewService(repo Repository, users UserLookup, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		users:  users,
		tx:     tx,
		outbox: outbox,
		now:    time.Now,
	}, nil
}

func (s *service) CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Delivery, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, fmt.Errorf("persisted order required")
	}
	if order.DeliveryAddress == nil || strings.TrimSpace(*order.DeliveryAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "delivery address is required")
	}

	actor := order.CustomerID
	delivery := &models.Delivery{
		OrderID:      order.ID,
		RequesterID:  order.CustomerID,
		ContactName:  order.ContactName,
		ContactPhone: order.ContactPhone,
		Address:      strings.TrimSpace(*order.DeliveryAddress),
		Status:       enums.DeliveryStatusPending,
		History: []models.DeliveryStatusEvent{{
			Status:  enums.DeliveryStatusPending,
			ActorID: &actor,
		}},
	}
	if err := s.repo.WithTx(tx).Create(ctx, delivery); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create delivery")
	}
	return delivery, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*DeliveryDTO, error) {
	if input.ActorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins assign deliveries")
	}
	if input.DriverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "driver id is required")
	}

	driver, err := s.users.FindByID(ctx, input.DriverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load driver")
	}
	if driver.Role != enums.RoleDriver || !driver.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "user is not an active driver")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		delivery, err := s.load(ctx, tx, input.DeliveryID)
		if err != nil {
			return err
		}
		// Reassigning an ASSIGNED delivery swaps the driver and records the hand-over.
		if delivery.Status != enums.DeliveryStatusAssigned {
			if err := checkTransition(delivery.Status, enums.DeliveryStatusAssigned); err != nil {
				return err
			}
		}
		now := s.now().UTC()
		updates := map[string]any{"driver_id": driver.ID, "assigned_at": now}
		return s.transition(ctx, tx, delivery, enums.DeliveryStatusAssigned, nil, input.ActorID, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, input.DeliveryID)
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*DeliveryDTO, error) {
	next, err := enums.ParseDeliveryStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "invalid delivery status")
	}
	if next == enums.DeliveryStatusAssigned {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "use the assign operation to assign a driver")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		delivery, err := s.load(ctx, tx, input.DeliveryID)
		if err != nil {
			return err
		}
		if input.ActorRole != enums.RoleAdmin {
			if input.ActorRole != enums.RoleDriver || delivery.DriverID == nil || *delivery.DriverID != input.ActorID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "delivery is not assigned to you")
			}
		}
		if err := checkTransition(delivery.Status, next); err != nil {
			return err
		}
		return s.transition(ctx, tx, delivery, next, trimNote(input.Note), input.ActorID, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, input.DeliveryID)
}

// Cancel runs inside the caller's transaction and follows an order
// cancellation. Any delivery that is not yet DELIVERED or CANCELLED moves to
// CANCELLED, including one already picked up or in transit; the driver
// progression rules do not apply here.
func (s *service) Cancel(ctx context.Context, tx *gorm.DB, deliveryID, actorID uuid.UUID, note string) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	delivery, err := s.load(ctx, tx, deliveryID)
	if err != nil {
		return err
	}
	if delivery.Status.IsTerminal() {
		return nil
	}
	return s.transition(ctx, tx, delivery, enums.DeliveryStatusCancelled, trimNote(&note), actorID, nil)
}

func (s *service) Get(ctx context.Context, deliveryID, actorID uuid.UUID, actorRole enums.UserRole) (*DeliveryDTO, error) {
	delivery, err := s.load(ctx, nil, deliveryID)
	if err != nil {
		return nil, err
	}
	if !canView(delivery, actorID, actorRole) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery belongs to another user")
	}
	return FromModel(delivery), nil
}

func (s *service) ListForDriver(ctx context.Context, driverID uuid.UUID) ([]DeliveryDTO, error) {
	rows, err := s.repo.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list deliveries")
	}
	out := make([]DeliveryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// transition writes the new status, appends the history row and queues the
// change event. The current status always mirrors the newest history row.
func (s *service) transition(ctx context.Context, tx *gorm.DB, delivery *models.Delivery, next enums.DeliveryStatus, note *string, actorID uuid.UUID, updates map[string]any) error {
	repo := s.repo.WithTx(tx)
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = next
	if err := repo.Update(ctx, delivery.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update delivery")
	}

	var actor *uuid.UUID
	if actorID != uuid.Nil {
		actor = &actorID
	}
	entry := &models.DeliveryStatusEvent{
		DeliveryID: delivery.ID,
		Status:     next,
		Note:       note,
		ActorID:    actor,
		CreatedAt:  s.now().UTC(),
	}
	if err := repo.AppendHistory(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append delivery history")
	}

	driverID := delivery.DriverID
	if id, ok := updates["driver_id"].(uuid.UUID); ok {
		driverID = &id
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventDeliveryStatusChanged,
		AggregateType: enums.AggregateDelivery,
		AggregateID:   delivery.ID,
		Actor:         actorRef(actor),
		Data: payloads.DeliveryStatusChangedEvent{
			DeliveryID:     delivery.ID,
			OrderID:        delivery.OrderID,
			DriverID:       driverID,
			PreviousStatus: delivery.Status,
			Status:         next,
			Note:           note,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit delivery event")
	}
	return nil
}

func (s *service) load(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Delivery, error) {
	delivery, err := s.repo.WithTx(tx).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery")
	}
	return delivery, nil
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*DeliveryDTO, error) {
	delivery, err := s.load(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	return FromModel(delivery), nil
}

func checkTransition(from, to enums.DeliveryStatus) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeBadRequest, "delivery cannot move from %s to %s", from, to).
		WithDetails(map[string]string{"from": string(from), "to": string(to)})
}

func canView(d *models.Delivery, actorID uuid.UUID, role enums.UserRole) bool {
	switch {
	case role == enums.RoleAdmin:
		return true
	case d.RequesterID == actorID:
		return true
	case d.DriverID != nil && *d.DriverID == actorID:
		return true
	}
	return false
}

func trimNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func actorRef(id *uuid.UUID) *outbox.ActorRef {
	if id == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *id}
}
