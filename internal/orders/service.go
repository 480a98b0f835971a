package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/internal/catalog"
	"github.com/farmlink/farmlink-backend/internal/ledger"
	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
	"github.com/farmlink/farmlink-backend/pkg/logger"
	"github.com/farmlink/farmlink-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockAdjuster interface {
	Apply(ctx context.Context, tx *gorm.DB, adjustments []catalog.StockAdjustment, mode enums.StockMode) error
}

type deliveryLinker interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Delivery, error)
	Cancel(ctx context.Context, tx *gorm.DB, deliveryID, actorID uuid.UUID, note string) error
}

type ledgerRecorder interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordLedgerEventInput) (*models.LedgerEvent, error)
	HasEvent(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
}

type cartSelector interface {
	SelectedItems(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cartItemIDs []uuid.UUID) ([]models.CartItem, error)
	RemoveItems(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cartItemIDs []uuid.UUID) error
}

// Service covers order placement and the order lifecycle.
type Service interface {
	Place(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error)
	PlaceFromCart(ctx context.Context, input PlaceFromCartInput) (*OrderDTO, error)
	Get(ctx context.Context, orderID, requesterID uuid.UUID, requesterRole enums.UserRole) (*OrderDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	Cancel(ctx context.Context, input CancelInput) (*OrderDTO, error)
}

// ServiceParams bundles the collaborators of the order service.
type ServiceParams struct {
	Repository  Repository
	TxRunner    txRunner
	Catalog     catalog.Repository
	Stock       stockAdjuster
	Deliveries  deliveryLinker
	Ledger      ledgerRecorder
	Cart        cartSelector
	Outbox      outboxPublisher
	Logger      *logger.Logger
	DeliveryFee decimal.Decimal
	Now         func() time.Time
}

type service struct {
	repo        Repository
	tx          txRunner
	catalog     catalog.Repository
	stock       stockAdjuster
	deliveries  deliveryLinker
	ledger      ledgerRecorder
	cart        cartSelector
	outbox      outboxPublisher
	logg        *logger.Logger
	deliveryFee decimal.Decimal
	now         func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case params.Stock == nil:
		return nil, fmt.Errorf("stock adjuster required")
	case params.Deliveries == nil:
		return nil, fmt.Errorf("deliveries service required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case params.Cart == nil:
		return nil, fmt.Errorf("cart service required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.DeliveryFee.IsNegative():
		return nil, fmt.Errorf("delivery fee must not be negative")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repository,
		tx:          params.TxRunner,
		catalog:     params.Catalog,
		stock:       params.Stock,
		deliveries:  params.Deliveries,
		ledger:      params.Ledger,
		cart:        params.Cart,
		outbox:      params.Outbox,
		logg:        logg,
		deliveryFee: params.DeliveryFee,
		now:         now,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID, requesterID uuid.UUID, requesterRole enums.UserRole) (*OrderDTO, error) {
	order, err := s.load(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != requesterID && requesterRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	return FromModel(order), nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	rows, err := s.repo.ListByCustomer(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) load(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.WithTx(tx).FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func actorRef(id uuid.UUID, role enums.UserRole) *outbox.ActorRef {
	if id == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: id, Role: string(role)}
}
