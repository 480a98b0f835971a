package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
)

// Service records order money movements. A nil tx writes on its own.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	HasEvent(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
// Reversals carry a negative Amount.
type RecordLedgerEventInput struct {
	OrderID     uuid.UUID             `json:"order_id"`
	CustomerID  uuid.UUID             `json:"customer_id"`
	ActorUserID uuid.UUID             `json:"actor_user_id"`
	Type        enums.LedgerEventType `json:"type"`
	Amount      decimal.Decimal       `json:"amount"`
	Metadata    map[string]any        `json:"metadata,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("customer id is required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, fmt.Errorf("actor user id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}

	var metadata json.RawMessage
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode ledger metadata: %w", err)
		}
		metadata = raw
	}

	event := &models.LedgerEvent{
		OrderID:     input.OrderID,
		CustomerID:  input.CustomerID,
		ActorUserID: input.ActorUserID,
		Type:        input.Type,
		Amount:      input.Amount,
		Metadata:    metadata,
	}
	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) HasEvent(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("order id is required")
	}
	if !eventType.IsValid() {
		return false, fmt.Errorf("invalid ledger event type %q", eventType)
	}
	count, err := s.repo.WithTx(tx).CountByType(ctx, orderID, eventType)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

// Balance nets placements against reversals. order_paid rows record settlement
// of the same money and are left out.
func Balance(events []models.LedgerEvent) decimal.Decimal {
	total := decimal.Zero
	for _, event := range events {
		if event.Type == enums.LedgerEventOrderPaid {
			continue
		}
		total = total.Add(event.Amount)
	}
	return total
}
