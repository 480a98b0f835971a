package deliveries

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
)

type AssignInput struct {
	DeliveryID uuid.UUID
	DriverID   uuid.UUID
	ActorID    uuid.UUID
	ActorRole  enums.UserRole
}

type UpdateStatusInput struct {
	DeliveryID uuid.UUID
	Status     string
	Note       *string
	ActorID    uuid.UUID
	ActorRole  enums.UserRole
}

type HistoryEntryDTO struct {
	Status    enums.DeliveryStatus `json:"status"`
	Note      *string              `json:"note,omitempty"`
	ActorID   *uuid.UUID           `json:"actorId,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

type DeliveryDTO struct {
	ID           uuid.UUID            `json:"id"`
	OrderID      uuid.UUID            `json:"orderId"`
	RequesterID  uuid.UUID            `json:"requesterId"`
	ContactName  string               `json:"contactName"`
	ContactPhone string               `json:"contactPhone"`
	Address      string               `json:"address"`
	DriverID     *uuid.UUID           `json:"driverId,omitempty"`
	Status       enums.DeliveryStatus `json:"status"`
	AssignedAt   *time.Time           `json:"assignedAt,omitempty"`
	History      []HistoryEntryDTO    `json:"history"`
	CreatedAt    time.Time            `json:"createdAt"`
}

func FromModel(d *models.Delivery) *DeliveryDTO {
	if d == nil {
		return nil
	}
	history := make([]HistoryEntryDTO, 0, len(d.History))
	for _, h := range d.History {
		history = append(history, HistoryEntryDTO{
			Status:    h.Status,
			Note:      h.Note,
			ActorID:   h.ActorID,
			CreatedAt: h.CreatedAt,
		})
	}
	return &DeliveryDTO{
		ID:           d.ID,
		OrderID:      d.OrderID,
		RequesterID:  d.RequesterID,
		ContactName:  d.ContactName,
		ContactPhone: d.ContactPhone,
		Address:      d.Address,
		DriverID:     d.DriverID,
		Status:       d.Status,
		AssignedAt:   d.AssignedAt,
		History:      history,
		CreatedAt:    d.CreatedAt,
	}
}
