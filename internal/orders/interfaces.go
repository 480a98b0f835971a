package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
)

// Repository defines the persistence operations orders rely on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
	SetDeliveryID(ctx context.Context, orderID, deliveryID uuid.UUID) error
	// UpdateStatusFrom writes updates only while the order still holds status
	// from, reporting whether the row was changed.
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error)
}
