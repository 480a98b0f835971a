package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
)

// CartRepository defines the persistence surface for per-user carts.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	FindItemByRef(ctx context.Context, cartID, catalogID uuid.UUID, itemType enums.ItemType) (*models.CartItem, error)
	FindItemsByIDs(ctx context.Context, cartID uuid.UUID, ids []uuid.UUID) ([]models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItems(ctx context.Context, cartID uuid.UUID, ids []uuid.UUID) (int64, error)
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	CountItems(ctx context.Context, userID uuid.UUID) (int64, error)
}
