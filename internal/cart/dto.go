package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
)

// AddItemInput adds a catalog entry or increments an existing one.
type AddItemInput struct {
	ItemID   uuid.UUID
	ItemType string
	Quantity decimal.Decimal
}

type CartItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ItemID      uuid.UUID       `json:"itemId"`
	ItemType    enums.ItemType  `json:"itemType"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	MaxQuantity decimal.Decimal `json:"maxQuantity"`
	Unit        string          `json:"unit"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type CartDTO struct {
	ID       uuid.UUID       `json:"id"`
	UserID   uuid.UUID       `json:"userId"`
	Items    []CartItemDTO   `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func itemDTO(item models.CartItem) CartItemDTO {
	return CartItemDTO{
		ID:          item.ID,
		ItemID:      item.ItemID,
		ItemType:    item.ItemType,
		Title:       item.Title,
		Price:       item.Price,
		ImageURL:    item.ImageURL,
		Quantity:    item.Quantity,
		MaxQuantity: item.MaxQuantity,
		Unit:        item.Unit,
		LineTotal:   item.Price.Mul(item.Quantity),
	}
}

func cartDTO(cart *models.Cart) *CartDTO {
	out := &CartDTO{
		ID:       cart.ID,
		UserID:   cart.UserID,
		Items:    make([]CartItemDTO, 0, len(cart.Items)),
		Subtotal: decimal.Zero,
	}
	for _, item := range cart.Items {
		dto := itemDTO(item)
		out.Items = append(out.Items, dto)
		out.Subtotal = out.Subtotal.Add(dto.LineTotal)
	}
	return out
}
