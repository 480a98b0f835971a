package orders

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmlink/farmlink-backend/api/middleware"
	"github.com/farmlink/farmlink-backend/api/responses"
	"github.com/farmlink/farmlink-backend/api/validators"
	internalorders "github.com/farmlink/farmlink-backend/internal/orders"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
	"github.com/farmlink/farmlink-backend/pkg/logger"
)

// Field rules for placement live in the service so the documented validation
// order holds for every caller; the request structs only shape the JSON.
type lineItemRequest struct {
	ItemID   uuid.UUID       `json:"itemId"`
	ItemType string          `json:"itemType"`
	Quantity decimal.Decimal `json:"quantity"`
}

type orderDetailsRequest struct {
	DeliveryType    string  `json:"deliveryType"`
	DeliveryAddress *string `json:"deliveryAddress,omitempty"`
	ContactName     string  `json:"contactName"`
	ContactPhone    string  `json:"contactPhone"`
	ContactEmail    string  `json:"contactEmail"`
	Notes           *string `json:"notes,omitempty"`
	PaymentMethod   string  `json:"paymentMethod,omitempty"`
}

type placeOrderRequest struct {
	Items []lineItemRequest `json:"items"`
	orderDetailsRequest
}

type placeFromCartRequest struct {
	SelectedItems []uuid.UUID `json:"selectedItems"`
	orderDetailsRequest
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

func (d orderDetailsRequest) toInput() internalorders.OrderDetails {
	return internalorders.OrderDetails{
		DeliveryType:    d.DeliveryType,
		DeliveryAddress: validators.SanitizeOptional(d.DeliveryAddress, 500),
		ContactName:     validators.SanitizeString(d.ContactName, 120),
		ContactPhone:    validators.SanitizeString(d.ContactPhone, 32),
		ContactEmail:    validators.SanitizeString(d.ContactEmail, 254),
		Notes:           validators.SanitizeOptional(d.Notes, 1000),
		PaymentMethod:   validators.SanitizeString(d.PaymentMethod, 40),
	}
}

// Place creates an order from an explicit item list.
func Place(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		userID, role, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body placeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]internalorders.LineItemInput, 0, len(body.Items))
		for _, item := range body.Items {
			items = append(items, internalorders.LineItemInput{
				ItemID:   item.ItemID,
				ItemType: item.ItemType,
				Quantity: item.Quantity,
			})
		}

		order, err := svc.Place(r.Context(), internalorders.PlaceOrderInput{
			CustomerID:   userID,
			CustomerRole: role,
			Items:        items,
			OrderDetails: body.toInput(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}

func PlaceFromCart(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		userID, role, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body placeFromCartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceFromCart(r.Context(), internalorders.PlaceFromCartInput{
			CustomerID:    userID,
			CustomerRole:  role,
			SelectedItems: body.SelectedItems,
			OrderDetails:  body.toInput(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}

func ListMine(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		userID, _, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListMine(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		userID, role, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, userID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		userID, role, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID:   orderID,
			ActorID:   userID,
			ActorRole: role,
			Reason:    validators.SanitizeString(body.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateStatus is the admin status override.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		userID, role, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateStatus(r.Context(), internalorders.UpdateStatusInput{
			OrderID:   orderID,
			Status:    body.Status,
			ActorID:   userID,
			ActorRole: role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
