package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/farmlink/farmlink-backend/api/middleware"
	"github.com/farmlink/farmlink-backend/api/responses"
	"github.com/farmlink/farmlink-backend/api/validators"
	"github.com/farmlink/farmlink-backend/internal/catalog"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
	"github.com/farmlink/farmlink-backend/pkg/logger"
)

type createInventoryRequest struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Category      string          `json:"category" validate:"required,max=80"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int64           `json:"stockQuantity" validate:"min=0"`
	ImageURL      *string         `json:"imageUrl,omitempty" validate:"omitempty,url,max=2048"`
}

type setStockRequest struct {
	StockQuantity *int64 `json:"stockQuantity" validate:"required,min=0"`
}

type createListingRequest struct {
	CropName   string          `json:"cropName" validate:"required,max=200"`
	PricePerKg decimal.Decimal `json:"pricePerKg"`
	CapacityKg decimal.Decimal `json:"capacityKg"`
	ImageURL   *string         `json:"imageUrl,omitempty" validate:"omitempty,url,max=2048"`
}

func CreateInventoryItem(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		actorID, role, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createInventoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateInventoryItem(r.Context(), catalog.CreateInventoryInput{
			ActorID:       actorID,
			ActorRole:     role,
			Name:          validators.SanitizeString(body.Name, 200),
			Category:      validators.SanitizeString(body.Category, 80),
			Price:         body.Price,
			StockQuantity: body.StockQuantity,
			ImageURL:      validators.SanitizeOptional(body.ImageURL, 2048),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, item)
	}
}

func SetInventoryStock(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		actorID, role, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.SetInventoryStock(r.Context(), catalog.SetStockInput{
			ItemID:        itemID,
			StockQuantity: *body.StockQuantity,
			ActorID:       actorID,
			ActorRole:     role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func GetInventoryItem(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.GetInventoryItem(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func CreateListing(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		actorID, role, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.CreateListing(r.Context(), catalog.CreateListingInput{
			ActorID:    actorID,
			ActorRole:  role,
			CropName:   validators.SanitizeString(body.CropName, 200),
			PricePerKg: body.PricePerKg,
			CapacityKg: body.CapacityKg,
			ImageURL:   validators.SanitizeOptional(body.ImageURL, 2048),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, listing)
	}
}

func GetListing(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		listingID, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.GetListing(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
