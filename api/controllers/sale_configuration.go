package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/saleminimum-backend/api/middleware"
	"github.com/angelmondragon/saleminimum-backend/api/responses"
	"github.com/angelmondragon/saleminimum-backend/api/validators"
	"github.com/angelmondragon/saleminimum-backend/internal/saleconfig"
	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/saleminimum-backend/pkg/errors"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
)

func SaleConfigurationGet(svc saleconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sale configuration service unavailable"))
			return
		}

		cfg, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSaleConfigurationResponse(cfg))
	}
}

// SaleConfigurationUpdate sets the company wide minimum amount.
func SaleConfigurationUpdate(svc saleconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sale configuration service unavailable"))
			return
		}

		userID, role, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload updateSaleConfigurationRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cfg, err := svc.Update(r.Context(), saleconfig.UpdateInput{
			MinimumAmount: *payload.MinimumAmount,
			ActorUserID:   userID,
			ActorRole:     role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSaleConfigurationResponse(cfg))
	}
}

type updateSaleConfigurationRequest struct {
	MinimumAmount *decimal.Decimal `json:"minimum_amount" validate:"required,gte=0"`
}

type saleConfigurationResponse struct {
	MinimumAmount string     `json:"minimum_amount"`
	UpdatedBy     *uuid.UUID `json:"updated_by,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newSaleConfigurationResponse(cfg *models.SaleConfiguration) saleConfigurationResponse {
	return saleConfigurationResponse{
		MinimumAmount: cfg.MinimumAmount.String(),
		UpdatedBy:     cfg.UpdatedBy,
		UpdatedAt:     cfg.UpdatedAt,
	}
}
