package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/saleminimum-backend/api/middleware"
	"github.com/angelmondragon/saleminimum-backend/api/responses"
	"github.com/angelmondragon/saleminimum-backend/api/validators"
	"github.com/angelmondragon/saleminimum-backend/internal/minimums"
	salessvc "github.com/angelmondragon/saleminimum-backend/internal/sales"
	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/saleminimum-backend/pkg/errors"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
	"github.com/angelmondragon/saleminimum-backend/pkg/outbox"
	"github.com/angelmondragon/saleminimum-backend/pkg/pagination"
)

// SalesCreate opens a new draft sale.
func SalesCreate(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		var payload createSaleRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.CreateSale(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newSaleResponse(sale))
	}
}

// SalesGet returns a sale with its lines and computed total.
func SalesGet(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := uuidParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.GetSale(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSaleResponse(sale))
	}
}

// SalesList returns sales newest first, optionally filtered by state.
func SalesList(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := salessvc.ListParams{Params: pagination.Params{Limit: limit}}
		if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
			params.Cursor = cursor
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("state")); raw != "" {
			state, err := enums.ParseSaleState(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid state filter"))
				return
			}
			params.State = &state
		}

		result, err := svc.ListSales(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]saleResponse, 0, len(result.Items))
		for i := range result.Items {
			items = append(items, newSaleResponse(&result.Items[i]))
		}
		responses.WriteSuccess(w, saleListResponse{Items: items, Cursor: result.Cursor})
	}
}

// SalesAddLine appends a line to a draft sale.
func SalesAddLine(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := uuidParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload lineRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddLine(r.Context(), saleID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newLineResultResponse(result))
	}
}

// SalesChangeLine edits a line and returns the recomputed quantity and
// minimum together with any warning.
func SalesChangeLine(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := uuidParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := uuidParam(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload lineRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ChangeLine(r.Context(), saleID, lineID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newLineResultResponse(result))
	}
}

// SalesConfirm moves a quoted sale to confirmed.
func SalesConfirm(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := uuidParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Confirm(r.Context(), saleID, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSaleResponse(sale))
	}
}

// SalesCopy duplicates a sale into a new draft.
func SalesCopy(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := uuidParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Copy(r.Context(), saleID, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newSaleResponse(sale))
	}
}

type createSaleRequest struct {
	Number         *string    `json:"number" validate:"omitempty,max=64"`
	Reference      *string    `json:"reference" validate:"omitempty,max=128"`
	PartyID        *uuid.UUID `json:"party_id"`
	CurrencyDigits *int32     `json:"currency_digits" validate:"omitempty,min=0,max=6"`
}

func (r createSaleRequest) toInput() salessvc.CreateSaleInput {
	return salessvc.CreateSaleInput{
		Number:         trimmed(r.Number),
		Reference:      trimmed(r.Reference),
		PartyID:        r.PartyID,
		CurrencyDigits: r.CurrencyDigits,
	}
}

type lineRequest struct {
	Type          *string          `json:"type"`
	ProductID     *uuid.UUID       `json:"product_id"`
	Quantity      *decimal.Decimal `json:"quantity" validate:"omitempty,gte=0"`
	ClearQuantity bool             `json:"clear_quantity"`
	UnitID        *uuid.UUID       `json:"unit_id"`
	UnitPrice     *decimal.Decimal `json:"unit_price" validate:"omitempty,gte=0"`
	Description   *string          `json:"description" validate:"omitempty,max=1024"`
}

func (r lineRequest) toInput(actor *outbox.ActorRef) (salessvc.LineInput, error) {
	input := salessvc.LineInput{
		ProductID:     r.ProductID,
		Quantity:      r.Quantity,
		ClearQuantity: r.ClearQuantity,
		UnitID:        r.UnitID,
		UnitPrice:     r.UnitPrice,
		Description:   r.Description,
		Actor:         actor,
	}
	if r.Type != nil {
		lineType, err := enums.ParseSaleLineType(strings.TrimSpace(*r.Type))
		if err != nil {
			return salessvc.LineInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line type")
		}
		input.Type = &lineType
	}
	return input, nil
}

type saleResponse struct {
	ID             uuid.UUID      `json:"id"`
	Number         *string        `json:"number,omitempty"`
	Reference      *string        `json:"reference,omitempty"`
	PartyID        *uuid.UUID     `json:"party_id,omitempty"`
	State          string         `json:"state"`
	CurrencyDigits int32          `json:"currency_digits"`
	TotalAmount    string         `json:"total_amount"`
	CopiedFromID   *uuid.UUID     `json:"copied_from_id,omitempty"`
	Lines          []lineResponse `json:"lines"`
	QuotedAt       *time.Time     `json:"quoted_at,omitempty"`
	ConfirmedAt    *time.Time     `json:"confirmed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type lineResponse struct {
	ID              uuid.UUID           `json:"id"`
	Sequence        int                 `json:"sequence"`
	Type            string              `json:"type"`
	ProductID       *uuid.UUID          `json:"product_id,omitempty"`
	Quantity        decimal.NullDecimal `json:"quantity"`
	UnitID          *uuid.UUID          `json:"unit_id,omitempty"`
	UnitPrice       string              `json:"unit_price"`
	Description     string              `json:"description,omitempty"`
	MinimumQuantity decimal.NullDecimal `json:"minimum_quantity"`
	Amount          string              `json:"amount"`
}

type lineResultResponse struct {
	Line            lineResponse       `json:"line"`
	QuantityChanged bool               `json:"quantity_changed"`
	Warnings        []minimums.Warning `json:"warnings"`
}

type saleListResponse struct {
	Items  []saleResponse `json:"items"`
	Cursor string         `json:"cursor"`
}

func newSaleResponse(sale *models.Sale) saleResponse {
	lines := make([]lineResponse, 0, len(sale.Lines))
	for i := range sale.Lines {
		lines = append(lines, newLineResponse(&sale.Lines[i]))
	}
	return saleResponse{
		ID:             sale.ID,
		Number:         sale.Number,
		Reference:      sale.Reference,
		PartyID:        sale.PartyID,
		State:          string(sale.State),
		CurrencyDigits: sale.CurrencyDigits,
		TotalAmount:    sale.TotalAmount().StringFixed(sale.CurrencyDigits),
		CopiedFromID:   sale.CopiedFromID,
		Lines:          lines,
		QuotedAt:       sale.QuotedAt,
		ConfirmedAt:    sale.ConfirmedAt,
		CreatedAt:      sale.CreatedAt,
		UpdatedAt:      sale.UpdatedAt,
	}
}

func newLineResponse(line *models.SaleLine) lineResponse {
	return lineResponse{
		ID:              line.ID,
		Sequence:        line.Sequence,
		Type:            string(line.Type),
		ProductID:       line.ProductID,
		Quantity:        line.Quantity,
		UnitID:          line.UnitID,
		UnitPrice:       line.UnitPrice.String(),
		Description:     line.Description,
		MinimumQuantity: line.MinimumQuantity,
		Amount:          line.Amount().String(),
	}
}

func newLineResultResponse(result *salessvc.LineResult) lineResultResponse {
	warnings := result.Warnings
	if warnings == nil {
		warnings = []minimums.Warning{}
	}
	return lineResultResponse{
		Line:            newLineResponse(result.Line),
		QuantityChanged: result.QuantityChanged,
		Warnings:        warnings,
	}
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func actorFromRequest(r *http.Request) *outbox.ActorRef {
	userID, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: string(role)}
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
