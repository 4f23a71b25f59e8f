package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/saleminimum-backend/api/responses"
	"github.com/angelmondragon/saleminimum-backend/api/validators"
	salessvc "github.com/angelmondragon/saleminimum-backend/internal/sales"
	pkgerrors "github.com/angelmondragon/saleminimum-backend/pkg/errors"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
	"github.com/angelmondragon/saleminimum-backend/pkg/types"
)

// SalesQuote moves a batch of drafts to quotation. Each sale is validated on
// its own; the response is 200 when all were quoted and 207 otherwise.
func SalesQuote(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report := svc.Quote(r.Context(), payload.SaleIDs, actorFromRequest(r))
		body := newQuoteResponse(report)
		if err := report.Err(); err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "failed", len(report.Results)-body.Quoted), "sales.quote.partial")
			}
			responses.WriteMultiStatus(w, body)
			return
		}
		responses.WriteSuccess(w, body)
	}
}

type quoteRequest struct {
	SaleIDs []uuid.UUID `json:"sale_ids" validate:"required,min=1,max=100"`
}

type quoteResultResponse struct {
	SaleID uuid.UUID       `json:"sale_id"`
	Status string          `json:"status"`
	Error  *types.APIError `json:"error,omitempty"`
}

type quoteResponse struct {
	Quoted  int                   `json:"quoted"`
	Results []quoteResultResponse `json:"results"`
}

func newQuoteResponse(report salessvc.QuoteReport) quoteResponse {
	out := quoteResponse{Results: make([]quoteResultResponse, 0, len(report.Results))}
	for _, res := range report.Results {
		item := quoteResultResponse{SaleID: res.SaleID, Status: string(res.Status)}
		if res.Err != nil {
			typed := pkgerrors.As(res.Err)
			if typed == nil {
				typed = pkgerrors.Wrap(pkgerrors.CodeInternal, res.Err, "unexpected error")
			}
			apiErr := responses.PublicError(typed)
			item.Error = &apiErr
		}
		if res.Status == salessvc.QuoteStatusQuoted {
			out.Quoted++
		}
		out.Results = append(out.Results, item)
	}
	return out
}
