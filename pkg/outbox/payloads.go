package outbox

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleQuotedEvent is emitted when a draft sale passes the minimum checks.
type SaleQuotedEvent struct {
	SaleID      uuid.UUID       `json:"sale_id"`
	Number      string          `json:"number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LineCount   int             `json:"line_count"`
}

// SaleConfirmedEvent is emitted when a quotation is confirmed.
type SaleConfirmedEvent struct {
	SaleID      uuid.UUID       `json:"sale_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// SaleCopiedEvent links a duplicated sale to its source.
type SaleCopiedEvent struct {
	SaleID   uuid.UUID `json:"sale_id"`
	SourceID uuid.UUID `json:"source_id"`
}

// LineMinimumClampedEvent records a quantity raised to the resolved minimum.
type LineMinimumClampedEvent struct {
	SaleID          uuid.UUID       `json:"sale_id"`
	LineID          uuid.UUID       `json:"line_id"`
	Trigger         string          `json:"trigger"`
	PreviousQty     *string         `json:"previous_quantity,omitempty"`
	MinimumQuantity decimal.Decimal `json:"minimum_quantity"`
}

// SaleConfigurationUpdatedEvent records a change of the minimum amount.
type SaleConfigurationUpdatedEvent struct {
	PreviousMinimumAmount decimal.Decimal `json:"previous_minimum_amount"`
	MinimumAmount         decimal.Decimal `json:"minimum_amount"`
}
