package minimums

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/saleminimum-backend/pkg/errors"
	"github.com/angelmondragon/saleminimum-backend/pkg/i18n"
)

// MinimumQuantityViolation describes a line whose quantity is below the
// resolved minimum.
type MinimumQuantityViolation struct {
	SaleID   uuid.UUID       `json:"sale_id"`
	LineID   uuid.UUID       `json:"line_id"`
	LineName string          `json:"line_name"`
	Quantity decimal.Decimal `json:"quantity"`
	Minimum  decimal.Decimal `json:"minimum"`
}

// MinimumAmountViolation describes a sale whose total is below the configured
// minimum amount.
type MinimumAmountViolation struct {
	SaleID    uuid.UUID       `json:"sale_id"`
	Total     decimal.Decimal `json:"total"`
	OrderName string          `json:"order_name"`
	Minimum   decimal.Decimal `json:"minimum"`
}

func newMinimumQuantityError(ctx context.Context, tr *i18n.Translator, v MinimumQuantityViolation) error {
	msg := tr.Translate(ctx, i18n.KeyMinimumQuantity, v.LineName, v.Quantity.String(), v.Minimum.String())
	return pkgerrors.New(pkgerrors.CodeMinimumQuantity, msg).WithDetails(v)
}

func newMinimumAmountError(ctx context.Context, tr *i18n.Translator, v MinimumAmountViolation) error {
	msg := tr.Translate(ctx, i18n.KeyMinimumAmount, v.Total.String(), v.OrderName, v.Minimum.String())
	return pkgerrors.New(pkgerrors.CodeMinimumAmount, msg).WithDetails(v)
}

func translatorOrDefault(tr *i18n.Translator) *i18n.Translator {
	if tr == nil {
		return i18n.Default()
	}
	return tr
}

// AsMinimumQuantityViolation extracts the line violation carried by err.
func AsMinimumQuantityViolation(err error) (MinimumQuantityViolation, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeMinimumQuantity {
		return MinimumQuantityViolation{}, false
	}
	v, ok := typed.Details().(MinimumQuantityViolation)
	return v, ok
}

// AsMinimumAmountViolation extracts the amount violation carried by err.
func AsMinimumAmountViolation(err error) (MinimumAmountViolation, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeMinimumAmount {
		return MinimumAmountViolation{}, false
	}
	v, ok := typed.Details().(MinimumAmountViolation)
	return v, ok
}
