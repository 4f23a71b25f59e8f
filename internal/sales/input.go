package sales

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/saleminimum-backend/pkg/errors"
	"github.com/angelmondragon/saleminimum-backend/pkg/outbox"
	"github.com/angelmondragon/saleminimum-backend/pkg/pagination"
)

// CreateSaleInput captures the header of a new draft sale.
type CreateSaleInput struct {
	Number         *string
	Reference      *string
	PartyID        *uuid.UUID
	CurrencyDigits *int32
}

// ListParams filters and pages the sale list.
type ListParams struct {
	pagination.Params
	State *enums.SaleState
}

// ListResult is one page of sales. Cursor is empty on the last page.
type ListResult struct {
	Items  []models.Sale
	Cursor string
}

// LineInput carries the fields of a line edit. Nil fields are left as they
// are. ClearQuantity empties the quantity.
type LineInput struct {
	Type          *enums.SaleLineType
	ProductID     *uuid.UUID
	Quantity      *decimal.Decimal
	ClearQuantity bool
	UnitID        *uuid.UUID
	UnitPrice     *decimal.Decimal
	Description   *string
	Actor         *outbox.ActorRef
}

func (in LineInput) validate() error {
	if in.Type != nil && !in.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid line type")
	}
	if in.Quantity != nil && in.Quantity.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}
	if in.Quantity != nil && in.ClearQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be set and cleared at once")
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must be non-negative")
	}
	if in.ProductID != nil && *in.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is invalid")
	}
	if in.UnitID != nil && *in.UnitID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit id is invalid")
	}
	return nil
}

// catalogRefs are the catalog records referenced by a LineInput.
type catalogRefs struct {
	product *models.Product
	unit    *models.Unit
}

// apply writes in onto line and reports which field drives the minimum
// recompute. A new product brings its sale unit and list price unless the
// input sets them.
func (in LineInput) apply(line *models.SaleLine, refs catalogRefs, priceDigits int32) (enums.LineTrigger, error) {
	productChanged := refs.product != nil && (line.ProductID == nil || *line.ProductID != refs.product.ID)
	unitChanged := refs.unit != nil && (line.UnitID == nil || *line.UnitID != refs.unit.ID)

	if (refs.product != nil || in.Quantity != nil || refs.unit != nil) && !line.Type.IsProductLine() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "only product lines take a product, quantity or unit")
	}

	if productChanged {
		id := refs.product.ID
		line.ProductID = &id
		line.Product = refs.product
		if refs.unit == nil && refs.product.SaleUnit != nil {
			unitID := refs.product.SaleUnitID
			line.UnitID = &unitID
			line.Unit = refs.product.SaleUnit
			unitChanged = true
		}
		if in.UnitPrice == nil {
			line.UnitPrice = refs.product.ListPrice.Round(priceDigits)
		}
	}
	if refs.unit != nil {
		id := refs.unit.ID
		line.UnitID = &id
		line.Unit = refs.unit
	}
	if line.Product != nil && line.Unit != nil && line.Product.SaleUnit != nil && !line.Product.SaleUnit.SameCategory(line.Unit) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unit must belong to the category of the product sale unit").
			WithDetails(map[string]any{"unit_id": line.Unit.ID, "product_id": line.Product.ID})
	}

	switch {
	case in.Quantity != nil:
		line.Quantity = decimal.NewNullDecimal(*in.Quantity)
	case in.ClearQuantity:
		line.Quantity = decimal.NullDecimal{}
	}
	if in.UnitPrice != nil {
		line.UnitPrice = in.UnitPrice.Round(priceDigits)
	}
	if in.Description != nil {
		line.Description = *in.Description
	}

	switch {
	case productChanged:
		return enums.LineTriggerProduct, nil
	case unitChanged:
		return enums.LineTriggerUnit, nil
	default:
		return enums.LineTriggerQuantity, nil
	}
}
