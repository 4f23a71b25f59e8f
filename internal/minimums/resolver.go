// Package minimums derives per-line minimum quantities and enforces the
// minimum quantity and minimum amount rules on sales.
package minimums

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/saleminimum-backend/internal/uom"
	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
	"github.com/angelmondragon/saleminimum-backend/pkg/metrics"
)

// ResolveOptions tunes a single resolution.
type ResolveOptions struct {
	// Skip forces a null result. Set while duplicating sales so copies start
	// without a stale constraint.
	Skip bool
}

// Resolver computes the minimum quantity of a product expressed in a target
// unit. It never fails: anything it cannot resolve means no constraint.
type Resolver struct {
	logg    *logger.Logger
	metrics *metrics.MinimumMetrics
}

// NewResolver builds a Resolver. Both collaborators are optional.
func NewResolver(logg *logger.Logger, m *metrics.MinimumMetrics) *Resolver {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{logg: logg, metrics: m}
}

// Resolve returns the product minimum converted to target. A nil target
// yields the minimum in the product's sale unit.
func (r *Resolver) Resolve(ctx context.Context, product *models.Product, target *models.Unit, opts ResolveOptions) decimal.NullDecimal {
	if opts.Skip || product == nil {
		return decimal.NullDecimal{}
	}
	if !product.MinimumQuantity.Valid || !product.MinimumQuantity.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	minimum := product.MinimumQuantity.Decimal
	if target == nil {
		return decimal.NewNullDecimal(minimum)
	}

	saleUnit := product.SaleUnit
	if saleUnit == nil {
		if target.ID == product.SaleUnitID {
			return decimal.NewNullDecimal(uom.Round(minimum, target))
		}
		r.logg.Warn(r.fields(ctx, product, target), "product sale unit not loaded, minimum ignored")
		return decimal.NullDecimal{}
	}

	converted, err := uom.Convert(minimum, saleUnit, target)
	if err != nil {
		if errors.Is(err, uom.ErrIncompatibleUnits) {
			r.metrics.IncIncompatibleUnit()
		}
		logCtx := r.logg.WithField(r.fields(ctx, product, target), "error", err.Error())
		r.logg.Warn(logCtx, "minimum quantity not convertible to line unit")
		return decimal.NullDecimal{}
	}
	if !converted.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(converted)
}

func (r *Resolver) fields(ctx context.Context, product *models.Product, target *models.Unit) context.Context {
	return r.logg.WithFields(ctx, map[string]any{
		"product_id":     product.ID.String(),
		"sale_unit_id":   product.SaleUnitID.String(),
		"target_unit_id": target.ID.String(),
	})
}
