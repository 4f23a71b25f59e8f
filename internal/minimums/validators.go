package minimums

import (
	"context"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/saleminimum-backend/pkg/errors"
	"github.com/angelmondragon/saleminimum-backend/pkg/i18n"
	"github.com/angelmondragon/saleminimum-backend/pkg/metrics"
)

const (
	LineMinimumQuantityValidatorName = "line_minimum_quantity"
	MinimumAmountValidatorName       = "minimum_amount"
)

// AmountSource supplies the configured minimum sale amount.
type AmountSource interface {
	MinimumAmount(ctx context.Context) (decimal.Decimal, error)
}

// LineMinimumQuantityValidator rejects a sale with a product line below its
// minimum. The minimum is always resolved again, stored values are ignored.
type LineMinimumQuantityValidator struct {
	resolver *Resolver
	tr       *i18n.Translator
	metrics  *metrics.MinimumMetrics
}

func NewLineMinimumQuantityValidator(resolver *Resolver, tr *i18n.Translator, m *metrics.MinimumMetrics) *LineMinimumQuantityValidator {
	if resolver == nil {
		resolver = NewResolver(nil, m)
	}
	return &LineMinimumQuantityValidator{resolver: resolver, tr: translatorOrDefault(tr), metrics: m}
}

func (v *LineMinimumQuantityValidator) Name() string {
	return LineMinimumQuantityValidatorName
}

func (v *LineMinimumQuantityValidator) Validate(ctx context.Context, sale *SaleSnapshot) error {
	for _, line := range sale.Lines {
		if !line.Type.IsProductLine() {
			continue
		}
		minimum := v.resolver.Resolve(ctx, line.Product, line.Unit, ResolveOptions{})
		if !minimum.Valid {
			continue
		}
		quantity := decimal.Zero
		if line.Quantity.Valid {
			quantity = line.Quantity.Decimal
		}
		if quantity.LessThan(minimum.Decimal) {
			v.metrics.IncViolation(metrics.ViolationQuantity)
			return newMinimumQuantityError(ctx, v.tr, MinimumQuantityViolation{
				SaleID:   sale.ID,
				LineID:   line.ID,
				LineName: line.Name,
				Quantity: quantity,
				Minimum:  minimum.Decimal,
			})
		}
	}
	return nil
}

// MinimumAmountValidator rejects a sale whose total is below the configured
// minimum amount. A zero minimum disables it.
type MinimumAmountValidator struct {
	source  AmountSource
	tr      *i18n.Translator
	metrics *metrics.MinimumMetrics
}

func NewMinimumAmountValidator(source AmountSource, tr *i18n.Translator, m *metrics.MinimumMetrics) *MinimumAmountValidator {
	return &MinimumAmountValidator{source: source, tr: translatorOrDefault(tr), metrics: m}
}

func (v *MinimumAmountValidator) Name() string {
	return MinimumAmountValidatorName
}

func (v *MinimumAmountValidator) Validate(ctx context.Context, sale *SaleSnapshot) error {
	if v.source == nil {
		return nil
	}
	minimum, err := v.source.MinimumAmount(ctx)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read minimum amount")
	}
	if !minimum.IsPositive() || !sale.Total.LessThan(minimum) {
		return nil
	}
	v.metrics.IncViolation(metrics.ViolationAmount)
	return newMinimumAmountError(ctx, v.tr, MinimumAmountViolation{
		SaleID:    sale.ID,
		Total:     sale.Total,
		OrderName: sale.Name,
		Minimum:   minimum,
	})
}

// DefaultPipeline checks line quantities first, then the sale amount.
func DefaultPipeline(resolver *Resolver, source AmountSource, tr *i18n.Translator, m *metrics.MinimumMetrics) *Pipeline {
	tr = translatorOrDefault(tr)
	return NewPipeline(
		NewLineMinimumQuantityValidator(resolver, tr, m),
		NewMinimumAmountValidator(source, tr, m),
	)
}
