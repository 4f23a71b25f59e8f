package minimums

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
	"github.com/angelmondragon/saleminimum-backend/pkg/i18n"
	"github.com/angelmondragon/saleminimum-backend/pkg/metrics"
)

// LineChange is an edit of a draft line. Line holds the values after the
// edit; Product must carry its sale unit.
type LineChange struct {
	Trigger  enums.LineTrigger
	Line     *models.SaleLine
	Product  *models.Product
	Unit     *models.Unit
	HasParty bool
	Options  ResolveOptions
}

// LineUpdate holds the line fields recomputed for a LineChange.
type LineUpdate struct {
	Quantity        decimal.NullDecimal
	QuantityChanged bool
	MinimumQuantity decimal.NullDecimal
	Warnings        []Warning
}

// Enforcer applies the minimum quantity to lines while they are edited.
// Nothing on this path fails: quantities are corrected or a warning is
// raised.
type Enforcer struct {
	resolver *Resolver
	policy   enums.QuantityPolicy
	notifier Notifier
	tr       *i18n.Translator
	metrics  *metrics.MinimumMetrics
}

// NewEnforcer builds an Enforcer. An unknown policy falls back to clamp. tr
// renders warning messages.
func NewEnforcer(resolver *Resolver, policy enums.QuantityPolicy, notifier Notifier, tr *i18n.Translator, m *metrics.MinimumMetrics) *Enforcer {
	if resolver == nil {
		resolver = NewResolver(nil, m)
	}
	if !policy.IsValid() {
		policy = enums.QuantityPolicyClamp
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Enforcer{resolver: resolver, policy: policy, notifier: notifier, tr: translatorOrDefault(tr), metrics: m}
}

// Policy returns the active quantity policy.
func (e *Enforcer) Policy() enums.QuantityPolicy {
	return e.policy
}

// OnLineChanged recomputes the minimum of the edited line and, depending on
// the policy, raises its quantity or warns about it.
func (e *Enforcer) OnLineChanged(ctx context.Context, change LineChange) LineUpdate {
	var quantity decimal.NullDecimal
	if change.Line != nil {
		quantity = change.Line.Quantity
	}
	update := LineUpdate{Quantity: quantity}

	minimum := e.minimumFor(ctx, change)
	if !minimum.Valid {
		return update
	}

	if e.policy == enums.QuantityPolicyAdvisory {
		update.MinimumQuantity = minimum
		if quantity.Valid && quantity.Decimal.LessThan(minimum.Decimal) {
			w := Warning{
				Code:        WarningMinimumQuantity,
				ProductName: productName(change),
				Quantity:    quantity.Decimal,
				Minimum:     minimum.Decimal,
			}.localize(ctx, e.tr)
			e.notifier.Notify(ctx, w)
			e.metrics.IncWarning()
			update.Warnings = append(update.Warnings, w)
		}
		return update
	}

	entered := quantity.Valid && !quantity.Decimal.IsZero()
	if change.Trigger == enums.LineTriggerQuantity && !entered {
		return update
	}
	if entered && !quantity.Decimal.LessThan(minimum.Decimal) {
		return update
	}
	update.Quantity = minimum
	update.QuantityChanged = true
	update.MinimumQuantity = minimum
	e.metrics.IncClamp(string(change.Trigger))
	return update
}

// minimumFor resolves the minimum to surface for change. Layout lines and
// lines of a sale without a customer carry none.
func (e *Enforcer) minimumFor(ctx context.Context, change LineChange) decimal.NullDecimal {
	if change.Line == nil || !change.Line.Type.IsProductLine() || !change.HasParty {
		return decimal.NullDecimal{}
	}
	return e.resolver.Resolve(ctx, change.Product, change.Unit, change.Options)
}

func productName(change LineChange) string {
	if change.Product != nil && change.Product.Name != "" {
		return change.Product.Name
	}
	return change.Line.DisplayName()
}
