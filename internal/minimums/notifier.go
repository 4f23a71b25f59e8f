package minimums

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/saleminimum-backend/pkg/i18n"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
)

// WarningMinimumQuantity flags a line below its minimum under the advisory
// policy.
const WarningMinimumQuantity = "minimum_quantity"

// Warning is a non-blocking notice raised while editing a line.
type Warning struct {
	Code        string          `json:"code"`
	Message     string          `json:"message"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Minimum     decimal.Decimal `json:"minimum"`
}

// Notifier delivers warnings to the user editing the sale.
type Notifier interface {
	Notify(ctx context.Context, w Warning)
}

// NopNotifier drops warnings.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Warning) {}

// LogNotifier logs warnings. The HTTP layer returns them from the LineUpdate.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Notify(ctx context.Context, w Warning) {
	logCtx := n.logg.WithFields(ctx, map[string]any{
		"warning":      w.Code,
		"product_name": w.ProductName,
		"quantity":     w.Quantity.String(),
		"minimum":      w.Minimum.String(),
	})
	n.logg.Info(logCtx, "line below minimum quantity")
}

func (w Warning) localize(ctx context.Context, tr *i18n.Translator) Warning {
	w.Message = tr.Translate(ctx, i18n.KeyMinimumQuantityWarning, w.ProductName, w.Quantity.String(), w.Minimum.String())
	return w
}
