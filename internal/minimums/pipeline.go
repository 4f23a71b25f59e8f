package minimums

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
)

// SaleSnapshot is the read-only view of a sale checked before quoting.
type SaleSnapshot struct {
	ID    uuid.UUID
	Name  string
	Total decimal.Decimal
	Lines []LineSnapshot
}

// LineSnapshot is one line of a SaleSnapshot. Product carries its sale unit.
type LineSnapshot struct {
	ID       uuid.UUID
	Name     string
	Type     enums.SaleLineType
	Product  *models.Product
	Unit     *models.Unit
	Quantity decimal.NullDecimal
}

// SnapshotOf captures sale and its loaded lines.
func SnapshotOf(sale *models.Sale) *SaleSnapshot {
	if sale == nil {
		return nil
	}
	snap := &SaleSnapshot{
		ID:    sale.ID,
		Name:  sale.DisplayName(),
		Total: sale.TotalAmount(),
		Lines: make([]LineSnapshot, 0, len(sale.Lines)),
	}
	for i := range sale.Lines {
		line := &sale.Lines[i]
		snap.Lines = append(snap.Lines, LineSnapshot{
			ID:       line.ID,
			Name:     line.DisplayName(),
			Type:     line.Type,
			Product:  line.Product,
			Unit:     line.Unit,
			Quantity: line.Quantity,
		})
	}
	return snap
}

// Validator is one independent check run before a sale is quoted.
type Validator interface {
	Name() string
	Validate(ctx context.Context, sale *SaleSnapshot) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc struct {
	ID string
	Fn func(ctx context.Context, sale *SaleSnapshot) error
}

func (f ValidatorFunc) Name() string { return f.ID }

func (f ValidatorFunc) Validate(ctx context.Context, sale *SaleSnapshot) error {
	return f.Fn(ctx, sale)
}

// Pipeline runs validators in registration order and stops at the first
// failure.
type Pipeline struct {
	validators []Validator
}

// NewPipeline builds a pipeline with the given validators.
func NewPipeline(validators ...Validator) *Pipeline {
	p := &Pipeline{}
	for _, v := range validators {
		p.Register(v)
	}
	return p
}

// Register appends v to the run order.
func (p *Pipeline) Register(v Validator) {
	if v == nil {
		return
	}
	p.validators = append(p.validators, v)
}

// Names lists the registered validators in run order.
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.validators))
	for _, v := range p.validators {
		names = append(names, v.Name())
	}
	return names
}

// Validate runs every validator against sale.
func (p *Pipeline) Validate(ctx context.Context, sale *SaleSnapshot) error {
	if sale == nil {
		return fmt.Errorf("sale snapshot required")
	}
	for _, v := range p.validators {
		if err := v.Validate(ctx, sale); err != nil {
			return err
		}
	}
	return nil
}
