package minimums

import (
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
)

type units struct {
	unit, dozen, kg, gram *models.Unit
}

func newUnits() units {
	count := uuid.New()
	weight := uuid.New()
	return units{
		unit:  &models.Unit{ID: uuid.New(), CategoryID: count, Name: "Unit", Factor: dec("1"), Rounding: dec("1"), Digits: 0},
		dozen: &models.Unit{ID: uuid.New(), CategoryID: count, Name: "Dozen", Factor: dec("12"), Rounding: dec("0.01"), Digits: 2},
		kg:    &models.Unit{ID: uuid.New(), CategoryID: weight, Name: "Kilogram", Factor: dec("1"), Rounding: dec("0.001"), Digits: 3},
		gram:  &models.Unit{ID: uuid.New(), CategoryID: weight, Name: "Gram", Factor: dec("0.001"), Rounding: dec("1"), Digits: 0},
	}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func nullDec(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(v))
}

func product(name string, saleUnit *models.Unit, minimum string) *models.Product {
	p := &models.Product{
		ID:         uuid.New(),
		Name:       name,
		SaleUnitID: saleUnit.ID,
		SaleUnit:   saleUnit,
		Salable:    true,
		Active:     true,
		ListPrice:  dec("10"),
	}
	if minimum != "" {
		p.MinimumQuantity = nullDec(minimum)
	}
	return p
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}
