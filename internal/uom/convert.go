// Package uom converts quantities between units of the same category.
package uom

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
)

// divisionPrecision bounds intermediate precision before unit rounding.
const divisionPrecision = 16

var (
	// ErrIncompatibleUnits is returned when the units belong to different categories.
	ErrIncompatibleUnits = errors.New("units belong to different categories")
	// ErrInvalidUnit is returned for a missing unit or a non-positive factor.
	ErrInvalidUnit = errors.New("unit is missing or has a non-positive factor")
)

// Convert expresses qty, given in from, in to. The result is rounded to the
// target unit's rounding step and digits.
func Convert(qty decimal.Decimal, from, to *models.Unit) (decimal.Decimal, error) {
	if from == nil || to == nil {
		return decimal.Zero, ErrInvalidUnit
	}
	if !from.SameCategory(to) {
		return decimal.Zero, ErrIncompatibleUnits
	}
	if from.ID == to.ID {
		return Round(qty, to), nil
	}
	if !from.Factor.IsPositive() || !to.Factor.IsPositive() {
		return decimal.Zero, ErrInvalidUnit
	}
	reference := qty.Mul(from.Factor)
	return Round(reference.DivRound(to.Factor, divisionPrecision), to), nil
}

// Round snaps qty to the unit's rounding step, then to its display digits.
// Halves round away from zero.
func Round(qty decimal.Decimal, unit *models.Unit) decimal.Decimal {
	if unit == nil {
		return qty
	}
	if unit.Rounding.IsPositive() {
		steps := qty.DivRound(unit.Rounding, divisionPrecision).Round(0)
		qty = steps.Mul(unit.Rounding)
	}
	if unit.Digits >= 0 {
		qty = qty.Round(unit.Digits)
	}
	return qty
}
