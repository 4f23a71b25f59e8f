package enums

import "fmt"

// SaleState is the lifecycle stage of a sale.
type SaleState string

const (
	SaleStateDraft     SaleState = "draft"
	SaleStateQuotation SaleState = "quotation"
	SaleStateConfirmed SaleState = "confirmed"
	SaleStateCancelled SaleState = "cancelled"
)

var validSaleStates = []SaleState{
	SaleStateDraft,
	SaleStateQuotation,
	SaleStateConfirmed,
	SaleStateCancelled,
}

// String implements fmt.Stringer.
func (s SaleState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known sale state.
func (s SaleState) IsValid() bool {
	for _, candidate := range validSaleStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the sale may move from s to next.
// Transitions are one-directional; cancelled is terminal.
func (s SaleState) CanTransitionTo(next SaleState) bool {
	switch s {
	case SaleStateDraft:
		return next == SaleStateQuotation || next == SaleStateCancelled
	case SaleStateQuotation:
		return next == SaleStateConfirmed || next == SaleStateCancelled
	case SaleStateConfirmed:
		return next == SaleStateCancelled
	}
	return false
}

// ParseSaleState converts raw input into a SaleState.
func ParseSaleState(value string) (SaleState, error) {
	for _, candidate := range validSaleStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale state %q", value)
}

// SaleLineType distinguishes product lines from layout lines.
type SaleLineType string

const (
	SaleLineTypeLine     SaleLineType = "line"
	SaleLineTypeSubtotal SaleLineType = "subtotal"
	SaleLineTypeTitle    SaleLineType = "title"
	SaleLineTypeComment  SaleLineType = "comment"
)

var validSaleLineTypes = []SaleLineType{
	SaleLineTypeLine,
	SaleLineTypeSubtotal,
	SaleLineTypeTitle,
	SaleLineTypeComment,
}

// String implements fmt.Stringer.
func (t SaleLineType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known line type.
func (t SaleLineType) IsValid() bool {
	for _, candidate := range validSaleLineTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsProductLine reports whether the line sells a product.
func (t SaleLineType) IsProductLine() bool {
	return t == SaleLineTypeLine
}

// ParseSaleLineType converts raw input into a SaleLineType.
func ParseSaleLineType(value string) (SaleLineType, error) {
	for _, candidate := range validSaleLineTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale line type %q", value)
}

// QuantityPolicy selects how the interactive path reacts to a quantity below
// the resolved minimum.
type QuantityPolicy string

const (
	QuantityPolicyClamp    QuantityPolicy = "clamp"
	QuantityPolicyAdvisory QuantityPolicy = "advisory"
)

var validQuantityPolicies = []QuantityPolicy{
	QuantityPolicyClamp,
	QuantityPolicyAdvisory,
}

func (p QuantityPolicy) String() string {
	return string(p)
}

func (p QuantityPolicy) IsValid() bool {
	for _, candidate := range validQuantityPolicies {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseQuantityPolicy converts raw input into a QuantityPolicy.
func ParseQuantityPolicy(value string) (QuantityPolicy, error) {
	for _, candidate := range validQuantityPolicies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quantity policy %q", value)
}

// LineTrigger names the line field whose edit started a recompute.
type LineTrigger string

const (
	LineTriggerProduct  LineTrigger = "product"
	LineTriggerQuantity LineTrigger = "quantity"
	LineTriggerUnit     LineTrigger = "unit"
)

var validLineTriggers = []LineTrigger{
	LineTriggerProduct,
	LineTriggerQuantity,
	LineTriggerUnit,
}

func (t LineTrigger) IsValid() bool {
	for _, candidate := range validLineTriggers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLineTrigger converts raw input into a LineTrigger.
func ParseLineTrigger(value string) (LineTrigger, error) {
	for _, candidate := range validLineTriggers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid line trigger %q", value)
}
