package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
)

// Sale owns an ordered list of lines and gates its state transitions.
type Sale struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Number         *string         `gorm:"column:number;uniqueIndex:ux_sales_number"`
	Reference      *string         `gorm:"column:reference"`
	PartyID        *uuid.UUID      `gorm:"column:party_id;type:uuid"`
	State          enums.SaleState `gorm:"column:state;not null;default:draft"`
	CurrencyDigits int32           `gorm:"column:currency_digits;not null;default:2"`
	CopiedFromID   *uuid.UUID      `gorm:"column:copied_from_id;type:uuid"`
	Lines          []SaleLine      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	QuotedAt       *time.Time      `gorm:"column:quoted_at"`
	ConfirmedAt    *time.Time      `gorm:"column:confirmed_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TotalAmount sums the product lines, rounded to the currency precision.
func (s *Sale) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	if s == nil {
		return total
	}
	for i := range s.Lines {
		total = total.Add(s.Lines[i].Amount())
	}
	return total.Round(s.CurrencyDigits)
}

// DisplayName is the label used in user-facing messages.
func (s *Sale) DisplayName() string {
	if s == nil {
		return ""
	}
	if s.Number != nil && strings.TrimSpace(*s.Number) != "" {
		return *s.Number
	}
	if s.Reference != nil && strings.TrimSpace(*s.Reference) != "" {
		return *s.Reference
	}
	return s.ID.String()
}

// HasParty reports whether a customer is set on the sale.
func (s *Sale) HasParty() bool {
	return s != nil && s.PartyID != nil && *s.PartyID != uuid.Nil
}

// SaleLine is one entry of a sale. MinimumQuantity is system managed and, when
// set, expressed in the line's current unit.
type SaleLine struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SaleID          uuid.UUID           `gorm:"column:sale_id;type:uuid;not null;index"`
	Sequence        int                 `gorm:"column:sequence;not null;default:0"`
	Type            enums.SaleLineType  `gorm:"column:type;not null;default:line"`
	ProductID       *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	Product         *Product            `gorm:"foreignKey:ProductID"`
	Quantity        decimal.NullDecimal `gorm:"column:quantity;type:numeric(24,12)"`
	UnitID          *uuid.UUID          `gorm:"column:unit_id;type:uuid"`
	Unit            *Unit               `gorm:"foreignKey:UnitID"`
	UnitPrice       decimal.Decimal     `gorm:"column:unit_price;type:numeric(16,4);not null;default:0"`
	Description     string              `gorm:"column:description;not null;default:''"`
	MinimumQuantity decimal.NullDecimal `gorm:"column:minimum_quantity;type:numeric(24,12)"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *SaleLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Amount is quantity times unit price for product lines and zero otherwise.
func (l *SaleLine) Amount() decimal.Decimal {
	if l == nil || !l.Type.IsProductLine() || !l.Quantity.Valid {
		return decimal.Zero
	}
	return l.Quantity.Decimal.Mul(l.UnitPrice)
}

// DisplayName is the label used in user-facing messages.
func (l *SaleLine) DisplayName() string {
	if l == nil {
		return ""
	}
	if d := strings.TrimSpace(l.Description); d != "" {
		return d
	}
	if l.Product != nil && l.Product.Name != "" {
		return l.Product.Name
	}
	return fmt.Sprintf("line %d", l.Sequence)
}
