package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UOMCategory groups units that convert into each other.
type UOMCategory struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (UOMCategory) TableName() string { return "uom_categories" }

func (c *UOMCategory) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Unit is a unit of measure. Factor is the number of category reference
// units one of this unit equals; Rounding is the smallest representable step.
type Unit struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID uuid.UUID       `gorm:"column:category_id;type:uuid;not null;index"`
	Category   *UOMCategory    `gorm:"foreignKey:CategoryID"`
	Name       string          `gorm:"column:name;not null"`
	Symbol     string          `gorm:"column:symbol;not null"`
	Factor     decimal.Decimal `gorm:"column:factor;type:numeric(24,12);not null"`
	Rounding   decimal.Decimal `gorm:"column:rounding;type:numeric(24,12);not null"`
	Digits     int32           `gorm:"column:digits;not null;default:2"`
	Active     bool            `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *Unit) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// SameCategory reports whether both units convert into each other.
func (u *Unit) SameCategory(other *Unit) bool {
	if u == nil || other == nil {
		return false
	}
	return u.CategoryID == other.CategoryID
}
