package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the catalog view the sale lines reference. MinimumQuantity is
// expressed in SaleUnit; null or zero means no minimum.
type Product struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Code            *string             `gorm:"column:code"`
	Name            string              `gorm:"column:name;not null"`
	SaleUnitID      uuid.UUID           `gorm:"column:sale_unit_id;type:uuid;not null"`
	SaleUnit        *Unit               `gorm:"foreignKey:SaleUnitID"`
	Salable         bool                `gorm:"column:salable;not null;default:true"`
	Active          bool                `gorm:"column:active;not null;default:true"`
	ListPrice       decimal.Decimal     `gorm:"column:list_price;type:numeric(16,4);not null"`
	MinimumQuantity decimal.NullDecimal `gorm:"column:minimum_quantity;type:numeric(24,12)"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
