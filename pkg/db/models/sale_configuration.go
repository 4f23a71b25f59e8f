package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleConfigurationID is the primary key of the singleton row.
const SaleConfigurationID = 1

// SaleConfiguration holds company wide sale settings. A zero MinimumAmount
// disables the amount check.
type SaleConfiguration struct {
	ID            int             `gorm:"column:id;primaryKey;autoIncrement:false"`
	MinimumAmount decimal.Decimal `gorm:"column:minimum_amount;type:numeric(16,4);not null;default:0"`
	UpdatedBy     *uuid.UUID      `gorm:"column:updated_by;type:uuid"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
