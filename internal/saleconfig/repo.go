// Package saleconfig stores the company wide sale settings, currently the
// minimum order amount.
package saleconfig

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
)

// Repository reads and writes the singleton configuration row.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Get returns the configuration row, inserting it with seed when it is
// missing. Concurrent first reads are safe because the insert ignores conflicts.
// Until an admin sets the amount (updated_by is null) the row follows seed.
func (r *Repository) Get(ctx context.Context, seed decimal.Decimal) (*models.SaleConfiguration, error) {
	var cfg models.SaleConfiguration
	err := r.db.WithContext(ctx).First(&cfg, "id = ?", models.SaleConfigurationID).Error
	if err == nil {
		if cfg.UpdatedBy != nil || cfg.MinimumAmount.Equal(seed) {
			return &cfg, nil
		}
		res := r.db.WithContext(ctx).Model(&models.SaleConfiguration{}).
			Where("id = ? AND updated_by IS NULL", models.SaleConfigurationID).
			Update("minimum_amount", seed)
		if res.Error != nil {
			return nil, res.Error
		}
		if err := r.db.WithContext(ctx).First(&cfg, "id = ?", models.SaleConfigurationID).Error; err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row := models.SaleConfiguration{ID: models.SaleConfigurationID, MinimumAmount: seed}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).First(&cfg, "id = ?", models.SaleConfigurationID).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save persists the configuration row.
func (r *Repository) Save(ctx context.Context, cfg *models.SaleConfiguration) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}
