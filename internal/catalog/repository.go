// Package catalog reads products and units of measure for the sale flows.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/saleminimum-backend/pkg/errors"
)

// Reader exposes the read-only catalog lookups used by the minimum rules.
type Reader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error)
}

// Repository reads catalog records with gorm.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindProduct loads the product with its sale unit.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("SaleUnit").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, mapLookupError(err, "product not found")
	}
	return &product, nil
}

// FindUnit loads a unit of measure.
func (r *Repository) FindUnit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, mapLookupError(err, "unit not found")
	}
	return &unit, nil
}

func mapLookupError(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog lookup failed")
}
