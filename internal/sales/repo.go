package sales

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
	"github.com/angelmondragon/saleminimum-backend/pkg/pagination"
)

// ErrStateChanged is returned when a conditional state update matched no row.
var ErrStateChanged = errors.New("sale state changed concurrently")

// Repository persists sales and their lines.
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

// FindByID loads a sale with its lines in sequence order. Line products carry
// their sale unit so minimums can be resolved without further lookups.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC").Order("created_at ASC")
		}).
		Preload("Lines.Product").
		Preload("Lines.Product.SaleUnit").
		Preload("Lines.Unit").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

type listSalesParams struct {
	State  *enums.SaleState
	Limit  int
	Cursor *pagination.Cursor
}

// List returns sales newest first. Lines are loaded so totals can be
// reported; their catalog records are not.
func (r *Repository) List(ctx context.Context, params listSalesParams) ([]models.Sale, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Sale{})
	if params.State != nil {
		query = query.Where("state = ?", *params.State)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var sales []models.Sale
	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&sales).Error
	if err != nil {
		return nil, nil, err
	}

	if len(sales) > normalized {
		next := sales[normalized-1]
		sales = sales[:normalized]
		return sales, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return sales, nil, nil
}

// Create inserts sale and any lines attached to it. Line associations must
// be referenced by id only.
func (r *Repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

// CreateLine inserts a single line.
func (r *Repository) CreateLine(ctx context.Context, line *models.SaleLine) error {
	return r.db.WithContext(ctx).Omit("Product", "Unit").Create(line).Error
}

// SaveLine writes the editable and system managed columns of line.
func (r *Repository) SaveLine(ctx context.Context, line *models.SaleLine) error {
	return r.db.WithContext(ctx).
		Model(&models.SaleLine{}).
		Where("id = ? AND sale_id = ?", line.ID, line.SaleID).
		Updates(map[string]any{
			"product_id":       line.ProductID,
			"quantity":         line.Quantity,
			"unit_id":          line.UnitID,
			"unit_price":       line.UnitPrice,
			"description":      line.Description,
			"minimum_quantity": line.MinimumQuantity,
			"updated_at":       time.Now().UTC(),
		}).Error
}

// NextSequence returns the sequence for a new line appended to the sale.
func (r *Repository) NextSequence(ctx context.Context, saleID uuid.UUID) (int, error) {
	var current int
	err := r.db.WithContext(ctx).
		Model(&models.SaleLine{}).
		Where("sale_id = ?", saleID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

// TransitionState moves the sale from one state to another. It fails with
// ErrStateChanged when the sale is no longer in from.
func (r *Repository) TransitionState(ctx context.Context, id uuid.UUID, from, to enums.SaleState, at time.Time) error {
	updates := map[string]any{
		"state":      to,
		"updated_at": at,
	}
	switch to {
	case enums.SaleStateQuotation:
		updates["quoted_at"] = at
	case enums.SaleStateConfirmed:
		updates["confirmed_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND state = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStateChanged
	}
	return nil
}
