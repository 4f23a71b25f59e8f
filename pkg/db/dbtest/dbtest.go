// Package dbtest opens throwaway SQLite databases with the service schema and
// seeds catalog fixtures for repository tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
)

// Open returns an isolated in-memory database migrated with every model.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.UOMCategory{},
		&models.Unit{},
		&models.Product{},
		&models.Sale{},
		&models.SaleLine{},
		&models.SaleConfiguration{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Catalog holds a small set of units across two categories.
type Catalog struct {
	Count  *models.UOMCategory
	Weight *models.UOMCategory
	Unit   *models.Unit
	Dozen  *models.Unit
	Kg     *models.Unit
	Gram   *models.Unit
}

// SeedCatalog inserts the unit fixtures.
func SeedCatalog(t testing.TB, conn *gorm.DB) *Catalog {
	t.Helper()
	c := &Catalog{
		Count:  &models.UOMCategory{Name: "Units"},
		Weight: &models.UOMCategory{Name: "Weight"},
	}
	mustCreate(t, conn, c.Count)
	mustCreate(t, conn, c.Weight)

	c.Unit = &models.Unit{CategoryID: c.Count.ID, Name: "Unit", Symbol: "u", Factor: decimal.NewFromInt(1), Rounding: decimal.NewFromInt(1), Digits: 0, Active: true}
	c.Dozen = &models.Unit{CategoryID: c.Count.ID, Name: "Dozen", Symbol: "dz", Factor: decimal.NewFromInt(12), Rounding: decimal.RequireFromString("0.01"), Digits: 2, Active: true}
	c.Kg = &models.Unit{CategoryID: c.Weight.ID, Name: "Kilogram", Symbol: "kg", Factor: decimal.NewFromInt(1), Rounding: decimal.RequireFromString("0.001"), Digits: 3, Active: true}
	c.Gram = &models.Unit{CategoryID: c.Weight.ID, Name: "Gram", Symbol: "g", Factor: decimal.RequireFromString("0.001"), Rounding: decimal.NewFromInt(1), Digits: 0, Active: true}
	for _, u := range []*models.Unit{c.Unit, c.Dozen, c.Kg, c.Gram} {
		mustCreate(t, conn, u)
	}
	return c
}

// CreateProduct inserts a salable product. An empty minimum leaves it unset.
func CreateProduct(t testing.TB, conn *gorm.DB, name string, saleUnit *models.Unit, listPrice, minimum string) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:       name,
		SaleUnitID: saleUnit.ID,
		Salable:    true,
		Active:     true,
		ListPrice:  decimal.RequireFromString(listPrice),
	}
	if minimum != "" {
		p.MinimumQuantity = decimal.NewNullDecimal(decimal.RequireFromString(minimum))
	}
	mustCreate(t, conn, p)
	p.SaleUnit = saleUnit
	return p
}

func mustCreate(t testing.TB, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}
