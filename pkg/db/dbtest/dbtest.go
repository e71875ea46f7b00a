// Package dbtest opens throwaway SQLite databases carrying the full model
// schema for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/letrinh/letrinh-backend/pkg/db"
	"github.com/letrinh/letrinh-backend/pkg/db/models"
	"github.com/letrinh/letrinh-backend/pkg/enums"
)

// Open returns a migrated in-memory database unique to the running test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.Customer{},
		&models.Product{},
		&models.VariantOption{},
		&models.Discount{},
		&models.DiscountCondition{},
		&models.Order{},
		&models.OrderLineItem{},
		&models.OrderDiscount{},
		&models.Payment{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// Client wraps Open in a db.Client.
func Client(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromConn(conn), conn
}

func MustCustomer(t testing.TB, conn *gorm.DB, id string) models.Customer {
	t.Helper()
	c := models.Customer{ID: id, Name: "Khách " + id}
	if err := conn.Create(&c).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return c
}

func MustProduct(t testing.TB, conn *gorm.DB, id string, price int64) models.Product {
	t.Helper()
	p := models.Product{ID: id, Name: "Trà " + id, Price: decimal.NewFromInt(price), Active: true}
	if err := conn.Create(&p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func MustVariantOption(t testing.TB, conn *gorm.DB, id, label string, priceChange int64) models.VariantOption {
	t.Helper()
	o := models.VariantOption{ID: id, VariantID: "variant-" + id, Label: label, PriceChange: decimal.NewFromInt(priceChange)}
	if err := conn.Create(&o).Error; err != nil {
		t.Fatalf("create variant option: %v", err)
	}
	return o
}

// MustDiscount stores an always-active fixed discount with the given conditions.
func MustDiscount(t testing.TB, conn *gorm.DB, code string, conditions ...models.DiscountCondition) models.Discount {
	t.Helper()
	d := models.Discount{
		Code:       code,
		Kind:       enums.DiscountKindFixedValue,
		Value:      decimal.NewFromInt(5000),
		StartDate:  time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC),
		Conditions: conditions,
	}
	if err := conn.Create(&d).Error; err != nil {
		t.Fatalf("create discount: %v", err)
	}
	return d
}

func MustOrder(t testing.TB, conn *gorm.DB, id, customerID string, total int64) models.Order {
	t.Helper()
	o := models.Order{
		ID:          id,
		CustomerID:  customerID,
		TotalAmount: decimal.NewFromInt(total),
		OrderDate:   time.Now().UTC(),
	}
	if err := conn.Create(&o).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}
