package service

import (
	"fmt"
	"sync/atomic"
	"testing"

	"vendorhub/internal/database"
	"vendorhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("vendorhub_test_%d", atomic.AddInt64(&testDBSeq, 1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedVendor(t *testing.T, db *gorm.DB, status string) *model.Vendor {
	t.Helper()

	vendor := &model.Vendor{
		Name:          "Acme Exports",
		ContactPerson: "Asha Rao",
		ContactEmail:  fmt.Sprintf("vendor%d@example.com", atomic.AddInt64(&testDBSeq, 1)),
		Status:        status,
		IsActive:      status == model.VendorActive,
	}
	if status == model.VendorActive {
		code := fmt.Sprintf("VEN_%05d", atomic.AddInt64(&testDBSeq, 1))
		vendor.Code = &code
	}
	if err := db.Create(vendor).Error; err != nil {
		t.Fatalf("failed to seed vendor: %v", err)
	}
	return vendor
}

func adminActor() model.Actor {
	return model.Actor{
		UserID: uuid.New(),
		Name:   "Ops Admin",
		Email:  "admin@example.com",
		Role:   model.RoleAdmin,
	}
}

func vendorActor(vendorID uuid.UUID) model.Actor {
	return model.Actor{
		UserID:   uuid.New(),
		Name:     "Vendor User",
		Email:    "vendor-user@example.com",
		Role:     model.RoleVendor,
		VendorID: &vendorID,
	}
}
