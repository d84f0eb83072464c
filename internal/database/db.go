package database

import (
	"log"

	"vendorhub/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM. The returned
// handle is passed down explicitly — nothing in the codebase holds it as a
// package-level singleton.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Migrate runs AutoMigrate for every core model. Exposed separately so the
// test suite can migrate an in-memory database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Vendor{},
		&model.User{},
		&model.PurchaseOrder{},
		&model.LineItem{},
		&model.POHistory{},
		&model.LineItemHistory{},
	)
}
