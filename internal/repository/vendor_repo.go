package repository

import (
	"context"

	"vendorhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VendorRepository interface {
	Create(ctx context.Context, vendor *model.Vendor) error
	Update(ctx context.Context, vendor *model.Vendor) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
	List(ctx context.Context, status, search string, page, limit int) ([]model.Vendor, int64, error)
	// MaxCodeWithPrefix returns the highest assigned vendor code matching
	// prefix (e.g. "VEN_"), or "" when none exists yet.
	MaxCodeWithPrefix(ctx context.Context, prefix string) (string, error)
	// LockCodePrefix serializes concurrent code generation for a prefix
	// within the current transaction. No-op on dialects without advisory
	// locks (the sqlite test database).
	LockCodePrefix(ctx context.Context, prefix string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) Create(ctx context.Context, vendor *model.Vendor) error {
	return GetDB(ctx, r.db).Create(vendor).Error
}

func (r *vendorRepository) Update(ctx context.Context, vendor *model.Vendor) error {
	return GetDB(ctx, r.db).Save(vendor).Error
}

func (r *vendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := GetDB(ctx, r.db).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) List(ctx context.Context, status, search string, page, limit int) ([]model.Vendor, int64, error) {
	var vendors []model.Vendor
	var total int64

	db := GetDB(ctx, r.db)

	build := func() *gorm.DB {
		q := db.Model(&model.Vendor{})
		if status != "" {
			q = q.Where("status = ?", status)
		}
		if search != "" {
			like := "%" + search + "%"
			q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(contact_email) LIKE LOWER(?) OR LOWER(contact_person) LIKE LOWER(?)",
				like, like, like)
		}
		return q
	}

	if err := build().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := build().Order("created_at DESC").Offset(offset).Limit(limit).Find(&vendors).Error; err != nil {
		return nil, 0, err
	}

	return vendors, total, nil
}

func (r *vendorRepository) MaxCodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	var code *string
	err := GetDB(ctx, r.db).Model(&model.Vendor{}).
		Where("code LIKE ?", prefix+"%").
		Select("MAX(code)").
		Scan(&code).Error
	if err != nil {
		return "", err
	}
	if code == nil {
		return "", nil
	}
	return *code, nil
}

func (r *vendorRepository) LockCodePrefix(ctx context.Context, prefix string) error {
	db := GetDB(ctx, r.db)
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error
}

func (r *vendorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Vendor{}).Error
}
