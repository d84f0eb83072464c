package repository

import (
	"context"

	"vendorhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// POFilter narrows List results. VendorID is set for vendor-scoped reads.
type POFilter struct {
	VendorID *uuid.UUID
	Status   string
	Priority string
	Page     int
	Limit    int
}

type PORepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	Update(ctx context.Context, po *model.PurchaseOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	ExistsByNumber(ctx context.Context, poNumber string) (bool, error)
	List(ctx context.Context, filter POFilter) ([]model.PurchaseOrder, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	FindIDsByVendorID(ctx context.Context, vendorID uuid.UUID) ([]uuid.UUID, error)

	FindLineItem(ctx context.Context, id uuid.UUID) (*model.LineItem, error)
	UpdateLineItem(ctx context.Context, item *model.LineItem) error
	FindLineItemsByPOID(ctx context.Context, poID uuid.UUID) ([]model.LineItem, error)
	CountLineItems(ctx context.Context, poID uuid.UUID) (int64, error)
	CountLineItemsByStatus(ctx context.Context, poID uuid.UUID, status string) (int64, error)
}

type poRepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) PORepository {
	return &poRepository{db: db}
}

func (r *poRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	// Line items are created through the association in the same statement batch.
	return GetDB(ctx, r.db).Create(po).Error
}

func (r *poRepository) Update(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Omit("LineItems").Save(po).Error
}

func (r *poRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *poRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_items.created_at ASC, line_items.id ASC")
		}).
		Preload("Vendor").
		First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *poRepository) ExistsByNumber(ctx context.Context, poNumber string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).
		Where("po_number = ?", poNumber).
		Count(&count).Error
	return count > 0, err
}

func (r *poRepository) List(ctx context.Context, filter POFilter) ([]model.PurchaseOrder, int64, error) {
	var pos []model.PurchaseOrder
	var total int64

	db := GetDB(ctx, r.db)

	build := func() *gorm.DB {
		q := db.Model(&model.PurchaseOrder{})
		if filter.VendorID != nil {
			q = q.Where("vendor_id = ?", *filter.VendorID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Priority != "" {
			q = q.Where("priority = ?", filter.Priority)
		}
		return q
	}

	if err := build().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := build().
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_items.created_at ASC, line_items.id ASC")
		}).
		Preload("Vendor").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&pos).Error; err != nil {
		return nil, 0, err
	}

	return pos, total, nil
}

func (r *poRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.PurchaseOrder{}).Error
}

func (r *poRepository) FindIDsByVendorID(ctx context.Context, vendorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).
		Where("vendor_id = ?", vendorID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *poRepository) FindLineItem(ctx context.Context, id uuid.UUID) (*model.LineItem, error) {
	var item model.LineItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *poRepository) UpdateLineItem(ctx context.Context, item *model.LineItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *poRepository) FindLineItemsByPOID(ctx context.Context, poID uuid.UUID) ([]model.LineItem, error) {
	var items []model.LineItem
	if err := GetDB(ctx, r.db).
		Where("po_id = ?", poID).
		Order("created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *poRepository) CountLineItems(ctx context.Context, poID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.LineItem{}).
		Where("po_id = ?", poID).
		Count(&count).Error
	return count, err
}

func (r *poRepository) CountLineItemsByStatus(ctx context.Context, poID uuid.UUID, status string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.LineItem{}).
		Where("po_id = ? AND status = ?", poID, status).
		Count(&count).Error
	return count, err
}
