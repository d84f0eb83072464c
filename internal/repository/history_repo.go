package repository

import (
	"context"

	"vendorhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepository is the append-only writer and reader for the two history
// shapes. There are deliberately no update or delete methods.
type HistoryRepository interface {
	CreatePOEntries(ctx context.Context, entries []model.POHistory) error
	CreateLineItemEntries(ctx context.Context, entries []model.LineItemHistory) error
	FindPOEntriesByPOID(ctx context.Context, poID uuid.UUID) ([]model.POHistory, error)
	FindLineItemEntriesByPOID(ctx context.Context, poID uuid.UUID) ([]model.LineItemHistory, error)
	FindPOEntriesByPOIDs(ctx context.Context, poIDs []uuid.UUID) ([]model.POHistory, error)
	FindLineItemEntriesByPOIDs(ctx context.Context, poIDs []uuid.UUID) ([]model.LineItemHistory, error)
	AllPOEntries(ctx context.Context) ([]model.POHistory, error)
	AllLineItemEntries(ctx context.Context) ([]model.LineItemHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) CreatePOEntries(ctx context.Context, entries []model.POHistory) error {
	if len(entries) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&entries).Error
}

func (r *historyRepository) CreateLineItemEntries(ctx context.Context, entries []model.LineItemHistory) error {
	if len(entries) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&entries).Error
}

func (r *historyRepository) FindPOEntriesByPOID(ctx context.Context, poID uuid.UUID) ([]model.POHistory, error) {
	var entries []model.POHistory
	if err := GetDB(ctx, r.db).Where("po_id = ?", poID).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *historyRepository) FindLineItemEntriesByPOID(ctx context.Context, poID uuid.UUID) ([]model.LineItemHistory, error) {
	var entries []model.LineItemHistory
	if err := GetDB(ctx, r.db).Where("po_id = ?", poID).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *historyRepository) FindPOEntriesByPOIDs(ctx context.Context, poIDs []uuid.UUID) ([]model.POHistory, error) {
	var entries []model.POHistory
	if len(poIDs) == 0 {
		return entries, nil
	}
	if err := GetDB(ctx, r.db).Where("po_id IN ?", poIDs).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *historyRepository) FindLineItemEntriesByPOIDs(ctx context.Context, poIDs []uuid.UUID) ([]model.LineItemHistory, error) {
	var entries []model.LineItemHistory
	if len(poIDs) == 0 {
		return entries, nil
	}
	if err := GetDB(ctx, r.db).Where("po_id IN ?", poIDs).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *historyRepository) AllPOEntries(ctx context.Context) ([]model.POHistory, error) {
	var entries []model.POHistory
	if err := GetDB(ctx, r.db).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *historyRepository) AllLineItemEntries(ctx context.Context) ([]model.LineItemHistory, error) {
	var entries []model.LineItemHistory
	if err := GetDB(ctx, r.db).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
