package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"vendorhub/internal/model"
	"vendorhub/internal/repository"
	"vendorhub/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// History levels in the merged view
const (
	HistoryLevelPO       = "PO"
	HistoryLevelLineItem = "LINE_ITEM"
)

// --- DTOs ---

type HistoryEntryResponse struct {
	ID                uuid.UUID  `json:"id"`
	Level             string     `json:"level"` // PO or LINE_ITEM
	POID              uuid.UUID  `json:"po_id"`
	LineItemID        *uuid.UUID `json:"line_item_id,omitempty"`
	LineItemReference string     `json:"line_item_reference,omitempty"` // "{productCode} - {productName}"
	FieldName         string     `json:"field_name"`
	OldValue          string     `json:"old_value"`
	NewValue          string     `json:"new_value"`
	ActionType        string     `json:"action_type"`
	ChangedByUserID   uuid.UUID  `json:"changed_by_user_id"`
	ChangedByUserName string     `json:"changed_by_user_name"`
	ChangedByUserRole model.Role `json:"changed_by_user_role"`
	CreatedAt         time.Time  `json:"created_at"`
}

type HistoryFilter struct {
	VendorID string
	Page     int
	Limit    int
}

// --- Interface ---

type HistoryService interface {
	GetPOHistory(ctx context.Context, poID string, actor model.Actor) ([]HistoryEntryResponse, error)
	GetAllHistory(ctx context.Context, filter HistoryFilter) ([]HistoryEntryResponse, int64, error)
}

type historyService struct {
	historyRepo repository.HistoryRepository
	poRepo      repository.PORepository
}

func NewHistoryService(historyRepo repository.HistoryRepository, poRepo repository.PORepository) HistoryService {
	return &historyService{historyRepo: historyRepo, poRepo: poRepo}
}

// --- Implementation ---

func (s *historyService) GetPOHistory(ctx context.Context, poID string, actor model.Actor) ([]HistoryEntryResponse, error) {
	id, err := uuid.Parse(poID)
	if err != nil {
		return nil, apperror.BadRequest("invalid PO ID")
	}

	po, err := s.poRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("PO not found")
		}
		return nil, apperror.Internal("failed to fetch PO", err)
	}
	if err := checkPOOwnership(po, actor); err != nil {
		return nil, err
	}

	poEntries, err := s.historyRepo.FindPOEntriesByPOID(ctx, id)
	if err != nil {
		return nil, apperror.Internal("failed to fetch PO history", err)
	}
	itemEntries, err := s.historyRepo.FindLineItemEntriesByPOID(ctx, id)
	if err != nil {
		return nil, apperror.Internal("failed to fetch line item history", err)
	}

	refs := make(map[uuid.UUID]string, len(po.LineItems))
	for _, item := range po.LineItems {
		refs[item.ID] = item.ProductCode + " - " + item.ProductName
	}

	return mergeHistory(poEntries, itemEntries, refs), nil
}

func (s *historyService) GetAllHistory(ctx context.Context, filter HistoryFilter) ([]HistoryEntryResponse, int64, error) {
	var (
		poEntries   []model.POHistory
		itemEntries []model.LineItemHistory
		err         error
	)

	if filter.VendorID != "" {
		vendorID, parseErr := uuid.Parse(filter.VendorID)
		if parseErr != nil {
			return nil, 0, apperror.BadRequest("invalid vendor ID filter")
		}
		poIDs, idsErr := s.poRepo.FindIDsByVendorID(ctx, vendorID)
		if idsErr != nil {
			return nil, 0, apperror.Internal("failed to resolve vendor POs", idsErr)
		}
		poEntries, err = s.historyRepo.FindPOEntriesByPOIDs(ctx, poIDs)
		if err != nil {
			return nil, 0, apperror.Internal("failed to fetch PO history", err)
		}
		itemEntries, err = s.historyRepo.FindLineItemEntriesByPOIDs(ctx, poIDs)
		if err != nil {
			return nil, 0, apperror.Internal("failed to fetch line item history", err)
		}
	} else {
		poEntries, err = s.historyRepo.AllPOEntries(ctx)
		if err != nil {
			return nil, 0, apperror.Internal("failed to fetch PO history", err)
		}
		itemEntries, err = s.historyRepo.AllLineItemEntries(ctx)
		if err != nil {
			return nil, 0, apperror.Internal("failed to fetch line item history", err)
		}
	}

	// Resolve line item references for every PO that shows up.
	refs := make(map[uuid.UUID]string)
	seen := make(map[uuid.UUID]bool)
	for _, e := range itemEntries {
		if seen[e.POID] {
			continue
		}
		seen[e.POID] = true
		items, itemsErr := s.poRepo.FindLineItemsByPOID(ctx, e.POID)
		if itemsErr != nil {
			return nil, 0, apperror.Internal("failed to fetch line items", itemsErr)
		}
		for _, item := range items {
			refs[item.ID] = item.ProductCode + " - " + item.ProductName
		}
	}

	merged := mergeHistory(poEntries, itemEntries, refs)
	total := int64(len(merged))

	// Pagination is sliced after the in-memory merge-sort: the two history
	// shapes cannot be page-limited independently without breaking global
	// createdAt ordering.
	page := filter.Page
	limit := filter.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(merged) {
		return []HistoryEntryResponse{}, total, nil
	}
	end := start + limit
	if end > len(merged) {
		end = len(merged)
	}

	return merged[start:end], total, nil
}

// mergeHistory combines both entry shapes into one list sorted by createdAt
// descending, decorating line-item entries with their product reference.
func mergeHistory(poEntries []model.POHistory, itemEntries []model.LineItemHistory, refs map[uuid.UUID]string) []HistoryEntryResponse {
	merged := make([]HistoryEntryResponse, 0, len(poEntries)+len(itemEntries))

	for _, e := range poEntries {
		merged = append(merged, HistoryEntryResponse{
			ID:                e.ID,
			Level:             HistoryLevelPO,
			POID:              e.POID,
			FieldName:         e.FieldName,
			OldValue:          e.OldValue,
			NewValue:          e.NewValue,
			ActionType:        e.ActionType,
			ChangedByUserID:   e.ChangedByUserID,
			ChangedByUserName: e.ChangedByUserName,
			ChangedByUserRole: e.ChangedByUserRole,
			CreatedAt:         e.CreatedAt,
		})
	}

	for _, e := range itemEntries {
		ref, ok := refs[e.LineItemID]
		if !ok {
			ref = "Unknown Item"
		}
		itemID := e.LineItemID
		merged = append(merged, HistoryEntryResponse{
			ID:                e.ID,
			Level:             HistoryLevelLineItem,
			POID:              e.POID,
			LineItemID:        &itemID,
			LineItemReference: ref,
			FieldName:         e.FieldName,
			OldValue:          e.OldValue,
			NewValue:          e.NewValue,
			ActionType:        e.ActionType,
			ChangedByUserID:   e.ChangedByUserID,
			ChangedByUserName: e.ChangedByUserName,
			ChangedByUserRole: e.ChangedByUserRole,
			CreatedAt:         e.CreatedAt,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	return merged
}
