package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vendorhub/internal/model"
	"vendorhub/internal/repository"
	"vendorhub/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// --- DTOs ---

type LineItemPayload struct {
	ProductCode  string          `json:"product_code" binding:"required"`
	ProductName  string          `json:"product_name" binding:"required"`
	Quantity     int             `json:"quantity" binding:"required,gt=0"`
	GSTPercent   decimal.Decimal `json:"gst_percent"`
	Price        decimal.Decimal `json:"price"`
	MRP          decimal.Decimal `json:"mrp"`
	LinePriority string          `json:"line_priority"`

	DesignCode      *string `json:"design_code"`
	CombinationCode *string `json:"combination_code"`
	Style           *string `json:"style"`
	SubStyle        *string `json:"sub_style"`
	Region          *string `json:"region"`
	Color           *string `json:"color"`
	SubColor        *string `json:"sub_color"`
	Polish          *string `json:"polish"`
	Size            *string `json:"size"`
	Weight          *string `json:"weight"`
	Category        *string `json:"category"`
}

type CreatePORequest struct {
	PONumber       string            `json:"po_number" binding:"required"`
	PODate         string            `json:"po_date" binding:"required"` // YYYY-MM-DD
	Priority       string            `json:"priority" binding:"required"`
	Type           string            `json:"type" binding:"required,oneof=NEW_ITEMS REPEAT"`
	VendorID       string            `json:"vendor_id" binding:"required"`
	ERPReferenceID *string           `json:"erp_reference_id"`
	LineItems      []LineItemPayload `json:"line_items" binding:"required"`
}

// AcceptLineItemUpdate carries the vendor-supplied delivery date for one line
// item during PO acceptance.
type AcceptLineItemUpdate struct {
	LineItemID           string `json:"line_item_id" binding:"required"`
	ExpectedDeliveryDate string `json:"expected_delivery_date" binding:"required"` // YYYY-MM-DD
}

type AcceptPORequest struct {
	LineItems []AcceptLineItemUpdate `json:"line_items" binding:"required"`
}

type ClosureRequest struct {
	ClosureStatus *string          `json:"closure_status"`
	ClosedAmount  *decimal.Decimal `json:"closed_amount"`
}

type POFilterRequest struct {
	VendorID string
	Status   string
	Priority string
	Page     int
	Limit    int
}

type LineItemResponse struct {
	ID                   uuid.UUID       `json:"id"`
	POID                 uuid.UUID       `json:"po_id"`
	ProductCode          string          `json:"product_code"`
	ProductName          string          `json:"product_name"`
	Quantity             int             `json:"quantity"`
	GSTPercent           decimal.Decimal `json:"gst_percent"`
	Price                decimal.Decimal `json:"price"`
	MRP                  decimal.Decimal `json:"mrp"`
	LinePriority         string          `json:"line_priority"`
	ExpectedDeliveryDate *string         `json:"expected_delivery_date"`
	Status               string          `json:"status"`
	DesignCode           *string         `json:"design_code"`
	CombinationCode      *string         `json:"combination_code"`
	Style                *string         `json:"style"`
	SubStyle             *string         `json:"sub_style"`
	Region               *string         `json:"region"`
	Color                *string         `json:"color"`
	SubColor             *string         `json:"sub_color"`
	Polish               *string         `json:"polish"`
	Size                 *string         `json:"size"`
	Weight               *string         `json:"weight"`
	ReceivedQty          *int            `json:"received_qty"`
	Category             *string         `json:"category"`
}

type POResponse struct {
	ID             uuid.UUID          `json:"id"`
	PONumber       string             `json:"po_number"`
	PODate         string             `json:"po_date"`
	Priority       string             `json:"priority"`
	Type           string             `json:"type"`
	VendorID       uuid.UUID          `json:"vendor_id"`
	VendorName     string             `json:"vendor_name,omitempty"`
	Status         string             `json:"status"`
	ERPReferenceID *string            `json:"erp_reference_id"`
	ClosureStatus  *string            `json:"closure_status"`
	ClosedAmount   *decimal.Decimal   `json:"closed_amount"`
	LineItems      []LineItemResponse `json:"line_items"`
	CreatedAt      string             `json:"created_at"`
	UpdatedAt      string             `json:"updated_at"`
}

// --- Interface ---

type POService interface {
	Create(ctx context.Context, req CreatePORequest) (POResponse, error)
	Get(ctx context.Context, id string, actor model.Actor) (POResponse, error)
	List(ctx context.Context, filter POFilterRequest, actor model.Actor) ([]POResponse, int64, error)
	UpdatePriority(ctx context.Context, id, priority string, actor model.Actor) (POResponse, error)
	// OverrideStatus sets the PO status directly with no transition
	// validation. Admin-only escape hatch, distinct from the guarded
	// line-item transition path.
	OverrideStatus(ctx context.Context, id, status string, actor model.Actor) (POResponse, error)
	Accept(ctx context.Context, id string, req AcceptPORequest, actor model.Actor) (POResponse, error)
	UpdateLineItemExpectedDate(ctx context.Context, poID, itemID, date string, actor model.Actor) (POResponse, error)
	UpdateLineItemStatus(ctx context.Context, poID, itemID, status string, actor model.Actor) (POResponse, error)
	UpdateLineItemPriority(ctx context.Context, poID, itemID, priority string, actor model.Actor) (POResponse, error)
	UpdateClosure(ctx context.Context, id string, req ClosureRequest, actor model.Actor) (POResponse, error)
}

// Notifier is the broadcast surface of the websocket hub. Optional: a nil
// notifier disables event fan-out.
type Notifier interface {
	GetBroadcast() chan []byte
}

type poService struct {
	poRepo      repository.PORepository
	vendorRepo  repository.VendorRepository
	historyRepo repository.HistoryRepository
	txManager   repository.TransactionManager
	hub         Notifier
}

func NewPOService(
	poRepo repository.PORepository,
	vendorRepo repository.VendorRepository,
	historyRepo repository.HistoryRepository,
	txManager repository.TransactionManager,
	hub Notifier,
) POService {
	return &poService{
		poRepo:      poRepo,
		vendorRepo:  vendorRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		hub:         hub,
	}
}

// --- Implementation ---

func (s *poService) Create(ctx context.Context, req CreatePORequest) (POResponse, error) {
	if len(req.LineItems) == 0 {
		return POResponse{}, apperror.BadRequest("PO must contain at least one line item")
	}
	if !model.ValidPriority(req.Priority) {
		return POResponse{}, apperror.BadRequest("priority must be one of: LOW, MEDIUM, HIGH, URGENT")
	}

	poDate, err := time.Parse(dateLayout, req.PODate)
	if err != nil {
		return POResponse{}, apperror.BadRequest("po_date must be in YYYY-MM-DD format")
	}

	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		return POResponse{}, apperror.BadRequest("invalid vendor ID")
	}
	if _, err := s.vendorRepo.FindByID(ctx, vendorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return POResponse{}, apperror.NotFound("vendor not found")
		}
		return POResponse{}, apperror.Internal("failed to look up vendor", err)
	}

	exists, err := s.poRepo.ExistsByNumber(ctx, req.PONumber)
	if err != nil {
		return POResponse{}, apperror.Internal("failed to check PO number", err)
	}
	if exists {
		return POResponse{}, apperror.Conflict(fmt.Sprintf("PO number %s already exists", req.PONumber))
	}

	items := make([]model.LineItem, 0, len(req.LineItems))
	for i, p := range req.LineItems {
		linePriority := p.LinePriority
		if linePriority == "" {
			linePriority = req.Priority
		}
		if !model.ValidPriority(linePriority) {
			return POResponse{}, apperror.BadRequest(fmt.Sprintf("line_items[%d]: invalid line priority", i))
		}
		items = append(items, model.LineItem{
			ProductCode:     p.ProductCode,
			ProductName:     p.ProductName,
			Quantity:        p.Quantity,
			GSTPercent:      p.GSTPercent,
			Price:           p.Price,
			MRP:             p.MRP,
			LinePriority:    linePriority,
			Status:          model.StatusCreated,
			DesignCode:      p.DesignCode,
			CombinationCode: p.CombinationCode,
			Style:           p.Style,
			SubStyle:        p.SubStyle,
			Region:          p.Region,
			Color:           p.Color,
			SubColor:        p.SubColor,
			Polish:          p.Polish,
			Size:            p.Size,
			Weight:          p.Weight,
			Category:        p.Category,
		})
	}

	po := &model.PurchaseOrder{
		PONumber:       req.PONumber,
		PODate:         poDate,
		Priority:       req.Priority,
		Type:           req.Type,
		VendorID:       vendorID,
		Status:         model.StatusCreated,
		ERPReferenceID: req.ERPReferenceID,
		LineItems:      items,
	}

	// PO and line items land in one transaction; the association create
	// handles the items. Creation itself writes no history rows — there is
	// no prior value to diff against.
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.poRepo.Create(txCtx, po)
	})
	if err != nil {
		return POResponse{}, translateStoreError(err, "failed to create PO")
	}

	created, err := s.poRepo.FindByIDWithItems(ctx, po.ID)
	if err != nil {
		return POResponse{}, apperror.Internal("failed to reload PO", err)
	}

	return toPOResponse(*created), nil
}

func (s *poService) Get(ctx context.Context, id string, actor model.Actor) (POResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return POResponse{}, apperror.BadRequest("invalid PO ID")
	}

	po, err := s.poRepo.FindByIDWithItems(ctx, poID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return POResponse{}, apperror.NotFound("PO not found")
		}
		return POResponse{}, apperror.Internal("failed to fetch PO", err)
	}

	if err := checkPOOwnership(po, actor); err != nil {
		return POResponse{}, err
	}

	return toPOResponse(*po), nil
}

func (s *poService) List(ctx context.Context, filter POFilterRequest, actor model.Actor) ([]POResponse, int64, error) {
	repoFilter := repository.POFilter{
		Status:   filter.Status,
		Priority: filter.Priority,
		Page:     filter.Page,
		Limit:    filter.Limit,
	}
	if repoFilter.Page <= 0 {
		repoFilter.Page = 1
	}
	if repoFilter.Limit <= 0 {
		repoFilter.Limit = 20
	}

	switch actor.Role {
	case model.RoleVendor:
		// Vendor reads are always scoped to their own vendor.
		if actor.VendorID == nil {
			return nil, 0, apperror.BadRequest("vendor identity has no vendor binding")
		}
		repoFilter.VendorID = actor.VendorID
	case model.RoleAdmin:
		if filter.VendorID != "" {
			vendorID, err := uuid.Parse(filter.VendorID)
			if err != nil {
				return nil, 0, apperror.BadRequest("invalid vendor ID filter")
			}
			repoFilter.VendorID = &vendorID
		}
	}

	pos, total, err := s.poRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperror.Internal("failed to fetch POs", err)
	}

	res := make([]POResponse, 0, len(pos))
	for _, po := range pos {
		res = append(res, toPOResponse(po))
	}
	return res, total, nil
}

func (s *poService) UpdatePriority(ctx context.Context, id, priority string, actor model.Actor) (POResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return POResponse{}, apperror.BadRequest("invalid PO ID")
	}
	if !model.ValidPriority(priority) {
		return POResponse{}, apperror.BadRequest("priority must be one of: LOW, MEDIUM, HIGH, URGENT")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByID(txCtx, poID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("PO not found")
			}
			return apperror.Internal("failed to fetch PO", err)
		}
		if po.Status == model.StatusDelivered {
			return apperror.BadRequest("Cannot update priority of delivered PO")
		}
		if po.Priority == priority {
			return nil
		}

		old := po.Priority
		po.Priority = priority
		if err := s.poRepo.Update(txCtx, po); err != nil {
			return apperror.Internal("failed to update PO", err)
		}

		return s.historyRepo.CreatePOEntries(txCtx, []model.POHistory{
			poHistoryEntry(po.ID, "priority", old, priority, model.ActionPriorityChange, actor),
		})
	})
	if err != nil {
		return POResponse{}, err
	}

	return s.reload(ctx, poID)
}

func (s *poService) OverrideStatus(ctx context.Context, id, status string, actor model.Actor) (POResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return POResponse{}, apperror.BadRequest("invalid PO ID")
	}
	if model.StatusIndex(status) < 0 {
		return POResponse{}, apperror.BadRequest("status must be one of: CREATED, ACCEPTED, PLANNED, DELIVERED")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByID(txCtx, poID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("PO not found")
			}
			return apperror.Internal("failed to fetch PO", err)
		}
		if po.Status == status {
			return nil
		}

		// No monotonicity check here: this is the explicit admin escape
		// hatch, so regressions are permitted.
		old := po.Status
		po.Status = status
		if err := s.poRepo.Update(txCtx, po); err != nil {
			return apperror.Internal("failed to update PO", err)
		}

		return s.historyRepo.CreatePOEntries(txCtx, []model.POHistory{
			poHistoryEntry(po.ID, "status", old, status, model.ActionStatusChange, actor),
		})
	})
	if err != nil {
		return POResponse{}, err
	}

	return s.reload(ctx, poID)
}

func (s *poService) Accept(ctx context.Context, id string, req AcceptPORequest, actor model.Actor) (POResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return POResponse{}, apperror.BadRequest("invalid PO ID")
	}

	// Parse every date up front so a malformed payload fails before any write.
	type itemUpdate struct {
		itemID uuid.UUID
		date   time.Time
	}
	updates := make([]itemUpdate, 0, len(req.LineItems))
	for i, u := range req.LineItems {
		if u.ExpectedDeliveryDate == "" {
			return POResponse{}, apperror.BadRequest(fmt.Sprintf("line_items[%d]: expected_delivery_date is required", i))
		}
		date, err := time.Parse(dateLayout, u.ExpectedDeliveryDate)
		if err != nil {
			return POResponse{}, apperror.BadRequest(fmt.Sprintf("line_items[%d]: expected_delivery_date must be in YYYY-MM-DD format", i))
		}
		itemID, err := uuid.Parse(u.LineItemID)
		if err != nil {
			return POResponse{}, apperror.BadRequest(fmt.Sprintf("line_items[%d]: invalid line item ID", i))
		}
		updates = append(updates, itemUpdate{itemID: itemID, date: date})
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByID(txCtx, poID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("PO not found")
			}
			return apperror.Internal("failed to fetch PO", err)
		}

		if err := checkPOOwnership(po, actor); err != nil {
			return err
		}
		if po.Status != model.StatusCreated {
			return apperror.BadRequest("PO can only be accepted when in CREATED status")
		}

		var itemEntries []model.LineItemHistory
		for _, u := range updates {
			item, err := s.poRepo.FindLineItem(txCtx, u.itemID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperror.NotFound("line item not found")
				}
				return apperror.Internal("failed to fetch line item", err)
			}
			if item.POID != po.ID {
				return apperror.BadRequest("Line item does not belong to the specified PO")
			}

			oldStatus := item.Status
			oldDate := formatDatePtr(item.ExpectedDeliveryDate)

			date := u.date
			item.ExpectedDeliveryDate = &date
			item.Status = model.StatusAccepted
			if err := s.poRepo.UpdateLineItem(txCtx, item); err != nil {
				return apperror.Internal("failed to update line item", err)
			}

			itemEntries = append(itemEntries,
				lineItemHistoryEntry(item.ID, po.ID, "status", oldStatus, model.StatusAccepted, model.ActionAcceptance, actor),
				lineItemHistoryEntry(item.ID, po.ID, "expected_delivery_date", oldDate, date.Format(dateLayout), model.ActionAcceptance, actor),
			)
		}

		oldStatus := po.Status
		po.Status = model.StatusAccepted
		if err := s.poRepo.Update(txCtx, po); err != nil {
			return apperror.Internal("failed to update PO", err)
		}

		if err := s.historyRepo.CreateLineItemEntries(txCtx, itemEntries); err != nil {
			return apperror.Internal("failed to write line item history", err)
		}
		return s.historyRepo.CreatePOEntries(txCtx, []model.POHistory{
			poHistoryEntry(po.ID, "status", oldStatus, model.StatusAccepted, model.ActionAcceptance, actor),
		})
	})
	if err != nil {
		return POResponse{}, err
	}

	res, err := s.reload(ctx, poID)
	if err != nil {
		return POResponse{}, err
	}
	s.notify("PO_ACCEPTED", res.PONumber, res.ID)
	return res, nil
}

func (s *poService) UpdateLineItemExpectedDate(ctx context.Context, poID, itemID, dateStr string, actor model.Actor) (POResponse, error) {
	parentID, item, err := s.resolveLineItem(ctx, poID, itemID)
	if err != nil {
		return POResponse{}, err
	}

	if dateStr == "" {
		return POResponse{}, apperror.BadRequest("expected_delivery_date is required")
	}
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return POResponse{}, apperror.BadRequest("expected_delivery_date must be in YYYY-MM-DD format")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByID(txCtx, parentID)
		if err != nil {
			return apperror.Internal("failed to fetch PO", err)
		}
		if err := checkPOOwnership(po, actor); err != nil {
			return err
		}

		item, err := s.poRepo.FindLineItem(txCtx, item.ID)
		if err != nil {
			return apperror.Internal("failed to fetch line item", err)
		}
		if item.Status == model.StatusDelivered {
			return apperror.BadRequest("Cannot update expected date for delivered line item")
		}

		old := formatDatePtr(item.ExpectedDeliveryDate)
		item.ExpectedDeliveryDate = &date
		if err := s.poRepo.UpdateLineItem(txCtx, item); err != nil {
			return apperror.Internal("failed to update line item", err)
		}

		return s.historyRepo.CreateLineItemEntries(txCtx, []model.LineItemHistory{
			lineItemHistoryEntry(item.ID, parentID, "expected_delivery_date", old, date.Format(dateLayout), model.ActionDateChange, actor),
		})
	})
	if err != nil {
		return POResponse{}, err
	}

	return s.reload(ctx, parentID)
}

func (s *poService) UpdateLineItemStatus(ctx context.Context, poID, itemID, status string, actor model.Actor) (POResponse, error) {
	parentID, item, err := s.resolveLineItem(ctx, poID, itemID)
	if err != nil {
		return POResponse{}, err
	}

	targetIdx := model.StatusIndex(status)
	if targetIdx < 0 {
		return POResponse{}, apperror.BadRequest("status must be one of: CREATED, ACCEPTED, PLANNED, DELIVERED")
	}

	var delivered bool
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByID(txCtx, parentID)
		if err != nil {
			return apperror.Internal("failed to fetch PO", err)
		}
		if err := checkPOOwnership(po, actor); err != nil {
			return err
		}

		item, err := s.poRepo.FindLineItem(txCtx, item.ID)
		if err != nil {
			return apperror.Internal("failed to fetch line item", err)
		}

		if targetIdx < model.StatusIndex(item.Status) {
			return apperror.BadRequest("Cannot move line item to a previous status")
		}
		if item.Status == status {
			return nil
		}

		old := item.Status
		item.Status = status
		if err := s.poRepo.UpdateLineItem(txCtx, item); err != nil {
			return apperror.Internal("failed to update line item", err)
		}

		if err := s.historyRepo.CreateLineItemEntries(txCtx, []model.LineItemHistory{
			lineItemHistoryEntry(item.ID, parentID, "status", old, status, model.ActionStatusChange, actor),
		}); err != nil {
			return apperror.Internal("failed to write history", err)
		}

		// Rollup: the PO reaches DELIVERED only when every line item has.
		total, err := s.poRepo.CountLineItems(txCtx, parentID)
		if err != nil {
			return apperror.Internal("failed to count line items", err)
		}
		deliveredCount, err := s.poRepo.CountLineItemsByStatus(txCtx, parentID, model.StatusDelivered)
		if err != nil {
			return apperror.Internal("failed to count delivered line items", err)
		}
		if total > 0 && deliveredCount == total {
			if po.Status != model.StatusDelivered {
				oldPOStatus := po.Status
				po.Status = model.StatusDelivered
				if err := s.poRepo.Update(txCtx, po); err != nil {
					return apperror.Internal("failed to update PO", err)
				}
				if err := s.historyRepo.CreatePOEntries(txCtx, []model.POHistory{
					poHistoryEntry(po.ID, "status", oldPOStatus, model.StatusDelivered, model.ActionStatusChange, actor),
				}); err != nil {
					return apperror.Internal("failed to write history", err)
				}
				delivered = true
			}
		}
		return nil
	})
	if err != nil {
		return POResponse{}, err
	}

	res, err := s.reload(ctx, parentID)
	if err != nil {
		return POResponse{}, err
	}
	if delivered {
		s.notify("PO_DELIVERED", res.PONumber, res.ID)
	}
	return res, nil
}

func (s *poService) UpdateLineItemPriority(ctx context.Context, poID, itemID, priority string, actor model.Actor) (POResponse, error) {
	parentID, item, err := s.resolveLineItem(ctx, poID, itemID)
	if err != nil {
		return POResponse{}, err
	}
	if !model.ValidPriority(priority) {
		return POResponse{}, apperror.BadRequest("priority must be one of: LOW, MEDIUM, HIGH, URGENT")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByID(txCtx, parentID)
		if err != nil {
			return apperror.Internal("failed to fetch PO", err)
		}
		if err := checkPOOwnership(po, actor); err != nil {
			return err
		}

		item, err := s.poRepo.FindLineItem(txCtx, item.ID)
		if err != nil {
			return apperror.Internal("failed to fetch line item", err)
		}
		if item.Status == model.StatusDelivered {
			return apperror.BadRequest("Cannot update priority of delivered line item")
		}
		if item.LinePriority == priority {
			return nil
		}

		old := item.LinePriority
		item.LinePriority = priority
		if err := s.poRepo.UpdateLineItem(txCtx, item); err != nil {
			return apperror.Internal("failed to update line item", err)
		}

		return s.historyRepo.CreateLineItemEntries(txCtx, []model.LineItemHistory{
			lineItemHistoryEntry(item.ID, parentID, "line_priority", old, priority, model.ActionPriorityChange, actor),
		})
	})
	if err != nil {
		return POResponse{}, err
	}

	return s.reload(ctx, parentID)
}

func (s *poService) UpdateClosure(ctx context.Context, id string, req ClosureRequest, actor model.Actor) (POResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return POResponse{}, apperror.BadRequest("invalid PO ID")
	}
	if req.ClosedAmount != nil && req.ClosedAmount.IsNegative() {
		return POResponse{}, apperror.BadRequest("closed amount cannot be negative")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByID(txCtx, poID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("PO not found")
			}
			return apperror.Internal("failed to fetch PO", err)
		}

		// One history row per field that actually changed.
		var entries []model.POHistory
		if req.ClosureStatus != nil && !equalStrPtr(po.ClosureStatus, req.ClosureStatus) {
			entries = append(entries, poHistoryEntry(po.ID, "closure_status",
				strPtrValue(po.ClosureStatus), *req.ClosureStatus, model.ActionClosureChange, actor))
			po.ClosureStatus = req.ClosureStatus
		}
		if req.ClosedAmount != nil && !equalDecimalPtr(po.ClosedAmount, req.ClosedAmount) {
			entries = append(entries, poHistoryEntry(po.ID, "closed_amount",
				decimalPtrValue(po.ClosedAmount), req.ClosedAmount.String(), model.ActionClosureChange, actor))
			po.ClosedAmount = req.ClosedAmount
		}

		if len(entries) == 0 {
			return nil
		}

		if err := s.poRepo.Update(txCtx, po); err != nil {
			return apperror.Internal("failed to update PO", err)
		}
		return s.historyRepo.CreatePOEntries(txCtx, entries)
	})
	if err != nil {
		return POResponse{}, err
	}

	return s.reload(ctx, poID)
}

// --- Helpers ---

// resolveLineItem loads a line item and validates the path's PO reference.
func (s *poService) resolveLineItem(ctx context.Context, poID, itemID string) (uuid.UUID, *model.LineItem, error) {
	parentID, err := uuid.Parse(poID)
	if err != nil {
		return uuid.Nil, nil, apperror.BadRequest("invalid PO ID")
	}
	lineItemID, err := uuid.Parse(itemID)
	if err != nil {
		return uuid.Nil, nil, apperror.BadRequest("invalid line item ID")
	}

	item, err := s.poRepo.FindLineItem(ctx, lineItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, nil, apperror.NotFound("line item not found")
		}
		return uuid.Nil, nil, apperror.Internal("failed to fetch line item", err)
	}
	if item.POID != parentID {
		return uuid.Nil, nil, apperror.BadRequest("Line item does not belong to the specified PO")
	}
	return parentID, item, nil
}

func (s *poService) reload(ctx context.Context, poID uuid.UUID) (POResponse, error) {
	po, err := s.poRepo.FindByIDWithItems(ctx, poID)
	if err != nil {
		return POResponse{}, apperror.Internal("failed to reload PO", err)
	}
	return toPOResponse(*po), nil
}

// notify fans a lifecycle event out through the websocket hub. Drops the
// message when no hub is attached or its dispatch loop is saturated.
func (s *poService) notify(event, poNumber string, poID uuid.UUID) {
	if s.hub == nil {
		return
	}
	msg, _ := json.Marshal(map[string]string{
		"event":     event,
		"po_number": poNumber,
		"po_id":     poID.String(),
	})
	select {
	case s.hub.GetBroadcast() <- msg:
	default:
	}
}

// checkPOOwnership enforces vendor read/write scoping. Admins pass through.
func checkPOOwnership(po *model.PurchaseOrder, actor model.Actor) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleVendor:
		if po.VendorID == uuid.Nil {
			return apperror.BadRequest("PO has no vendor binding")
		}
		if actor.VendorID == nil || *actor.VendorID != po.VendorID {
			return apperror.Forbidden("PO belongs to a different vendor")
		}
		return nil
	default:
		return apperror.Forbidden("unknown role")
	}
}

func poHistoryEntry(poID uuid.UUID, field, oldValue, newValue, action string, actor model.Actor) model.POHistory {
	return model.POHistory{
		POID:              poID,
		FieldName:         field,
		OldValue:          oldValue,
		NewValue:          newValue,
		ActionType:        action,
		ChangedByUserID:   actor.UserID,
		ChangedByUserName: actor.Name,
		ChangedByUserRole: actor.Role,
	}
}

func lineItemHistoryEntry(itemID, poID uuid.UUID, field, oldValue, newValue, action string, actor model.Actor) model.LineItemHistory {
	return model.LineItemHistory{
		LineItemID:        itemID,
		POID:              poID,
		FieldName:         field,
		OldValue:          oldValue,
		NewValue:          newValue,
		ActionType:        action,
		ChangedByUserID:   actor.UserID,
		ChangedByUserName: actor.Name,
		ChangedByUserRole: actor.Role,
	}
}

// translateStoreError converts raw constraint violations the pre-checks did
// not catch into taxonomy errors instead of leaking store internals.
func translateStoreError(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Conflict(msg + ": duplicate value")
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return apperror.BadRequest(msg + ": invalid reference")
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Internal(msg, err)
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func strPtrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func decimalPtrValue(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalDecimalPtr(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func toLineItemResponse(l model.LineItem) LineItemResponse {
	var date *string
	if l.ExpectedDeliveryDate != nil {
		d := l.ExpectedDeliveryDate.Format(dateLayout)
		date = &d
	}
	return LineItemResponse{
		ID:                   l.ID,
		POID:                 l.POID,
		ProductCode:          l.ProductCode,
		ProductName:          l.ProductName,
		Quantity:             l.Quantity,
		GSTPercent:           l.GSTPercent,
		Price:                l.Price,
		MRP:                  l.MRP,
		LinePriority:         l.LinePriority,
		ExpectedDeliveryDate: date,
		Status:               l.Status,
		DesignCode:           l.DesignCode,
		CombinationCode:      l.CombinationCode,
		Style:                l.Style,
		SubStyle:             l.SubStyle,
		Region:               l.Region,
		Color:                l.Color,
		SubColor:             l.SubColor,
		Polish:               l.Polish,
		Size:                 l.Size,
		Weight:               l.Weight,
		ReceivedQty:          l.ReceivedQty,
		Category:             l.Category,
	}
}

func toPOResponse(po model.PurchaseOrder) POResponse {
	items := make([]LineItemResponse, 0, len(po.LineItems))
	for _, l := range po.LineItems {
		items = append(items, toLineItemResponse(l))
	}

	res := POResponse{
		ID:             po.ID,
		PONumber:       po.PONumber,
		PODate:         po.PODate.Format(dateLayout),
		Priority:       po.Priority,
		Type:           po.Type,
		VendorID:       po.VendorID,
		Status:         po.Status,
		ERPReferenceID: po.ERPReferenceID,
		ClosureStatus:  po.ClosureStatus,
		ClosedAmount:   po.ClosedAmount,
		LineItems:      items,
		CreatedAt:      po.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      po.UpdatedAt.Format(time.RFC3339),
	}
	if po.Vendor != nil {
		res.VendorName = po.Vendor.Name
	}
	return res
}
