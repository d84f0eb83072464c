package service

import (
	"context"
	"fmt"
	"testing"

	"vendorhub/internal/model"
	"vendorhub/internal/repository"
	"vendorhub/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newPOServiceForTest(db *gorm.DB) POService {
	return NewPOService(
		repository.NewPORepository(db),
		repository.NewVendorRepository(db),
		repository.NewHistoryRepository(db),
		repository.NewTransactionManager(db),
		nil,
	)
}

func createPORequest(vendorID uuid.UUID, poNumber string, itemCount int) CreatePORequest {
	items := make([]LineItemPayload, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		items = append(items, LineItemPayload{
			ProductCode: fmt.Sprintf("PRD-%03d", i+1),
			ProductName: fmt.Sprintf("Product %d", i+1),
			Quantity:    10,
			GSTPercent:  decimal.NewFromInt(18),
			Price:       decimal.NewFromInt(250),
			MRP:         decimal.NewFromInt(300),
		})
	}
	return CreatePORequest{
		PONumber:  poNumber,
		PODate:    "2026-08-01",
		Priority:  model.PriorityHigh,
		Type:      model.POTypeNewItems,
		VendorID:  vendorID.String(),
		LineItems: items,
	}
}

func mustCreatePO(t *testing.T, svc POService, vendorID uuid.UUID, poNumber string, itemCount int) POResponse {
	t.Helper()
	po, err := svc.Create(context.Background(), createPORequest(vendorID, poNumber, itemCount))
	if err != nil {
		t.Fatalf("failed to create PO: %v", err)
	}
	return po
}

func TestCreatePO(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)

	po := mustCreatePO(t, svc, vendor.ID, "PO-1001", 2)

	if po.Status != model.StatusCreated {
		t.Errorf("expected PO status CREATED, got %s", po.Status)
	}
	if len(po.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(po.LineItems))
	}
	for _, item := range po.LineItems {
		if item.Status != model.StatusCreated {
			t.Errorf("expected line item status CREATED, got %s", item.Status)
		}
		if item.LinePriority != model.PriorityHigh {
			t.Errorf("expected line priority inherited from PO, got %s", item.LinePriority)
		}
	}

	// Creation writes no history rows.
	var poHistCount, itemHistCount int64
	db.Model(&model.POHistory{}).Count(&poHistCount)
	db.Model(&model.LineItemHistory{}).Count(&itemHistCount)
	if poHistCount != 0 || itemHistCount != 0 {
		t.Errorf("expected no history on creation, got %d PO rows, %d item rows", poHistCount, itemHistCount)
	}
}

func TestCreatePODuplicateNumber(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)

	mustCreatePO(t, svc, vendor.ID, "PO-2001", 1)

	_, err := svc.Create(context.Background(), createPORequest(vendor.ID, "PO-2001", 1))
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("expected conflict for duplicate PO number, got %v", err)
	}
}

func TestCreatePOValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)

	empty := createPORequest(vendor.ID, "PO-3001", 1)
	empty.LineItems = nil
	if _, err := svc.Create(context.Background(), empty); apperror.KindOf(err) != apperror.KindBadRequest {
		t.Errorf("expected bad request for empty line items, got %v", err)
	}

	badPriority := createPORequest(vendor.ID, "PO-3002", 1)
	badPriority.Priority = "CRITICAL"
	if _, err := svc.Create(context.Background(), badPriority); apperror.KindOf(err) != apperror.KindBadRequest {
		t.Errorf("expected bad request for unknown priority, got %v", err)
	}

	missingVendor := createPORequest(uuid.New(), "PO-3003", 1)
	if _, err := svc.Create(context.Background(), missingVendor); apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("expected not found for missing vendor, got %v", err)
	}
}

func TestAcceptPO(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-4001", 2)
	actor := vendorActor(vendor.ID)

	req := AcceptPORequest{
		LineItems: []AcceptLineItemUpdate{
			{LineItemID: po.LineItems[0].ID.String(), ExpectedDeliveryDate: "2026-09-15"},
			{LineItemID: po.LineItems[1].ID.String(), ExpectedDeliveryDate: "2026-09-20"},
		},
	}

	accepted, err := svc.Accept(context.Background(), po.ID.String(), req, actor)
	if err != nil {
		t.Fatalf("failed to accept PO: %v", err)
	}
	if accepted.Status != model.StatusAccepted {
		t.Errorf("expected PO status ACCEPTED, got %s", accepted.Status)
	}
	for _, item := range accepted.LineItems {
		if item.Status != model.StatusAccepted {
			t.Errorf("expected line item status ACCEPTED, got %s", item.Status)
		}
		if item.ExpectedDeliveryDate == nil {
			t.Errorf("expected delivery date set on line item %s", item.ID)
		}
	}

	// Two rows per item (status + date) plus one PO-level status row.
	var itemHistCount, poHistCount int64
	db.Model(&model.LineItemHistory{}).Where("action_type = ?", model.ActionAcceptance).Count(&itemHistCount)
	db.Model(&model.POHistory{}).Where("action_type = ?", model.ActionAcceptance).Count(&poHistCount)
	if itemHistCount != 4 {
		t.Errorf("expected 4 line item history rows, got %d", itemHistCount)
	}
	if poHistCount != 1 {
		t.Errorf("expected 1 PO history row, got %d", poHistCount)
	}
}

func TestAcceptPOOnlyFromCreated(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-4002", 1)
	actor := vendorActor(vendor.ID)

	req := AcceptPORequest{
		LineItems: []AcceptLineItemUpdate{
			{LineItemID: po.LineItems[0].ID.String(), ExpectedDeliveryDate: "2026-09-15"},
		},
	}
	if _, err := svc.Accept(context.Background(), po.ID.String(), req, actor); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}

	_, err := svc.Accept(context.Background(), po.ID.String(), req, actor)
	if apperror.KindOf(err) != apperror.KindBadRequest {
		t.Fatalf("expected bad request accepting a non-CREATED PO, got %v", err)
	}
}

func TestAcceptPOWrongVendor(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	other := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-4003", 1)

	req := AcceptPORequest{
		LineItems: []AcceptLineItemUpdate{
			{LineItemID: po.LineItems[0].ID.String(), ExpectedDeliveryDate: "2026-09-15"},
		},
	}
	_, err := svc.Accept(context.Background(), po.ID.String(), req, vendorActor(other.ID))
	if apperror.KindOf(err) != apperror.KindForbidden {
		t.Fatalf("expected forbidden for foreign vendor accept, got %v", err)
	}
}

func TestAcceptPOCrossPOLineItem(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po1 := mustCreatePO(t, svc, vendor.ID, "PO-4004", 1)
	po2 := mustCreatePO(t, svc, vendor.ID, "PO-4005", 1)

	req := AcceptPORequest{
		LineItems: []AcceptLineItemUpdate{
			{LineItemID: po2.LineItems[0].ID.String(), ExpectedDeliveryDate: "2026-09-15"},
		},
	}
	_, err := svc.Accept(context.Background(), po1.ID.String(), req, vendorActor(vendor.ID))
	if apperror.KindOf(err) != apperror.KindBadRequest {
		t.Fatalf("expected bad request for line item from another PO, got %v", err)
	}

	// Failed accept must leave the PO untouched.
	got, err := svc.Get(context.Background(), po1.ID.String(), adminActor())
	if err != nil {
		t.Fatalf("failed to reload PO: %v", err)
	}
	if got.Status != model.StatusCreated {
		t.Errorf("expected PO still CREATED after failed accept, got %s", got.Status)
	}
}

func TestAcceptPOMissingDate(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-4006", 2)
	actor := vendorActor(vendor.ID)

	req := AcceptPORequest{
		LineItems: []AcceptLineItemUpdate{
			{LineItemID: po.LineItems[0].ID.String(), ExpectedDeliveryDate: "2026-09-15"},
			{LineItemID: po.LineItems[1].ID.String(), ExpectedDeliveryDate: ""},
		},
	}
	_, err := svc.Accept(context.Background(), po.ID.String(), req, actor)
	if apperror.KindOf(err) != apperror.KindBadRequest {
		t.Fatalf("expected bad request for missing delivery date, got %v", err)
	}

	// The malformed payload must fail before any write.
	got, err := svc.Get(context.Background(), po.ID.String(), adminActor())
	if err != nil {
		t.Fatalf("failed to reload PO: %v", err)
	}
	if got.Status != model.StatusCreated {
		t.Errorf("expected PO still CREATED, got %s", got.Status)
	}
	for _, item := range got.LineItems {
		if item.Status != model.StatusCreated || item.ExpectedDeliveryDate != nil {
			t.Errorf("expected untouched line item, got status=%s date=%v", item.Status, item.ExpectedDeliveryDate)
		}
	}
}

func TestLineItemStatusNoRegression(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-5001", 1)
	actor := adminActor()
	itemID := po.LineItems[0].ID.String()

	if _, err := svc.UpdateLineItemStatus(context.Background(), po.ID.String(), itemID, model.StatusPlanned, actor); err != nil {
		t.Fatalf("forward move failed: %v", err)
	}

	_, err := svc.UpdateLineItemStatus(context.Background(), po.ID.String(), itemID, model.StatusAccepted, actor)
	if apperror.KindOf(err) != apperror.KindBadRequest {
		t.Fatalf("expected bad request for status regression, got %v", err)
	}
}

func TestLineItemStatusForwardSkip(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-5002", 1)

	// CREATED straight to DELIVERED is a legal forward skip.
	res, err := svc.UpdateLineItemStatus(context.Background(), po.ID.String(), po.LineItems[0].ID.String(), model.StatusDelivered, adminActor())
	if err != nil {
		t.Fatalf("forward skip failed: %v", err)
	}
	if res.LineItems[0].Status != model.StatusDelivered {
		t.Errorf("expected line item DELIVERED, got %s", res.LineItems[0].Status)
	}
}

func TestLineItemStatusNoOpWritesNoHistory(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-5003", 1)

	if _, err := svc.UpdateLineItemStatus(context.Background(), po.ID.String(), po.LineItems[0].ID.String(), model.StatusCreated, adminActor()); err != nil {
		t.Fatalf("same-status update failed: %v", err)
	}

	var count int64
	db.Model(&model.LineItemHistory{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no history for a no-op status update, got %d rows", count)
	}
}

func TestUpdateLineItemStatusWrongVendor(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	other := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-5004", 1)
	itemID := po.LineItems[0].ID.String()

	_, err := svc.UpdateLineItemStatus(context.Background(), po.ID.String(), itemID, model.StatusDelivered, vendorActor(other.ID))
	if apperror.KindOf(err) != apperror.KindForbidden {
		t.Fatalf("expected forbidden for foreign vendor status update, got %v", err)
	}

	// The foreign write must not have landed, nor triggered the rollup.
	got, err := svc.Get(context.Background(), po.ID.String(), adminActor())
	if err != nil {
		t.Fatalf("failed to reload PO: %v", err)
	}
	if got.Status != model.StatusCreated || got.LineItems[0].Status != model.StatusCreated {
		t.Errorf("expected untouched PO, got po=%s item=%s", got.Status, got.LineItems[0].Status)
	}

	// The owning vendor still can.
	res, err := svc.UpdateLineItemStatus(context.Background(), po.ID.String(), itemID, model.StatusAccepted, vendorActor(vendor.ID))
	if err != nil {
		t.Fatalf("owner status update failed: %v", err)
	}
	if res.LineItems[0].Status != model.StatusAccepted {
		t.Errorf("expected ACCEPTED for owner update, got %s", res.LineItems[0].Status)
	}
}

func TestUpdateLineItemExpectedDateWrongVendor(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	other := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-5005", 1)
	itemID := po.LineItems[0].ID.String()

	_, err := svc.UpdateLineItemExpectedDate(context.Background(), po.ID.String(), itemID, "2026-10-01", vendorActor(other.ID))
	if apperror.KindOf(err) != apperror.KindForbidden {
		t.Fatalf("expected forbidden for foreign vendor date update, got %v", err)
	}

	got, err := svc.Get(context.Background(), po.ID.String(), adminActor())
	if err != nil {
		t.Fatalf("failed to reload PO: %v", err)
	}
	if got.LineItems[0].ExpectedDeliveryDate != nil {
		t.Errorf("expected no delivery date set, got %v", *got.LineItems[0].ExpectedDeliveryDate)
	}

	if _, err := svc.UpdateLineItemExpectedDate(context.Background(), po.ID.String(), itemID, "2026-10-01", vendorActor(vendor.ID)); err != nil {
		t.Fatalf("owner date update failed: %v", err)
	}
}

func TestPODeliveredRollup(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-6001", 2)
	actor := adminActor()

	res, err := svc.UpdateLineItemStatus(context.Background(), po.ID.String(), po.LineItems[0].ID.String(), model.StatusDelivered, actor)
	if err != nil {
		t.Fatalf("failed to deliver first item: %v", err)
	}
	if res.Status == model.StatusDelivered {
		t.Fatal("PO must not be DELIVERED while an item is outstanding")
	}

	res, err = svc.UpdateLineItemStatus(context.Background(), po.ID.String(), po.LineItems[1].ID.String(), model.StatusDelivered, actor)
	if err != nil {
		t.Fatalf("failed to deliver second item: %v", err)
	}
	if res.Status != model.StatusDelivered {
		t.Fatalf("expected PO DELIVERED after all items delivered, got %s", res.Status)
	}

	// Rollup writes its own PO-level status history row.
	var count int64
	db.Model(&model.POHistory{}).
		Where("po_id = ? AND field_name = ? AND new_value = ?", po.ID, "status", model.StatusDelivered).
		Count(&count)
	if count != 1 {
		t.Errorf("expected 1 rollup history row, got %d", count)
	}
}

func TestOverrideStatusAllowsRegression(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-7001", 1)
	actor := adminActor()

	if _, err := svc.OverrideStatus(context.Background(), po.ID.String(), model.StatusDelivered, actor); err != nil {
		t.Fatalf("override to DELIVERED failed: %v", err)
	}

	res, err := svc.OverrideStatus(context.Background(), po.ID.String(), model.StatusCreated, actor)
	if err != nil {
		t.Fatalf("override regression failed: %v", err)
	}
	if res.Status != model.StatusCreated {
		t.Errorf("expected PO back to CREATED, got %s", res.Status)
	}

	var count int64
	db.Model(&model.POHistory{}).Where("action_type = ?", model.ActionStatusChange).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 status change history rows, got %d", count)
	}
}

func TestUpdatePriorityDeliveredGuard(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-8001", 1)
	actor := adminActor()

	res, err := svc.UpdatePriority(context.Background(), po.ID.String(), model.PriorityUrgent, actor)
	if err != nil {
		t.Fatalf("priority update failed: %v", err)
	}
	if res.Priority != model.PriorityUrgent {
		t.Errorf("expected priority URGENT, got %s", res.Priority)
	}

	if _, err := svc.OverrideStatus(context.Background(), po.ID.String(), model.StatusDelivered, actor); err != nil {
		t.Fatalf("override failed: %v", err)
	}

	_, err = svc.UpdatePriority(context.Background(), po.ID.String(), model.PriorityLow, actor)
	if apperror.KindOf(err) != apperror.KindBadRequest {
		t.Fatalf("expected bad request updating priority of delivered PO, got %v", err)
	}
}

func TestUpdateLineItemExpectedDateDeliveredGuard(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-8002", 1)
	actor := adminActor()
	itemID := po.LineItems[0].ID.String()

	res, err := svc.UpdateLineItemExpectedDate(context.Background(), po.ID.String(), itemID, "2026-10-01", actor)
	if err != nil {
		t.Fatalf("expected date update failed: %v", err)
	}
	if res.LineItems[0].ExpectedDeliveryDate == nil || *res.LineItems[0].ExpectedDeliveryDate != "2026-10-01" {
		t.Errorf("expected delivery date 2026-10-01, got %v", res.LineItems[0].ExpectedDeliveryDate)
	}

	if _, err := svc.UpdateLineItemStatus(context.Background(), po.ID.String(), itemID, model.StatusDelivered, actor); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	_, err = svc.UpdateLineItemExpectedDate(context.Background(), po.ID.String(), itemID, "2026-11-01", actor)
	if apperror.KindOf(err) != apperror.KindBadRequest {
		t.Fatalf("expected bad request for delivered line item date update, got %v", err)
	}
}

func TestUpdateClosureHistoryPerChangedField(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-9001", 1)
	actor := adminActor()

	status := "CLOSED"
	amount := decimal.NewFromInt(12500)
	if _, err := svc.UpdateClosure(context.Background(), po.ID.String(), ClosureRequest{
		ClosureStatus: &status,
		ClosedAmount:  &amount,
	}, actor); err != nil {
		t.Fatalf("closure update failed: %v", err)
	}

	var count int64
	db.Model(&model.POHistory{}).Where("action_type = ?", model.ActionClosureChange).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 closure history rows for 2 changed fields, got %d", count)
	}

	// Same payload again: nothing changed, nothing recorded.
	if _, err := svc.UpdateClosure(context.Background(), po.ID.String(), ClosureRequest{
		ClosureStatus: &status,
		ClosedAmount:  &amount,
	}, actor); err != nil {
		t.Fatalf("repeat closure update failed: %v", err)
	}
	db.Model(&model.POHistory{}).Where("action_type = ?", model.ActionClosureChange).Count(&count)
	if count != 2 {
		t.Errorf("expected no new closure history rows, got %d total", count)
	}
}

func TestUpdateClosureNegativeAmount(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-9002", 1)

	amount := decimal.NewFromInt(-1)
	_, err := svc.UpdateClosure(context.Background(), po.ID.String(), ClosureRequest{ClosedAmount: &amount}, adminActor())
	if apperror.KindOf(err) != apperror.KindBadRequest {
		t.Fatalf("expected bad request for negative closed amount, got %v", err)
	}
}

func TestGetPOOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	other := seedVendor(t, db, model.VendorActive)
	po := mustCreatePO(t, svc, vendor.ID, "PO-A001", 1)

	if _, err := svc.Get(context.Background(), po.ID.String(), vendorActor(vendor.ID)); err != nil {
		t.Errorf("owner read failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), po.ID.String(), adminActor()); err != nil {
		t.Errorf("admin read failed: %v", err)
	}
	_, err := svc.Get(context.Background(), po.ID.String(), vendorActor(other.ID))
	if apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("expected forbidden for foreign vendor read, got %v", err)
	}
}

func TestListPOVendorScoping(t *testing.T) {
	db := newTestDB(t)
	svc := newPOServiceForTest(db)
	vendor := seedVendor(t, db, model.VendorActive)
	other := seedVendor(t, db, model.VendorActive)
	mustCreatePO(t, svc, vendor.ID, "PO-B001", 1)
	mustCreatePO(t, svc, vendor.ID, "PO-B002", 1)
	mustCreatePO(t, svc, other.ID, "PO-B003", 1)

	mine, total, err := svc.List(context.Background(), POFilterRequest{}, vendorActor(vendor.ID))
	if err != nil {
		t.Fatalf("vendor list failed: %v", err)
	}
	if total != 2 || len(mine) != 2 {
		t.Errorf("expected vendor to see 2 POs, got %d (total %d)", len(mine), total)
	}
	for _, po := range mine {
		if po.VendorID != vendor.ID {
			t.Errorf("vendor list leaked PO of vendor %s", po.VendorID)
		}
	}

	all, total, err := svc.List(context.Background(), POFilterRequest{}, adminActor())
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("expected admin to see 3 POs, got %d (total %d)", len(all), total)
	}
}
