package service

import (
	"context"
	"testing"

	"vendorhub/internal/model"
	"vendorhub/internal/repository"
	"vendorhub/pkg/apperror"

	"gorm.io/gorm"
)

func newVendorServiceForTest(db *gorm.DB) VendorService {
	return NewVendorService(
		repository.NewVendorRepository(db),
		repository.NewUserRepository(db),
		repository.NewTransactionManager(db),
	)
}

func signupRequest(name, email string) SignupRequest {
	return SignupRequest{
		VendorName:      name,
		ContactPerson:   "Priya Shah",
		ContactEmail:    email,
		ContactPhone:    "+91-9800000001",
		Address:         "14 Industrial Estate",
		GSTNumber:       "27AAAAA0000A1Z5",
		Password:        "s3cret-pass",
		ConfirmPassword: "s3cret-pass",
	}
}

func TestSignupCreatesPendingVendorAndInactiveUser(t *testing.T) {
	db := newTestDB(t)
	svc := newVendorServiceForTest(db)

	vendor, err := svc.Signup(context.Background(), signupRequest("Lotus Crafts", "lotus@example.com"))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	if vendor.Status != model.VendorPendingApproval {
		t.Errorf("expected status PENDING_APPROVAL, got %s", vendor.Status)
	}
	if vendor.IsActive {
		t.Error("expected vendor inactive after signup")
	}
	if vendor.Code != nil {
		t.Errorf("expected no code before approval, got %s", *vendor.Code)
	}

	var user model.User
	if err := db.First(&user, "email = ?", "lotus@example.com").Error; err != nil {
		t.Fatalf("expected vendor user created: %v", err)
	}
	if user.IsActive {
		t.Error("expected vendor user inactive after signup")
	}
	if user.Role != model.RoleVendor {
		t.Errorf("expected VENDOR role, got %s", user.Role)
	}
	if user.VendorID == nil || *user.VendorID != vendor.ID {
		t.Error("expected user bound to the new vendor")
	}
}

func TestSignupValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newVendorServiceForTest(db)
	ctx := context.Background()

	mismatch := signupRequest("A", "a@example.com")
	mismatch.ConfirmPassword = "different"
	if _, err := svc.Signup(ctx, mismatch); apperror.KindOf(err) != apperror.KindBadRequest {
		t.Errorf("expected bad request for password mismatch, got %v", err)
	}

	short := signupRequest("B", "b@example.com")
	short.Password = "abc"
	short.ConfirmPassword = "abc"
	if _, err := svc.Signup(ctx, short); apperror.KindOf(err) != apperror.KindBadRequest {
		t.Errorf("expected bad request for short password, got %v", err)
	}

	badEmail := signupRequest("C", "not-an-email")
	if _, err := svc.Signup(ctx, badEmail); apperror.KindOf(err) != apperror.KindBadRequest {
		t.Errorf("expected bad request for invalid email, got %v", err)
	}

	if _, err := svc.Signup(ctx, signupRequest("D", "d@example.com")); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := svc.Signup(ctx, signupRequest("E", "d@example.com")); apperror.KindOf(err) != apperror.KindBadRequest {
		t.Errorf("expected bad request for already registered email, got %v", err)
	}
}

func TestApproveAssignsSequentialCodes(t *testing.T) {
	db := newTestDB(t)
	svc := newVendorServiceForTest(db)
	ctx := context.Background()

	first, err := svc.Signup(ctx, signupRequest("First Vendor", "first@example.com"))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	second, err := svc.Signup(ctx, signupRequest("Second Vendor", "second@example.com"))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	approved, err := svc.Approve(ctx, first.ID.String())
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Code == nil || *approved.Code != "VEN_00001" {
		t.Errorf("expected code VEN_00001, got %v", approved.Code)
	}
	if approved.Status != model.VendorActive || !approved.IsActive {
		t.Errorf("expected active vendor, got status=%s active=%v", approved.Status, approved.IsActive)
	}

	approved, err = svc.Approve(ctx, second.ID.String())
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Code == nil || *approved.Code != "VEN_00002" {
		t.Errorf("expected code VEN_00002, got %v", approved.Code)
	}

	// Approval cascades activation to the vendor's users.
	var user model.User
	if err := db.First(&user, "email = ?", "first@example.com").Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if !user.IsActive {
		t.Error("expected vendor user activated on approval")
	}
}

func TestApproveTwiceConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := newVendorServiceForTest(db)
	ctx := context.Background()

	vendor, err := svc.Signup(ctx, signupRequest("Repeat Vendor", "repeat@example.com"))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := svc.Approve(ctx, vendor.ID.String()); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	_, err = svc.Approve(ctx, vendor.ID.String())
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("expected conflict for double approval, got %v", err)
	}
}

func TestRejectDeactivatesUsers(t *testing.T) {
	db := newTestDB(t)
	svc := newVendorServiceForTest(db)
	ctx := context.Background()

	vendor, err := svc.Signup(ctx, signupRequest("Reject Vendor", "reject@example.com"))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := svc.Approve(ctx, vendor.ID.String()); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	rejected, err := svc.Reject(ctx, vendor.ID.String())
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != model.VendorRejected || rejected.IsActive {
		t.Errorf("expected rejected inactive vendor, got status=%s active=%v", rejected.Status, rejected.IsActive)
	}

	var user model.User
	if err := db.First(&user, "email = ?", "reject@example.com").Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if user.IsActive {
		t.Error("expected vendor user deactivated on rejection")
	}
}

func TestRejectedVendorCanBeReApproved(t *testing.T) {
	db := newTestDB(t)
	svc := newVendorServiceForTest(db)
	ctx := context.Background()

	vendor, err := svc.Signup(ctx, signupRequest("Second Chance", "chance@example.com"))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := svc.Reject(ctx, vendor.ID.String()); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	approved, err := svc.Approve(ctx, vendor.ID.String())
	if err != nil {
		t.Fatalf("re-approval failed: %v", err)
	}
	if approved.Status != model.VendorActive {
		t.Errorf("expected ACTIVE after re-approval, got %s", approved.Status)
	}
	if approved.Code == nil {
		t.Error("expected code assigned on re-approval")
	}
}

func TestUpsertFromERPCreatesActiveVendor(t *testing.T) {
	db := newTestDB(t)
	svc := newVendorServiceForTest(db)
	ctx := context.Background()

	vendor, err := svc.UpsertFromERP(ctx, ERPVendorUpsertRequest{
		Name:         "ERP Vendor",
		ContactEmail: "erp@example.com",
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if vendor.Status != model.VendorActive || !vendor.IsActive {
		t.Errorf("expected pre-vetted active vendor, got status=%s active=%v", vendor.Status, vendor.IsActive)
	}
	if vendor.Code == nil {
		t.Fatal("expected code assigned immediately for ERP vendor")
	}

	updated, err := svc.UpsertFromERP(ctx, ERPVendorUpsertRequest{
		VendorID: vendor.ID.String(),
		Name:     "ERP Vendor Renamed",
	})
	if err != nil {
		t.Fatalf("upsert update failed: %v", err)
	}
	if updated.Name != "ERP Vendor Renamed" {
		t.Errorf("expected renamed vendor, got %s", updated.Name)
	}
}

func TestVendorListFilters(t *testing.T) {
	db := newTestDB(t)
	svc := newVendorServiceForTest(db)
	ctx := context.Background()

	pending, err := svc.Signup(ctx, signupRequest("Pending Mills", "mills@example.com"))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	active, err := svc.Signup(ctx, signupRequest("Active Looms", "looms@example.com"))
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := svc.Approve(ctx, active.ID.String()); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	got, total, err := svc.List(ctx, model.VendorPendingApproval, "", 1, 20)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID != pending.ID {
		t.Errorf("expected only the pending vendor, got %d results (total %d)", len(got), total)
	}

	got, total, err = svc.List(ctx, "", "looms", 1, 20)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID != active.ID {
		t.Errorf("expected search to match one vendor, got %d results (total %d)", len(got), total)
	}
}
