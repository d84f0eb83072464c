package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"vendorhub/internal/model"
	"vendorhub/internal/repository"
	"vendorhub/pkg/apperror"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// VendorCodePrefix is the prefix for sequential vendor codes (VEN_00001, ...).
const VendorCodePrefix = "VEN"

// --- DTOs ---

type SignupRequest struct {
	VendorName      string `json:"vendor_name" binding:"required"`
	ContactPerson   string `json:"contact_person" binding:"required"`
	ContactEmail    string `json:"contact_email" binding:"required"`
	ContactPhone    string `json:"contact_phone"`
	Address         string `json:"address"`
	GSTNumber       string `json:"gst_number"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type UpdateVendorRequest struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contact_person"`
	ContactEmail  *string `json:"contact_email"`
	ContactPhone  *string `json:"contact_phone"`
	Address       *string `json:"address"`
	GSTNumber     *string `json:"gst_number"`
}

// ERPVendorUpsertRequest is the machine-caller payload. When VendorID is set
// the vendor is updated, otherwise created as already-active ERP stock.
type ERPVendorUpsertRequest struct {
	VendorID      string `json:"vendor_id"`
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	ContactEmail  string `json:"contact_email"`
	ContactPhone  string `json:"contact_phone"`
	Address       string `json:"address"`
	GSTNumber     string `json:"gst_number"`
}

type VendorResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Code          *string   `json:"code"`
	ContactPerson string    `json:"contact_person"`
	ContactEmail  string    `json:"contact_email"`
	ContactPhone  string    `json:"contact_phone"`
	Address       string    `json:"address"`
	GSTNumber     string    `json:"gst_number"`
	IsActive      bool      `json:"is_active"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// --- Interface ---

type VendorService interface {
	Signup(ctx context.Context, req SignupRequest) (VendorResponse, error)
	Approve(ctx context.Context, id string) (VendorResponse, error)
	Reject(ctx context.Context, id string) (VendorResponse, error)
	Get(ctx context.Context, id string) (VendorResponse, error)
	List(ctx context.Context, status, search string, page, limit int) ([]VendorResponse, int64, error)
	Update(ctx context.Context, id string, req UpdateVendorRequest) (VendorResponse, error)
	UpsertFromERP(ctx context.Context, req ERPVendorUpsertRequest) (VendorResponse, error)
}

type vendorService struct {
	vendorRepo repository.VendorRepository
	userRepo   repository.UserRepository
	txManager  repository.TransactionManager
}

func NewVendorService(
	vendorRepo repository.VendorRepository,
	userRepo repository.UserRepository,
	txManager repository.TransactionManager,
) VendorService {
	return &vendorService{vendorRepo: vendorRepo, userRepo: userRepo, txManager: txManager}
}

// --- Implementation ---

func (s *vendorService) Signup(ctx context.Context, req SignupRequest) (VendorResponse, error) {
	if req.Password != req.ConfirmPassword {
		return VendorResponse{}, apperror.BadRequest("passwords do not match")
	}
	if len(req.Password) < 6 {
		return VendorResponse{}, apperror.BadRequest("password must be at least 6 characters")
	}
	if _, err := mail.ParseAddress(req.ContactEmail); err != nil {
		return VendorResponse{}, apperror.BadRequest("invalid email format")
	}

	if _, err := s.userRepo.FindByEmail(ctx, req.ContactEmail); err == nil {
		return VendorResponse{}, apperror.BadRequest("email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return VendorResponse{}, apperror.Internal("failed to check email", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return VendorResponse{}, apperror.Internal("failed to hash password", err)
	}

	vendor := &model.Vendor{
		Name:          req.VendorName,
		ContactPerson: req.ContactPerson,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Address:       req.Address,
		GSTNumber:     req.GSTNumber,
		IsActive:      false,
		Status:        model.VendorPendingApproval,
	}

	// Vendor and its first user are one logical unit: either both rows land
	// or neither does.
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.vendorRepo.Create(txCtx, vendor); err != nil {
			return apperror.Internal("failed to create vendor", err)
		}
		user := &model.User{
			Name:     req.ContactPerson,
			Email:    req.ContactEmail,
			Password: string(hashed),
			Role:     model.RoleVendor,
			VendorID: &vendor.ID,
			IsActive: false,
		}
		if err := s.userRepo.Create(txCtx, user); err != nil {
			return translateStoreError(err, "failed to create vendor user")
		}
		return nil
	})
	if err != nil {
		return VendorResponse{}, err
	}

	return toVendorResponse(*vendor), nil
}

func (s *vendorService) Approve(ctx context.Context, id string) (VendorResponse, error) {
	vendorID, err := uuid.Parse(id)
	if err != nil {
		return VendorResponse{}, apperror.BadRequest("invalid vendor ID")
	}

	var vendor *model.Vendor
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vendor, err = s.vendorRepo.FindByID(txCtx, vendorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("vendor not found")
			}
			return apperror.Internal("failed to fetch vendor", err)
		}
		if vendor.Status == model.VendorActive {
			return apperror.Conflict("Vendor is already approved")
		}

		code, err := s.nextVendorCode(txCtx)
		if err != nil {
			return apperror.Internal("failed to generate vendor code", err)
		}

		vendor.Status = model.VendorActive
		vendor.IsActive = true
		vendor.Code = &code
		if err := s.vendorRepo.Update(txCtx, vendor); err != nil {
			return apperror.Internal("failed to update vendor", err)
		}

		// Cascade: every user bound to this vendor can now authenticate.
		if err := s.userRepo.SetActiveByVendorID(txCtx, vendor.ID, true); err != nil {
			return apperror.Internal("failed to activate vendor users", err)
		}
		return nil
	})
	if err != nil {
		return VendorResponse{}, err
	}

	return toVendorResponse(*vendor), nil
}

func (s *vendorService) Reject(ctx context.Context, id string) (VendorResponse, error) {
	vendorID, err := uuid.Parse(id)
	if err != nil {
		return VendorResponse{}, apperror.BadRequest("invalid vendor ID")
	}

	var vendor *model.Vendor
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vendor, err = s.vendorRepo.FindByID(txCtx, vendorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("vendor not found")
			}
			return apperror.Internal("failed to fetch vendor", err)
		}

		vendor.Status = model.VendorRejected
		vendor.IsActive = false
		if err := s.vendorRepo.Update(txCtx, vendor); err != nil {
			return apperror.Internal("failed to update vendor", err)
		}

		if err := s.userRepo.SetActiveByVendorID(txCtx, vendor.ID, false); err != nil {
			return apperror.Internal("failed to deactivate vendor users", err)
		}
		return nil
	})
	if err != nil {
		return VendorResponse{}, err
	}

	return toVendorResponse(*vendor), nil
}

func (s *vendorService) Get(ctx context.Context, id string) (VendorResponse, error) {
	vendorID, err := uuid.Parse(id)
	if err != nil {
		return VendorResponse{}, apperror.BadRequest("invalid vendor ID")
	}
	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VendorResponse{}, apperror.NotFound("vendor not found")
		}
		return VendorResponse{}, apperror.Internal("failed to fetch vendor", err)
	}
	return toVendorResponse(*vendor), nil
}

func (s *vendorService) List(ctx context.Context, status, search string, page, limit int) ([]VendorResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	vendors, total, err := s.vendorRepo.List(ctx, status, search, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal("failed to fetch vendors", err)
	}

	res := make([]VendorResponse, 0, len(vendors))
	for _, v := range vendors {
		res = append(res, toVendorResponse(v))
	}
	return res, total, nil
}

func (s *vendorService) Update(ctx context.Context, id string, req UpdateVendorRequest) (VendorResponse, error) {
	vendorID, err := uuid.Parse(id)
	if err != nil {
		return VendorResponse{}, apperror.BadRequest("invalid vendor ID")
	}
	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VendorResponse{}, apperror.NotFound("vendor not found")
		}
		return VendorResponse{}, apperror.Internal("failed to fetch vendor", err)
	}

	if req.Name != nil {
		if *req.Name == "" {
			return VendorResponse{}, apperror.BadRequest("name cannot be empty")
		}
		vendor.Name = *req.Name
	}
	if req.ContactEmail != nil && *req.ContactEmail != "" {
		if _, err := mail.ParseAddress(*req.ContactEmail); err != nil {
			return VendorResponse{}, apperror.BadRequest("invalid email format")
		}
		vendor.ContactEmail = *req.ContactEmail
	}
	if req.ContactPerson != nil {
		vendor.ContactPerson = *req.ContactPerson
	}
	if req.ContactPhone != nil {
		vendor.ContactPhone = *req.ContactPhone
	}
	if req.Address != nil {
		vendor.Address = *req.Address
	}
	if req.GSTNumber != nil {
		vendor.GSTNumber = *req.GSTNumber
	}

	if err := s.vendorRepo.Update(ctx, vendor); err != nil {
		return VendorResponse{}, apperror.Internal("failed to update vendor", err)
	}
	return toVendorResponse(*vendor), nil
}

func (s *vendorService) UpsertFromERP(ctx context.Context, req ERPVendorUpsertRequest) (VendorResponse, error) {
	if req.VendorID != "" {
		vendorID, err := uuid.Parse(req.VendorID)
		if err != nil {
			return VendorResponse{}, apperror.BadRequest("invalid vendor ID")
		}
		vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return VendorResponse{}, apperror.NotFound("vendor not found")
			}
			return VendorResponse{}, apperror.Internal("failed to fetch vendor", err)
		}

		vendor.Name = req.Name
		vendor.ContactPerson = req.ContactPerson
		vendor.ContactEmail = req.ContactEmail
		vendor.ContactPhone = req.ContactPhone
		vendor.Address = req.Address
		vendor.GSTNumber = req.GSTNumber
		if err := s.vendorRepo.Update(ctx, vendor); err != nil {
			return VendorResponse{}, apperror.Internal("failed to update vendor", err)
		}
		return toVendorResponse(*vendor), nil
	}

	// ERP-originated vendors arrive pre-vetted: active with a code assigned
	// immediately.
	var vendor *model.Vendor
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		code, err := s.nextVendorCode(txCtx)
		if err != nil {
			return apperror.Internal("failed to generate vendor code", err)
		}
		vendor = &model.Vendor{
			Name:          req.Name,
			Code:          &code,
			ContactPerson: req.ContactPerson,
			ContactEmail:  req.ContactEmail,
			ContactPhone:  req.ContactPhone,
			Address:       req.Address,
			GSTNumber:     req.GSTNumber,
			IsActive:      true,
			Status:        model.VendorActive,
		}
		if err := s.vendorRepo.Create(txCtx, vendor); err != nil {
			return translateStoreError(err, "failed to create vendor")
		}
		return nil
	})
	if err != nil {
		return VendorResponse{}, err
	}

	return toVendorResponse(*vendor), nil
}

// nextVendorCode generates the next sequential code (VEN_00001, VEN_00002...).
// Codes are zero-padded to 5 digits, so the lexical max is the numeric max.
func (s *vendorService) nextVendorCode(ctx context.Context) (string, error) {
	prefix := VendorCodePrefix + "_"

	if err := s.vendorRepo.LockCodePrefix(ctx, prefix); err != nil {
		return "", err
	}

	maxCode, err := s.vendorRepo.MaxCodeWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	next := 1
	if maxCode != "" {
		trailing := strings.TrimPrefix(maxCode, prefix)
		if n, err := strconv.Atoi(trailing); err == nil {
			next = n + 1
		}
	}

	return fmt.Sprintf("%s%05d", prefix, next), nil
}

// --- Response mappers ---

func toVendorResponse(v model.Vendor) VendorResponse {
	return VendorResponse{
		ID:            v.ID,
		Name:          v.Name,
		Code:          v.Code,
		ContactPerson: v.ContactPerson,
		ContactEmail:  v.ContactEmail,
		ContactPhone:  v.ContactPhone,
		Address:       v.Address,
		GSTNumber:     v.GSTNumber,
		IsActive:      v.IsActive,
		Status:        v.Status,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}
