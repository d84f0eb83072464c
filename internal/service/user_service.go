package service

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"vendorhub/internal/middleware"
	"vendorhub/internal/model"
	"vendorhub/internal/repository"
	"vendorhub/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Token lifetimes differ by role: back-office sessions are kept short,
// vendor portal sessions last a full day.
const (
	adminTokenTTL  = 8 * time.Hour
	vendorTokenTTL = 24 * time.Hour
)

// --- DTOs ---

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
	VendorID string `json:"vendor_id"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	IsActive *bool   `json:"is_active"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// UserResponse returns a User without exposing the password hash
type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	VendorID  *uuid.UUID `json:"vendor_id"`
	IsActive  bool       `json:"is_active"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
}

// --- Interface ---

type UserService interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, id string) error
}

type userService struct {
	userRepo   repository.UserRepository
	vendorRepo repository.VendorRepository
}

// NewUserService returns a new instance of UserService
func NewUserService(userRepo repository.UserRepository, vendorRepo repository.VendorRepository) UserService {
	return &userService{userRepo: userRepo, vendorRepo: vendorRepo}
}

func mapToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		VendorID:  user.VendorID,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	if !user.IsActive {
		return nil, apperror.Unauthorized("account not active")
	}

	// Vendor users only authenticate once their vendor has been approved.
	if user.Role == model.RoleVendor {
		if user.VendorID == nil {
			return nil, apperror.Unauthorized("vendor account has no vendor binding")
		}
		vendor, err := s.vendorRepo.FindByID(ctx, *user.VendorID)
		if err != nil {
			return nil, apperror.Unauthorized("vendor account has no vendor binding")
		}
		if vendor.Status != model.VendorActive {
			return nil, apperror.Unauthorized("vendor account pending approval or rejected")
		}
	}

	ttl := vendorTokenTTL
	if user.Role == model.RoleAdmin {
		ttl = adminTokenTTL
	}

	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"name":  user.Name,
		"role":  string(user.Role),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	if user.VendorID != nil {
		claims["vendor_id"] = user.VendorID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(middleware.GetJWTSecret())
	if err != nil {
		return nil, apperror.Internal("failed to generate token", err)
	}

	return &TokenResponse{Token: tokenString}, nil
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	role := model.Role(req.Role)
	if !role.Valid() {
		return nil, apperror.BadRequest("role must be ADMIN or VENDOR")
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, apperror.BadRequest("invalid email format")
	}

	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, apperror.Conflict("email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Internal("failed to check email", err)
	}

	var vendorID *uuid.UUID
	if role == model.RoleVendor {
		if req.VendorID == "" {
			return nil, apperror.BadRequest("vendor_id is required for VENDOR users")
		}
		parsed, err := uuid.Parse(req.VendorID)
		if err != nil {
			return nil, apperror.BadRequest("invalid vendor ID")
		}
		if _, err := s.vendorRepo.FindByID(ctx, parsed); err != nil {
			return nil, apperror.NotFound("vendor not found")
		}
		vendorID = &parsed
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal("failed to hash password", err)
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     role,
		VendorID: vendorID,
		IsActive: true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, translateStoreError(err, "failed to create user")
	}

	return mapToUserResponse(user), nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.BadRequest("invalid user ID")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.NotFound("user not found")
	}
	return mapToUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	users, total, err := s.userRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal("failed to fetch users", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, *mapToUserResponse(&u))
	}

	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.BadRequest("invalid user ID")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.NotFound("user not found")
	}

	if req.Email != nil && *req.Email != user.Email {
		if _, err := s.userRepo.FindByEmail(ctx, *req.Email); err == nil {
			return nil, apperror.Conflict("email already exists")
		}
		user.Email = *req.Email
	}
	if req.Name != nil && *req.Name != "" {
		user.Name = *req.Name
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, translateStoreError(err, "failed to update user")
	}

	return mapToUserResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return apperror.BadRequest("invalid user ID")
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return apperror.NotFound("user not found")
	}
	return s.userRepo.Delete(ctx, userID)
}
