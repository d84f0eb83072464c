package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of user roles. Every authorization branch matches
// on these constants — there is no free-form role string anywhere.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleVendor Role = "VENDOR"
)

// Valid reports whether the role is one of the known constants.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleVendor
}

// User represents the central identity entity for logic and database structure
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"type:varchar(255);not null" json:"name"`
	Email     string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"type:varchar(255);not null" json:"-"` // Omit password hash from JSON responses
	Role      Role       `gorm:"type:varchar(20);not null" json:"role"`
	VendorID  *uuid.UUID `gorm:"type:uuid;index" json:"vendor_id"` // Required iff Role == VENDOR
	Vendor    *Vendor    `gorm:"foreignKey:VendorID;constraint:OnDelete:SET NULL" json:"-"`
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the ID app-side so the entity behaves the same on
// every dialect the repo is opened against.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
