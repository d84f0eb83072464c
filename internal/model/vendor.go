package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VendorStatus enum constants
const (
	VendorPendingApproval = "PENDING_APPROVAL"
	VendorActive          = "ACTIVE"
	VendorRejected        = "REJECTED"
)

// Vendor represents a supplier business entity. A vendor starts in
// PENDING_APPROVAL with no code; the code is assigned only on approval.
type Vendor struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Code          *string         `gorm:"type:varchar(20);uniqueIndex" json:"code"` // nil until status = ACTIVE
	ContactPerson string          `gorm:"type:varchar(255)" json:"contact_person"`
	ContactEmail  string          `gorm:"type:varchar(255)" json:"contact_email"`
	ContactPhone  string          `gorm:"type:varchar(50)" json:"contact_phone"`
	Address       string          `gorm:"type:text" json:"address"`
	GSTNumber     string          `gorm:"type:varchar(50)" json:"gst_number"`
	IsActive      bool            `gorm:"default:false" json:"is_active"`
	Status        string          `gorm:"type:varchar(30);not null;index" json:"status"` // PENDING_APPROVAL, ACTIVE, REJECTED
	Users         []User          `gorm:"foreignKey:VendorID" json:"-"`
	PurchaseOrders []PurchaseOrder `gorm:"foreignKey:VendorID" json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
