package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Status enum shared by PurchaseOrder and LineItem. The progression is
// strictly ordered: forward moves (including skips) are legal, regressions
// are not.
const (
	StatusCreated   = "CREATED"
	StatusAccepted  = "ACCEPTED"
	StatusPlanned   = "PLANNED"
	StatusDelivered = "DELIVERED"
)

// StatusOrder is the canonical progression used for index comparison.
var StatusOrder = []string{StatusCreated, StatusAccepted, StatusPlanned, StatusDelivered}

// StatusIndex returns the position of a status in the progression, or -1 for
// an unknown status.
func StatusIndex(status string) int {
	for i, s := range StatusOrder {
		if s == status {
			return i
		}
	}
	return -1
}

// Priority enum constants, shared by PO and line-item level.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// PO type enum constants
const (
	POTypeNewItems = "NEW_ITEMS"
	POTypeRepeat   = "REPEAT"
)

// PurchaseOrder is the parent of a set of line items. Its status never
// regresses through the normal lifecycle paths; DELIVERED is derived from the
// line items, not set directly (the admin override is the one exception).
type PurchaseOrder struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	PONumber       string           `gorm:"type:varchar(100);uniqueIndex;not null" json:"po_number"`
	PODate         time.Time        `gorm:"not null" json:"po_date"`
	Priority       string           `gorm:"type:varchar(20);not null" json:"priority"`
	Type           string           `gorm:"type:varchar(20);not null" json:"type"` // NEW_ITEMS, REPEAT
	VendorID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor         *Vendor          `gorm:"foreignKey:VendorID;constraint:OnDelete:RESTRICT" json:"vendor,omitempty"`
	Status         string           `gorm:"type:varchar(20);not null;index" json:"status"`
	ERPReferenceID *string          `gorm:"type:varchar(100)" json:"erp_reference_id"`
	ClosureStatus  *string          `gorm:"type:varchar(50)" json:"closure_status"`
	ClosedAmount   *decimal.Decimal `gorm:"type:decimal(14,2)" json:"closed_amount"`
	LineItems      []LineItem       `gorm:"foreignKey:POID;constraint:OnDelete:CASCADE" json:"line_items"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (p *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// LineItem is a single product line under a purchase order. It shares the
// PO status progression and is only deleted via parent cascade.
type LineItem struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	POID                 uuid.UUID       `gorm:"type:uuid;not null;index" json:"po_id"`
	ProductCode          string          `gorm:"type:varchar(100);not null" json:"product_code"`
	ProductName          string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity             int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	GSTPercent           decimal.Decimal `gorm:"type:decimal(5,2);check:gst_percent >= 0" json:"gst_percent"`
	Price                decimal.Decimal `gorm:"type:decimal(14,2);check:price >= 0" json:"price"`
	MRP                  decimal.Decimal `gorm:"type:decimal(14,2);check:mrp >= 0" json:"mrp"`
	LinePriority         string          `gorm:"type:varchar(20);not null" json:"line_priority"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date"`
	Status               string          `gorm:"type:varchar(20);not null;index" json:"status"`

	// Descriptive attributes — carried through, no business-logic effect.
	DesignCode      *string `gorm:"type:varchar(100)" json:"design_code"`
	CombinationCode *string `gorm:"type:varchar(100)" json:"combination_code"`
	Style           *string `gorm:"type:varchar(100)" json:"style"`
	SubStyle        *string `gorm:"type:varchar(100)" json:"sub_style"`
	Region          *string `gorm:"type:varchar(100)" json:"region"`
	Color           *string `gorm:"type:varchar(100)" json:"color"`
	SubColor        *string `gorm:"type:varchar(100)" json:"sub_color"`
	Polish          *string `gorm:"type:varchar(100)" json:"polish"`
	Size            *string `gorm:"type:varchar(50)" json:"size"`
	Weight          *string `gorm:"type:varchar(50)" json:"weight"`
	ReceivedQty     *int    `json:"received_qty"`
	Category        *string `gorm:"type:varchar(100)" json:"category"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *LineItem) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
