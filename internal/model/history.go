package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// History action types
const (
	ActionStatusChange   = "STATUS_CHANGE"
	ActionPriorityChange = "PRIORITY_CHANGE"
	ActionDateChange     = "DATE_CHANGE"
	ActionAcceptance     = "ACCEPTANCE"
	ActionClosureChange  = "CLOSURE_CHANGE"
)

// POHistory tracks Who, What, and When for a single PO-level field change.
// Rows are append-only: never updated, never deleted.
type POHistory struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	POID              uuid.UUID `gorm:"type:uuid;not null;index" json:"po_id"`
	FieldName         string    `gorm:"type:varchar(100);not null" json:"field_name"`
	OldValue          string    `gorm:"type:text" json:"old_value"`
	NewValue          string    `gorm:"type:text" json:"new_value"`
	ActionType        string    `gorm:"type:varchar(50);not null;index" json:"action_type"`
	ChangedByUserID   uuid.UUID `gorm:"type:uuid;index" json:"changed_by_user_id"`
	ChangedByUserName string    `gorm:"type:varchar(255)" json:"changed_by_user_name"`
	ChangedByUserRole Role      `gorm:"type:varchar(20)" json:"changed_by_user_role"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

func (h *POHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// LineItemHistory is the line-item-level history shape. POID is carried on
// every row so a single-PO history query never needs a join through line items.
type LineItemHistory struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LineItemID        uuid.UUID `gorm:"type:uuid;not null;index" json:"line_item_id"`
	POID              uuid.UUID `gorm:"type:uuid;not null;index" json:"po_id"`
	FieldName         string    `gorm:"type:varchar(100);not null" json:"field_name"`
	OldValue          string    `gorm:"type:text" json:"old_value"`
	NewValue          string    `gorm:"type:text" json:"new_value"`
	ActionType        string    `gorm:"type:varchar(50);not null;index" json:"action_type"`
	ChangedByUserID   uuid.UUID `gorm:"type:uuid;index" json:"changed_by_user_id"`
	ChangedByUserName string    `gorm:"type:varchar(255)" json:"changed_by_user_name"`
	ChangedByUserRole Role      `gorm:"type:varchar(20)" json:"changed_by_user_role"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

func (h *LineItemHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
