package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomStatusHistory records one status change of a custom order
type CustomStatusHistory struct {
	ID          string        `gorm:"primaryKey;type:uuid" json:"id"`
	CustomID    string        `gorm:"type:uuid;not null;index" json:"custom_id"`
	OldStatus   *CustomStatus `gorm:"type:text" json:"old_status"`
	NewStatus   CustomStatus  `gorm:"type:text;not null" json:"new_status"`
	ChatterName *string       `json:"chatter_name"` // endorser or sender given with the move
	ChangedBy   *string       `json:"changed_by"`   // authenticated staff subject
	ChangedAt   time.Time     `gorm:"not null" json:"changed_at"`
}

// TableName specifies the table name for the CustomStatusHistory model
func (CustomStatusHistory) TableName() string {
	return "custom_status_history"
}

// BeforeCreate assigns an id to new records
func (h *CustomStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
