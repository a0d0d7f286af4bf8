package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CustomStatus is the lifecycle state of a custom order
type CustomStatus string

const (
	StatusPartiallyPaid CustomStatus = "partially_paid"
	StatusFullyPaid     CustomStatus = "fully_paid"
	StatusEndorsed      CustomStatus = "endorsed"
	StatusDone          CustomStatus = "done"
	StatusRefunded      CustomStatus = "refunded"
)

// AllStatuses lists every status in board order
var AllStatuses = []CustomStatus{
	StatusPartiallyPaid,
	StatusFullyPaid,
	StatusEndorsed,
	StatusDone,
	StatusRefunded,
}

// Valid reports whether s is one of the known statuses
func (s CustomStatus) Valid() bool {
	switch s {
	case StatusPartiallyPaid, StatusFullyPaid, StatusEndorsed, StatusDone, StatusRefunded:
		return true
	}
	return false
}

// Title is the human readable column name
func (s CustomStatus) Title() string {
	switch s {
	case StatusPartiallyPaid:
		return "Partially Paid"
	case StatusFullyPaid:
		return "Fully Paid"
	case StatusEndorsed:
		return "Endorsed"
	case StatusDone:
		return "Done"
	case StatusRefunded:
		return "Refunded"
	}
	return string(s)
}

// Custom represents a commissioned-content order sold on behalf of a creator
type Custom struct {
	ID             string                      `gorm:"primaryKey;type:uuid" json:"id"`
	ModelName      string                      `gorm:"not null;index" json:"model_name"`
	FanDisplayName string                      `json:"fan_display_name"`
	FanUsername    string                      `json:"fan_username"`
	Description    string                      `gorm:"type:text;not null" json:"description"`
	CustomType     string                      `json:"custom_type"`
	SaleDate       Date                        `gorm:"not null" json:"sale_date"`
	DueDate        *Date                       `json:"due_date"` // nullable, no deadline when absent
	Downpayment    decimal.Decimal             `gorm:"type:numeric(12,2);not null;default:0" json:"downpayment"`
	FullPrice      decimal.Decimal             `gorm:"type:numeric(12,2);not null" json:"full_price"`
	Status         CustomStatus                `gorm:"type:text;not null;default:'partially_paid';index" json:"status"`
	SaleBy         string                      `gorm:"not null" json:"sale_by"`
	EndorsedBy     *string                     `json:"endorsed_by"` // set when the order enters endorsed
	SentBy         *string                     `json:"sent_by"`     // set when the order enters done
	Attachments    datatypes.JSONSlice[string] `json:"attachments"`
	CreatedAt      time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

// TableName specifies the table name for the Custom model
func (Custom) TableName() string {
	return "customs"
}

// BeforeCreate assigns an id to new records
func (c *Custom) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Attachments == nil {
		c.Attachments = datatypes.JSONSlice[string]{}
	}
	return nil
}

// AttachmentPaths returns a copy of the attachment list
func (c Custom) AttachmentPaths() []string {
	paths := make([]string, len(c.Attachments))
	copy(paths, c.Attachments)
	return paths
}
