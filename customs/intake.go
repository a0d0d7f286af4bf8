package customs

import (
	"strings"
	"time"

	"github.com/kendall-kelly/customs-tracker-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CustomDraft is the intake form of a new custom
type CustomDraft struct {
	ModelName      string
	FanDisplayName string
	FanUsername    string
	Description    string
	CustomType     string
	SaleDate       *models.Date
	DueDate        *models.Date
	Downpayment    decimal.Decimal
	FullPrice      decimal.Decimal
	Status         models.CustomStatus
	SaleBy         string
}

// NewCustom validates a draft and builds the record to insert.
// A new custom starts partially_paid unless the sale was fully paid up front.
func NewCustom(draft CustomDraft, now time.Time) (models.Custom, error) {
	modelName := strings.TrimSpace(draft.ModelName)
	if modelName == "" {
		return models.Custom{}, validationError(CodeValidation, "model name is required")
	}
	if draft.SaleDate == nil || draft.SaleDate.IsZero() {
		return models.Custom{}, validationError(CodeValidation, "sale date is required")
	}
	saleBy := strings.TrimSpace(draft.SaleBy)
	if saleBy == "" {
		return models.Custom{}, validationError(CodeValidation, "sale by is required")
	}
	if strings.TrimSpace(draft.Description) == "" {
		return models.Custom{}, validationError(CodeValidation, "description is required")
	}
	if draft.Downpayment.IsNegative() {
		return models.Custom{}, validationError(CodeNegativeAmount, "downpayment cannot be negative")
	}
	if draft.FullPrice.IsNegative() {
		return models.Custom{}, validationError(CodeNegativeAmount, "full price cannot be negative")
	}

	status := draft.Status
	if status == "" {
		status = models.StatusPartiallyPaid
	}
	if status != models.StatusPartiallyPaid && status != models.StatusFullyPaid {
		return models.Custom{}, validationError(CodeInvalidStatus, "a new custom must be partially_paid or fully_paid, got %q", status)
	}

	custom := models.Custom{
		ModelName:      modelName,
		FanDisplayName: strings.TrimSpace(draft.FanDisplayName),
		FanUsername:    CleanFanUsername(draft.FanUsername),
		Description:    draft.Description,
		CustomType:     strings.TrimSpace(draft.CustomType),
		SaleDate:       *draft.SaleDate,
		Downpayment:    draft.Downpayment,
		FullPrice:      draft.FullPrice,
		Status:         status,
		SaleBy:         saleBy,
		Attachments:    datatypes.JSONSlice[string]{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if draft.DueDate != nil {
		due := *draft.DueDate
		custom.DueDate = &due
	}
	return custom, nil
}

// CleanFanUsername drops the "@" handles are usually typed with
func CleanFanUsername(username string) string {
	return strings.TrimSpace(strings.ReplaceAll(username, "@", ""))
}

// AppendAttachments adds paths to the end of the attachment list.
// A path already on the list is not added twice.
func AppendAttachments(custom models.Custom, paths []string, now time.Time) (models.Custom, Changes) {
	seen := make(map[string]bool, len(custom.Attachments)+len(paths))
	for _, p := range custom.Attachments {
		seen[p] = true
	}
	added := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		added = append(added, p)
	}
	if len(added) == 0 {
		return custom, Changes{}
	}
	list := make(datatypes.JSONSlice[string], 0, len(custom.Attachments)+len(added))
	list = append(list, custom.Attachments...)
	list = append(list, added...)
	custom.Attachments = list
	custom.UpdatedAt = now
	return custom, Changes{"attachments": list, "updated_at": now}
}

// RemoveAttachment drops one path from the attachment list, keeping the order of the rest
func RemoveAttachment(custom models.Custom, path string, now time.Time) (models.Custom, Changes, error) {
	index := -1
	for i, p := range custom.Attachments {
		if p == path {
			index = i
			break
		}
	}
	if index < 0 {
		return custom, nil, validationError(CodeAttachmentNotFound, "attachment %q is not part of this custom", path)
	}
	list := make(datatypes.JSONSlice[string], 0, len(custom.Attachments)-1)
	list = append(list, custom.Attachments[:index]...)
	list = append(list, custom.Attachments[index+1:]...)
	custom.Attachments = list
	custom.UpdatedAt = now
	return custom, Changes{"attachments": list, "updated_at": now}, nil
}
