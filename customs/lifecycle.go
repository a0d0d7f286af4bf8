// Package customs holds the custom order lifecycle: the status state machine, the
// edit policy and the board projection. Every function works on values passed in
// and returns the new value plus the columns that have to be persisted, so callers
// decide when (and whether) a change is committed.
package customs

import (
	"strings"
	"time"

	"github.com/kendall-kelly/customs-tracker-api/models"
	"github.com/shopspring/decimal"
)

// Changes maps column names to their new values. An empty Changes means there is nothing to write.
type Changes map[string]interface{}

// Empty reports whether there is nothing to persist
func (c Changes) Empty() bool {
	return len(c) == 0
}

// TransitionContext carries the staff names a guarded transition needs
type TransitionContext struct {
	ChatterName  string // who delivered the content, required for done
	EndorserName string // who endorsed the content, required for endorsed
}

// allowedTargets returns the statuses reachable from s. Adding a status means adding a case here.
func allowedTargets(s models.CustomStatus) []models.CustomStatus {
	switch s {
	case models.StatusPartiallyPaid:
		return []models.CustomStatus{models.StatusFullyPaid, models.StatusEndorsed, models.StatusDone, models.StatusRefunded}
	case models.StatusFullyPaid:
		return []models.CustomStatus{models.StatusPartiallyPaid, models.StatusEndorsed, models.StatusDone, models.StatusRefunded}
	case models.StatusEndorsed:
		return []models.CustomStatus{models.StatusPartiallyPaid, models.StatusFullyPaid, models.StatusDone, models.StatusRefunded}
	case models.StatusDone:
		return []models.CustomStatus{models.StatusRefunded}
	case models.StatusRefunded:
		return nil
	}
	return nil
}

// AllowedTargets returns a copy of the statuses reachable from s
func AllowedTargets(s models.CustomStatus) []models.CustomStatus {
	targets := allowedTargets(s)
	out := make([]models.CustomStatus, len(targets))
	copy(out, targets)
	return out
}

// ParseStatus converts user input into a status. Empty input gives the empty status.
func ParseStatus(value string) (models.CustomStatus, error) {
	status := models.CustomStatus(strings.ToLower(strings.TrimSpace(value)))
	if status == "" || status.Valid() {
		return status, nil
	}
	return "", validationError(CodeInvalidStatus, "unknown status %q", value)
}

// CanTransition reports whether from -> to is in the transition table
func CanTransition(from, to models.CustomStatus) bool {
	for _, target := range allowedTargets(from) {
		if target == to {
			return true
		}
	}
	return false
}

// RequestTransition moves custom to target. Moving to the current status is a no-op:
// the custom comes back untouched and Changes is empty.
func RequestTransition(custom models.Custom, target models.CustomStatus, tc TransitionContext, now time.Time) (models.Custom, Changes, error) {
	if !target.Valid() {
		return custom, nil, validationError(CodeInvalidStatus, "unknown status %q", target)
	}
	if target == custom.Status {
		return custom, Changes{}, nil
	}
	if !CanTransition(custom.Status, target) {
		return custom, nil, &InvalidTransitionError{From: custom.Status, To: target}
	}

	changes := Changes{}
	switch target {
	case models.StatusEndorsed:
		name := strings.TrimSpace(tc.EndorserName)
		if name == "" {
			return custom, nil, validationError(CodeEndorserRequired, "endorser name required")
		}
		custom.EndorsedBy = &name
		changes["endorsed_by"] = name
	case models.StatusDone:
		name := strings.TrimSpace(tc.ChatterName)
		if name == "" {
			return custom, nil, validationError(CodeChatterRequired, "chatter name required")
		}
		custom.SentBy = &name
		changes["sent_by"] = name
	case models.StatusPartiallyPaid, models.StatusFullyPaid, models.StatusRefunded:
	}

	custom.Status = target
	custom.UpdatedAt = now
	changes["status"] = target
	changes["updated_at"] = now
	return custom, changes, nil
}

// CanEditDescription reports whether the description is still open for edits
func CanEditDescription(custom models.Custom) bool {
	switch custom.Status {
	case models.StatusPartiallyPaid, models.StatusFullyPaid:
		return true
	case models.StatusEndorsed, models.StatusDone, models.StatusRefunded:
		return false
	}
	return false
}

// SetDescription replaces the description while the order is not yet endorsed
func SetDescription(custom models.Custom, description string, now time.Time) (models.Custom, Changes, error) {
	if !CanEditDescription(custom) {
		return custom, nil, validationError(CodeDescriptionLocked, "description cannot be edited once a custom is %s", custom.Status)
	}
	if strings.TrimSpace(description) == "" {
		return custom, nil, validationError(CodeValidation, "description is required")
	}
	custom.Description = description
	custom.UpdatedAt = now
	return custom, Changes{"description": description, "updated_at": now}, nil
}

// SetDueDate sets or, with nil, clears the due date. Allowed in every status.
func SetDueDate(custom models.Custom, due *models.Date, now time.Time) (models.Custom, Changes, error) {
	if due != nil {
		d := *due
		custom.DueDate = &d
	} else {
		custom.DueDate = nil
	}
	custom.UpdatedAt = now
	return custom, Changes{"due_date": custom.DueDate, "updated_at": now}, nil
}

// SetDownpayment records a new downpayment. It is not checked against the full price.
func SetDownpayment(custom models.Custom, amount decimal.Decimal, now time.Time) (models.Custom, Changes, error) {
	if amount.IsNegative() {
		return custom, nil, validationError(CodeNegativeAmount, "downpayment cannot be negative")
	}
	custom.Downpayment = amount
	custom.UpdatedAt = now
	return custom, Changes{"downpayment": amount, "updated_at": now}, nil
}

// IsOverdue reports whether now is strictly past the due date. The due date itself is not overdue.
func IsOverdue(custom models.Custom, now time.Time) bool {
	if custom.DueDate == nil {
		return false
	}
	return now.After(custom.DueDate.Time)
}
