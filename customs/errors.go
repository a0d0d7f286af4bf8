package customs

import (
	"errors"
	"fmt"

	"github.com/kendall-kelly/customs-tracker-api/models"
)

// Validation error codes
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeEndorserRequired   = "ENDORSER_REQUIRED"
	CodeChatterRequired    = "CHATTER_REQUIRED"
	CodeNegativeAmount     = "NEGATIVE_AMOUNT"
	CodeDescriptionLocked  = "DESCRIPTION_LOCKED"
	CodeAttachmentNotFound = "ATTACHMENT_NOT_FOUND"
	CodeForeignAttachment  = "FOREIGN_ATTACHMENT"
)

// ValidationError is returned for malformed input before anything is mutated
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationError(code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError is returned when the target status cannot be reached from the current one
type InvalidTransitionError struct {
	From models.CustomStatus
	To   models.CustomStatus
}

func (e *InvalidTransitionError) Error() string {
	if e.From == models.StatusRefunded {
		return fmt.Sprintf("cannot move a refunded custom to %s", e.To)
	}
	return fmt.Sprintf("cannot move a custom from %s to %s", e.From, e.To)
}

// IsValidationError reports whether err is, or wraps, a ValidationError
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// IsInvalidTransition reports whether err is, or wraps, an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	var tErr *InvalidTransitionError
	return errors.As(err, &tErr)
}
