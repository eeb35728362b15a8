package wage

import (
	"errors"
	"strings"
)

// Field error codes.
const (
	CodeInvalidRole       = "INVALID_ROLE"
	CodeInvalidAge        = "INVALID_AGE"
	CodeInvalidShift      = "INVALID_SHIFT"
	CodeNoShifts          = "NO_SHIFTS"
	CodeMalformedDuration = "MALFORMED_DURATION"
)

// ErrRateTableInconsistency means an age passed validation but has no
// positive rate. It is a configuration defect, not a user error.
var ErrRateTableInconsistency = errors.New("rate table inconsistency")

// FieldError reports one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Index   *int   `json:"index,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors is the batch of every field error found in one request.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// HasField reports whether any error is tagged with field.
func (v ValidationErrors) HasField(field string) bool {
	for _, fe := range v {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// HasCode reports whether any error carries code.
func (v ValidationErrors) HasCode(code string) bool {
	for _, fe := range v {
		if fe.Code == code {
			return true
		}
	}
	return false
}

// AsValidationErrors extracts the field errors carried by err.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
