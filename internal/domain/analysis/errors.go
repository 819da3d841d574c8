package analysis

import "errors"

// Validation errors.
var (
	ErrMissingUserID = errors.New("user id is required")
	ErrMissingHandle = errors.New("at least one platform handle is required")
)

// IsValidation reports whether err is a client-side validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingUserID) || errors.Is(err, ErrMissingHandle)
}
