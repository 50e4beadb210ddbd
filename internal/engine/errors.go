package engine

import "errors"

// ErrStoreUnavailable marks transient persistence failures. It is the only
// error class callers may retry, and it is never folded into a domain
// rejection.
var ErrStoreUnavailable = errors.New("store unavailable")

// ValidationError covers malformed input shape rejected before the
// scheduling rules run: missing fields, bad date or time formats, bad email.
// Distinct from domain rejections, which concern well-formed but unbookable
// requests.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(msg string) error {
	return &ValidationError{Msg: msg}
}

// IsValidation reports whether err is a boundary validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
