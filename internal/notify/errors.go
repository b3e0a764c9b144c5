package notify

import "errors"

// PermanentError marks delivery failures that are not retryable.
// Params: wrapped root cause.
// Returns: typed permanent error marker.
type PermanentError struct {
	Err error
}

// Error returns wrapped error message.
func (e PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

// Unwrap exposes wrapped cause for errors.Is/errors.As.
func (e PermanentError) Unwrap() error {
	return e.Err
}

// Permanent marks err as non-retryable; nil stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return PermanentError{Err: err}
}

// IsPermanent reports whether err carries the permanent marker.
// Params: candidate error.
// Returns: true when retrying cannot help.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var tagged PermanentError
	return errors.As(err, &tagged)
}
