// Package errs classifies request failures into client input errors and
// everything else.
package errs

import "errors"

// ValidationError marks a failure caused by the caller's input.
type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

// Validation builds a ValidationError carrying msg verbatim.
func Validation(msg string) error {
	return ValidationError{reason: errors.New(msg)}
}

// Wrap marks err as a client input error.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return ValidationError{reason: err}
}

func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
