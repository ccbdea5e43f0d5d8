/**
 * @description
 * Typed failures shared by the analytics services.
 * Validation problems surface synchronously with a code the presentation
 * layer can map; missing history is NOT an error and is returned as a
 * well-formed "no data" result instead.
 *
 * @dependencies
 * - standard "errors", "fmt"
 */

package services

import (
	"errors"
	"fmt"
)

// ReasonInsufficientHistory marks a well-formed "no data" analytics result.
const ReasonInsufficientHistory = "insufficient history"

// ErrInvalidInput is the sentinel for caller-side validation failures.
var ErrInvalidInput = errors.New("invalid input")

// InputError carries which field failed validation.
type InputError struct {
	Field  string
	Detail string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Detail)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalidInput(field, detail string) error {
	return &InputError{Field: field, Detail: detail}
}
