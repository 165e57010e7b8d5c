package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a request payload fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotOwner is returned when a caller acts on a record owned by someone else.
	ErrNotOwner = errors.New("not the owner")
)

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
