package emotions

import "errors"

var (
	// ErrInvalidProfile is returned when a profile table is malformed.
	ErrInvalidProfile = errors.New("invalid emotion profile")

	// ErrIncomplete is returned when a registry lacks a profile for a category.
	ErrIncomplete = errors.New("emotion profiles incomplete")
)
