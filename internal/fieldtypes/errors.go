package fieldtypes

import "errors"

var (
	// ErrConstraintViolation is returned when a field value fails its validation constraint
	ErrConstraintViolation = errors.New("field constraint violation")

	// ErrUnknownType is returned when no field type is registered under a name
	ErrUnknownType = errors.New("unknown field type")

	// ErrInvalidValue is returned when a field value has an unsupported shape
	ErrInvalidValue = errors.New("invalid field value")
)
