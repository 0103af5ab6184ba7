package storage

import "errors"

// ErrConfiguration is returned when a component is used without a required collaborator
var ErrConfiguration = errors.New("storage configuration error")

// ErrNotFound is returned when a content record does not exist
var ErrNotFound = errors.New("content not found")
