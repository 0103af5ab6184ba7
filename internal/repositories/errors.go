package repositories

import "errors"

// ErrContentTypesNotFound is returned when no content type definitions are stored
var ErrContentTypesNotFound = errors.New("content type definitions not found")
