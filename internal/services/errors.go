package services

import "errors"

var (
	// ErrInvalidArgument is returned when a request is malformed
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrContentTypeNotFound is returned when a content type is not defined
	ErrContentTypeNotFound = errors.New("content type not found")

	// ErrInvalidContentTypes is returned when content type definitions fail to parse or validate
	ErrInvalidContentTypes = errors.New("invalid content type definitions")
)
