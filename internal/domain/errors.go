package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownImage    = errors.New("unknown image")
	ErrProviderFailure = errors.New("provider failure")
)
