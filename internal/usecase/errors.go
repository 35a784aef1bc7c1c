package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrAlreadyDecided        = errors.New("pair already decided")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
