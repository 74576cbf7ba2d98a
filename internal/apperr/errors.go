package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrIntegrity   = errors.New("integrity violation")
	ErrNoMatch     = errors.New("no matching todos")
	ErrBadDuration = errors.New("bad duration")
)
