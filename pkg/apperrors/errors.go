package apperrors

import "errors"

var (
	ErrNilConfig      = errors.New("analysis config is required")
	ErrNoSources      = errors.New("at least one source is required")
	ErrInvalidFixture = errors.New("invalid table fixture")
)
