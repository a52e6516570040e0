package models

import (
	"errors"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")

	// Queue guard violations. The queue state is left unchanged when these
	// are returned.
	ErrJobNotPending    = errors.New("job is not pending")
	ErrJobNotActive     = errors.New("job is not active")
	ErrJobAlreadyActive = errors.New("another job is already active")
)
