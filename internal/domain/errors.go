package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid task transition")
	ErrGeneratorNotReady = errors.New("generator not ready")
	ErrGenerationFailed  = errors.New("generation failed")
	ErrInvalidAdapter    = errors.New("invalid adapter weights")
)
