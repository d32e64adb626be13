package models

import "errors"

// Domain specific errors shared by repositories, services and handlers.
var (
	ErrNotFound            = errors.New("requested item not found")
	ErrConflict            = errors.New("item already exists or conflict")
	ErrUnauthenticated     = errors.New("authentication required or invalid credentials")
	ErrForbidden           = errors.New("action forbidden")
	ErrBadRequest          = errors.New("bad request")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidID           = errors.New("malformed identifier")
	ErrInsufficientCredits = errors.New("no generation credits left")
	ErrGenerationFailed    = errors.New("Failed to generate travel plan")
	ErrRateLimited         = errors.New("too many requests")
)
