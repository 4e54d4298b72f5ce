package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailExists         = errors.New("email already registered")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidToken        = errors.New("invalid token")
	ErrMovieNotFound       = errors.New("movie not found")
	ErrBackendUnavailable  = errors.New("backend unavailable")
	ErrNilInteraction      = errors.New("interaction is nil")
	ErrInvalidInteraction  = errors.New("invalid interaction")
	ErrInteractionNotFound = errors.New("interaction not found")
	ErrInvalidInput        = fmt.Errorf("invalid input")
)
