package service

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrForbidden              = errors.New("forbidden")
	ErrNotFound               = errors.New("not found")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrMFARequired            = errors.New("mfa required")
	ErrInvalidMFACode         = errors.New("invalid mfa code")
	ErrMFANotConfigured       = errors.New("mfa not configured")
	ErrUserNotFound           = errors.New("user not found")
)
