package models

import "errors"

// Errors shared by the services and translated to HTTP statuses by the handlers
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)
