package model

import "errors"

// Sentinel errors shared by the store and handler layers. Stores wrap these
// with detail via fmt.Errorf("%w: ..."); handlers match with errors.Is to
// pick a status code. Anything that matches none of them is treated as an
// internal (possibly transient) storage failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("invalid input")
	ErrUnauthorized = errors.New("not allowed")
)
