package model

import "errors"

var (
	// ErrValidation marks requests rejected before any I/O.
	ErrValidation = errors.New("validation failed")

	// ErrTransport marks network or backend failures on fetch, send or mark-read.
	ErrTransport = errors.New("transport failure")
)
