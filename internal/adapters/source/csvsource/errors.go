package csvsource

import "errors"

// Sentinel errors for loading extracts.
var (
	ErrSourceNotFound = errors.New("source not found")
	ErrMissingColumn  = errors.New("required column not found")
	ErrRead           = errors.New("read source failed")
)
