package series

import "errors"

// Sentinel errors for table construction and access.
var (
	ErrUnknownGranularity = errors.New("unknown granularity")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrDuplicateColumn    = errors.New("duplicate column")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrDuplicatePeriod    = errors.New("duplicate period")
	ErrGrainMismatch      = errors.New("granularity mismatch")
	ErrArity              = errors.New("value count does not match columns")
)
