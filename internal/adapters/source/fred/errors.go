package fred

import "errors"

// Sentinel errors for remote series requests.
var (
	ErrNoCredential   = errors.New("fred api key not configured")
	ErrSeriesNotFound = errors.New("series not found")
	ErrRequest        = errors.New("fred request failed")
)
