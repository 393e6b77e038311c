package incidents

import "errors"

// Lookup errors.
var (
	ErrIncidentNotFound = errors.New("Incident not found")
)

// Validation errors.
var (
	ErrInvalidStatus     = errors.New("invalid incident status")
	ErrInvalidSeverity   = errors.New("invalid incident severity")
	ErrInvalidType       = errors.New("invalid incident type")
	ErrInvalidUpdateType = errors.New("invalid update type")
	ErrEmptyMessage      = errors.New("message must not be empty")
)
