package livestore

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotLoaded     = errors.New("no fixture loaded")
	ErrSuperseded    = errors.New("load superseded by a newer load")
	ErrEmptySnapshot = errors.New("backend returned no fixture")
	ErrNoChannel     = errors.New("no socket channel configured")
	ErrNoBackend     = errors.New("no backend configured")
)
