package socket

import "errors"

// Sentinel kinds for socket errors.
var (
	ErrRetriesExhausted = errors.New("socket reconnect attempts exhausted")
	ErrEmptyRoom        = errors.New("room id must not be empty")
)
