package service

import "errors"

// Sentinel kinds returned by the service.
var (
	ErrNotStarted         = errors.New("service not started")
	ErrEmptyFixtureID     = errors.New("fixture id must not be empty")
	ErrNotWatched         = errors.New("fixture is not being watched")
	ErrPossessionRejected = errors.New("possession change rejected")
)
