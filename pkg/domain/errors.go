package domain

import "errors"

// ErrHumanTakeover signals that automation cannot proceed without an operator.
// Callers must stop the current task; it must never be retried by the task layer.
var ErrHumanTakeover = errors.New("human takeover required")

// ErrInvalidCoordinates is returned when a coordinate argument cannot be normalized to a Point.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// ErrUnknownControlMethod is returned when the configured control method maps to no backend.
var ErrUnknownControlMethod = errors.New("unknown control method")

// ErrImageTruncated is returned when screenshot data is empty, short or undecodable.
var ErrImageTruncated = errors.New("image truncated")

// ErrResolution is returned when the device screen does not match the expected resolution.
var ErrResolution = errors.New("unexpected screen resolution")
