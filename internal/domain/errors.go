package domain

import "errors"

// Failure kinds surfaced by fetch and ingestion. None of them reach the reader of
// the maps; callers log them and keep serving the last good state.
var (
	// ErrNetwork covers transport failures and non-2xx responses, including 503.
	ErrNetwork = errors.New("network failure")

	// ErrParse means the body could not be decoded or its arrays disagree in length.
	// The whole response is discarded.
	ErrParse = errors.New("parse failure")

	// ErrMissingClassificationData marks an hour without sunrise or sunset for its
	// date. The hour is skipped, the rest of the response is kept.
	ErrMissingClassificationData = errors.New("missing classification data")

	// ErrInvalidCoordinate is returned when a request URL cannot be built from a
	// coordinate.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)
