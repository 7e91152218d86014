package model

import "errors"

// Expected, recoverable rejection reasons reported synchronously to callers.
// None of these are fatal to the process; match with errors.Is.
var (
	// ErrNotFound means the RFQ id is unknown to the registry.
	ErrNotFound = errors.New("rfq not found")

	// ErrInvalidState means the action requires an OPEN RFQ and the RFQ is
	// already FILLED, EXPIRED or CANCELLED.
	ErrInvalidState = errors.New("rfq not open")

	// ErrNotAllowlisted means the maker identity is not permitted to quote.
	ErrNotAllowlisted = errors.New("maker not in allowlist")

	// ErrBelowFloor means the best quote's premium does not meet the
	// request's premium floor.
	ErrBelowFloor = errors.New("best quote below premium floor")

	// ErrNoQuotes means a fill was attempted with zero quotes received.
	ErrNoQuotes = errors.New("no quotes received")

	// ErrMalformedMessage means an inbound payload failed to parse or is
	// missing required fields.
	ErrMalformedMessage = errors.New("malformed message")
)
