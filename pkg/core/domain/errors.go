package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks missing or empty required arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageFailure marks an unreachable store or a non-collision write error.
	ErrStorageFailure = errors.New("storage failure")

	// ErrNotFoundAfterRace means an insert collided but the re-read found nothing.
	ErrNotFoundAfterRace = fmt.Errorf("%w: summary missing after insert collision", ErrStorageFailure)

	// ErrSummaryNotFound is returned by the ledger for an unknown fingerprint.
	ErrSummaryNotFound = errors.New("summary not found")

	// ErrRateLimited means the caller spent its request budget.
	ErrRateLimited = errors.New("rate limit exceeded")
)
