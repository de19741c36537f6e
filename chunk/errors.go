package chunk

import "errors"

var (
	// ErrInvalidMaxTokens is returned when maxTokens is not positive.
	ErrInvalidMaxTokens = errors.New("maxTokens must be positive")

	// ErrInvalidOverlap is returned when overlap is negative.
	ErrInvalidOverlap = errors.New("overlap cannot be negative")

	// ErrInvalidEncoding is returned when the encoding name is empty.
	ErrInvalidEncoding = errors.New("encoding name cannot be empty")

	// ErrOverlapTooLarge is returned when overlap >= maxTokens, which would
	// make the sliding window advance by a non-positive step.
	ErrOverlapTooLarge = errors.New("overlap must be strictly less than maxTokens")
)
