package document

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for MIME types the processor cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyDocument is returned when a document contains no usable content.
	ErrEmptyDocument = errors.New("document contains no usable content")

	// ErrSplitterRequired is returned when a splitter is not provided.
	ErrSplitterRequired = errors.New("splitter required")
)

// ParseError reports a malformed sheet. Sheets failing to parse are skipped
// individually; a ParseError never aborts processing of sibling sheets.
type ParseError struct {
	Source string // Sheet or file that failed to parse
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
