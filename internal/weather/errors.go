package weather

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned to the caller of a fetch cycle that was replaced
// by a newer one before it could commit.
var ErrSuperseded = errors.New("fetch cycle superseded")

// NetworkError reports a request that failed or returned a non-2xx status.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a response that is missing or has malformed fields.
type ParseError struct {
	Source string
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("parse %s: field %s: %v", e.Source, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
