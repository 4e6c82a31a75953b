package contentstream

import (
	"errors"
	"fmt"
)

// ParseError reports a malformed token stream. It aborts redaction for the
// page: the engine never skips bytes to resynchronize, because silent
// recovery over adversarial input is a known starvation source.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("content stream: %s at offset %d", e.Msg, e.Pos)
}

// BuildError reports that a surviving operation could not be re-serialized.
type BuildError struct {
	Index int
	Msg   string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("content stream build: %s (operation %d)", e.Msg, e.Index)
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
