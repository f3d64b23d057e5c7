package parser

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/issuetrail/internal/issues"
)

// Sentinel errors for registry maintenance.
var (
	ErrDuplicateTool = errors.New("tool already registered")
	ErrInvalidTool   = errors.New("tool ID and parse function are required")
)

// UnknownToolError is returned when Parse is called with a tool ID that was
// never registered.
type UnknownToolError struct {
	ToolID string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.ToolID)
}

// ParseError reports malformed report content. Partial holds the issues the
// parser recovered before the failure point; callers decide whether to use them.
type ParseError struct {
	ToolID  string
	Cause   error
	Partial issues.Set
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s report (%d issues recovered): %v", e.ToolID, e.Partial.Size(), e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// EncodingError reports that the declared charset could not decode the report.
type EncodingError struct {
	ToolID  string
	Charset string
	Cause   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot decode %s report as %q: %v", e.ToolID, e.Charset, e.Cause)
}

func (e *EncodingError) Unwrap() error { return e.Cause }
