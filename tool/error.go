package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/petal-labs/applebooks-mcp/books"
)

const (
	// ToolErrorCodeToolNotFound is returned when the tool name is not in the catalog.
	ToolErrorCodeToolNotFound = "TOOL_NOT_FOUND"
	// ToolErrorCodeNotFound is returned when an identifier does not resolve.
	ToolErrorCodeNotFound = "NOT_FOUND"
	// ToolErrorCodeInvalidArgument is returned for missing or malformed arguments.
	ToolErrorCodeInvalidArgument = "INVALID_ARGUMENT"
	// ToolErrorCodeUnavailable is returned when the library cannot be read.
	ToolErrorCodeUnavailable = "UNAVAILABLE"
	// ToolErrorCodeCanceled is returned when the caller's context ends first.
	ToolErrorCodeCanceled = "CANCELED"
	// ToolErrorCodeInvocationFailed is a generic fallback for tool failures.
	ToolErrorCodeInvocationFailed = "INVOCATION_FAILED"
)

// ToolError is a structured invocation error. It unwraps to its cause so
// callers can still match books.ErrNotFound and friends with errors.Is.
type ToolError struct {
	Code    string
	Message string
	// Details names the offending tool argument; the registry logs it.
	Details map[string]any
	Cause   error
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	code := strings.TrimSpace(e.Code)
	msg := strings.TrimSpace(e.Message)
	switch {
	case code == "" && msg == "":
		return ToolErrorCodeInvocationFailed
	case code == "":
		return msg
	case msg == "":
		return code
	default:
		return fmt.Sprintf("%s: %s", code, msg)
	}
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newToolError(code, message string, cause error) *ToolError {
	cleanCode := strings.TrimSpace(code)
	if cleanCode == "" {
		cleanCode = ToolErrorCodeInvocationFailed
	}
	cleanMsg := strings.TrimSpace(message)
	if cleanMsg == "" && cause != nil {
		cleanMsg = cause.Error()
	}
	return &ToolError{
		Code:    cleanCode,
		Message: cleanMsg,
		Cause:   cause,
	}
}

func withToolErrorDetails(err *ToolError, details map[string]any) *ToolError {
	if err == nil {
		return nil
	}
	if len(details) == 0 {
		return err
	}
	if err.Details == nil {
		err.Details = make(map[string]any, len(details))
	}
	for key, value := range details {
		err.Details[key] = value
	}
	return err
}

// ErrorCode reports the machine-readable code for err, classifying plain
// library errors on the fly.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) && strings.TrimSpace(toolErr.Code) != "" {
		return toolErr.Code
	}
	return classify(err)
}

func classify(err error) string {
	switch {
	case errors.Is(err, books.ErrNotFound):
		return ToolErrorCodeNotFound
	case errors.Is(err, books.ErrInvalidArgument):
		return ToolErrorCodeInvalidArgument
	case errors.Is(err, books.ErrUnavailable):
		return ToolErrorCodeUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ToolErrorCodeCanceled
	default:
		return ToolErrorCodeInvocationFailed
	}
}
