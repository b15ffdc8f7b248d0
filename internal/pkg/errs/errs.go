/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct: a business code, a client-facing message and the HTTP
status it is reported with. Domain packages never return CustomError; the HTTP and websocket
boundary converts their sentinel errors into one.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"anonchat/internal/pkg/logx"
)

// CustomError is the client-facing error reported over HTTP and websocket.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code the error is reported with.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Is matches any CustomError carrying the same code, so errors.Is(err, NewError(code)) works
// regardless of the formatted message.
func (e CustomError) Is(target error) bool {
	var other *CustomError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// NewError returns the CustomError registered for code. details are printf arguments for
// messages that carry placeholders; for ErrUnknown the first detail may be the underlying error,
// which is logged and never shown to the client. Unknown codes fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	tmpl, ok := errorMap[code]
	if !ok {
		logx.Error(fmt.Errorf("error code %d is not registered", code), "Unknown error code requested")
		tmpl = errorMap[ErrUnknown]
	}

	customErr := tmpl
	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) == 0 {
		return &customErr
	}

	switch {
	case customErr.Code == ErrUnknown:
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Reporting unclassified error to client")
		}
	case strings.Contains(customErr.Message, "%"):
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	default:
		logx.Warn("Error details ignored: message has no placeholders", "code", code)
	}

	return &customErr
}
