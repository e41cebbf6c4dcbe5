package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"linkchat/internal/pkg/logx"
)

// CustomError is the application error carried back to clients.
// A handler that wants to reject a request returns one of these; any other error
// is treated as unexpected and replaced by ErrUnknown before it leaves the server.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-facing description.
	Message string

	// Status is the HTTP status used when the error is written by an HTTP handler.
	Status int
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	return fmt.Sprintf("error code %d: %s", e.Code, e.Message)
}

// NewError builds a *CustomError from the template registered for code.
// details are formatted into the message when the template contains a verb.
// An unknown code yields ErrUnknown; for ErrUnknown a leading error detail is logged.
func NewError(code int, details ...any) *CustomError {
	template, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("unknown error code %d", code),
			"Unknown error code requested",
			"requested_code", code,
		)
		template = errorMap[ErrUnknown]
	}

	customErr := template
	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	switch {
	case code == ErrUnknown && len(details) > 0:
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Handling ErrUnknown with underlying error")
		}
	case len(details) > 0:
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn("Details provided for an error without placeholders. Details ignored.", "code", code)
		}
	}

	return &customErr
}

// As reports whether err wraps a *CustomError and returns it.
func As(err error) (*CustomError, bool) {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr, true
	}
	return nil, false
}

// HasCode reports whether err is a *CustomError carrying code.
func HasCode(err error, code int) bool {
	customErr, ok := As(err)
	return ok && customErr.Code == code
}
