// Package errors provides the error taxonomy shared by tools, the agent loop
// and the ledger store. Message is always safe to show to a user; Internal
// carries the cause for diagnostics and is never serialized.
package errors

import stderrors "errors"

// AppError is a classified error with a stable code.
type AppError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches any AppError carrying the same code, so wrapped copies of a
// sentinel compare equal to it.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the sentinel's code and message wrapping internal.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:     sentinel.Code,
		Message:  sentinel.Message,
		Internal: internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:     sentinel.Code,
		Message:  message,
		Internal: sentinel.Internal,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Tool boundary errors.
var (
	ErrValidation  = &AppError{Code: "VALIDATION", Message: "Invalid tool arguments"}
	ErrExecution   = &AppError{Code: "EXECUTION", Message: "Tool execution failed"}
	ErrUnknownTool = &AppError{Code: "UNKNOWN_TOOL", Message: "Tool not found"}
)

// Collaborator errors.
var (
	ErrProvider = &AppError{Code: "PROVIDER", Message: "Upstream provider unavailable"}
	ErrStore    = &AppError{Code: "STORE", Message: "Ledger store failure"}
)
