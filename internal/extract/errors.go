package extract

import "fmt"

// ErrorCode classifies extraction failures.
type ErrorCode string

const (
	ErrTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrPatternMatch     ErrorCode = "PATTERN_MATCH"
	ErrParsing          ErrorCode = "PARSING"
	ErrInvalidCategory  ErrorCode = "INVALID_CATEGORY"
)

// Error is a structured error for extraction failures.
type Error struct {
	Code    ErrorCode
	Message string
	Field   string // set when the failure is tied to one declared field
	Cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] field %s: %s", e.Code, e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func templateNotFound(issuer string) *Error {
	return &Error{Code: ErrTemplateNotFound,
		Message: fmt.Sprintf("no template matched the document text for issuer %s", issuer)}
}

func patternMatch(field, format string, args ...any) *Error {
	return &Error{Code: ErrPatternMatch, Field: field, Message: fmt.Sprintf(format, args...)}
}
