package bonderr

import (
	"errors"
	"fmt"
)

// Code classifies a hard pipeline failure.
type Code string

const (
	ParsingError          Code = "PARSING_ERROR"
	ValidationError       Code = "VALIDATION_ERROR"
	InvalidTemplate       Code = "INVALID_TEMPLATE"
	InvalidTag            Code = "INVALID_TAG"
	MissingRequiredTags   Code = "MISSING_REQUIRED_TAGS"
	DuplicateRequiredTags Code = "DUPLICATE_REQUIRED_TAGS"
	FillError             Code = "FILL_ERROR"
	ConversionError       Code = "CONVERSION_ERROR"
	ReplacementError      Code = "REPLACEMENT_ERROR"
	ZipError              Code = "ZIP_ERROR"
	NoBonds               Code = "NO_BONDS"
	InternalError         Code = "INTERNAL_ERROR"
)

// Error is a whole-file or whole-template failure. Details carries
// structured context for rendering a precise message.
type Error struct {
	Code    Code
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error that wraps cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// WithDetails attaches structured details and returns e.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// CodeOf reports the code of the first *Error in err's chain.
// Errors without one are INTERNAL_ERROR.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return InternalError
}

// Message returns the user-facing message of err without the code
// prefix.
func Message(err error) string {
	if be := As(err); be != nil {
		return be.Message
	}
	return err.Error()
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	return nil
}
