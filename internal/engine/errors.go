package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/shapefmt/internal/compiler"
	"github.com/roach88/shapefmt/internal/ir"
)

// ErrorKind categorizes formatter failures.
type ErrorKind string

const (
	// KindReading: input could not be read or is not valid UTF-8, or no
	// grammar is available for the language.
	KindReading ErrorKind = "READING"

	// KindParsing: the grammar rejected the input.
	KindParsing ErrorKind = "PARSING"

	// KindQuery: the pattern document is malformed.
	KindQuery ErrorKind = "QUERY"

	// KindInternal: an invariant was violated while formatting.
	KindInternal ErrorKind = "INTERNAL"

	// KindIdempotence: formatting the output again changed it.
	KindIdempotence ErrorKind = "IDEMPOTENCE"

	// KindWriting: output could not be written.
	KindWriting ErrorKind = "WRITING"

	// KindLanguageDetection: no language matches the name or file extension.
	KindLanguageDetection ErrorKind = "LANGUAGE_DETECTION"

	// KindNotFound: no pattern document exists for the language.
	KindNotFound ErrorKind = "NOT_FOUND"
)

// FormatterError is the single error type surfaced by Format.
//
// Rule and Capture are set for Internal errors raised while applying a
// specific rule.
type FormatterError struct {
	Kind    ErrorKind
	Message string
	Rule    string
	Capture string
	Err     error
}

// Error implements the error interface.
func (e *FormatterError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Rule != "" && e.Capture != "" {
		msg = fmt.Sprintf("%s (rule=%s, capture=%s)", msg, e.Rule, e.Capture)
	} else if e.Rule != "" {
		msg = fmt.Sprintf("%s (rule=%s)", msg, e.Rule)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FormatterError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a (possibly wrapped) FormatterError, or "".
func KindOf(err error) ErrorKind {
	var fe *FormatterError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err is a FormatterError of the given kind.
// Uses errors.As to handle wrapped errors.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsQueryError returns true if the error is a pattern document error.
func IsQueryError(err error) bool {
	return IsKind(err, KindQuery)
}

// IsInternalError returns true if the error is an invariant violation.
func IsInternalError(err error) bool {
	return IsKind(err, KindInternal)
}

// IsIdempotenceError returns true if formatting was not idempotent.
func IsIdempotenceError(err error) bool {
	return IsKind(err, KindIdempotence)
}

// NewReadingError creates a FormatterError for unreadable input.
func NewReadingError(message string, err error) *FormatterError {
	return &FormatterError{Kind: KindReading, Message: message, Err: err}
}

// NewParsingError creates a FormatterError for input the grammar rejected.
func NewParsingError(err error) *FormatterError {
	return &FormatterError{Kind: KindParsing, Message: "input does not parse", Err: err}
}

// NewQueryError creates a FormatterError for a malformed pattern document.
func NewQueryError(message string, err error) *FormatterError {
	return &FormatterError{Kind: KindQuery, Message: message, Err: err}
}

// NewInternalError creates a FormatterError for a violated invariant.
func NewInternalError(format string, args ...any) *FormatterError {
	return &FormatterError{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

// NewRuleError creates an Internal FormatterError attributed to a rule and capture.
func NewRuleError(rule, capture, format string, args ...any) *FormatterError {
	return &FormatterError{
		Kind:    KindInternal,
		Message: fmt.Sprintf(format, args...),
		Rule:    rule,
		Capture: capture,
	}
}

// NewWritingError creates a FormatterError for output that could not be written.
func NewWritingError(message string, err error) *FormatterError {
	return &FormatterError{Kind: KindWriting, Message: message, Err: err}
}

// NewLanguageDetectionError creates a FormatterError for an unknown language.
func NewLanguageDetectionError(message string) *FormatterError {
	return &FormatterError{Kind: KindLanguageDetection, Message: message}
}

// NewNotFoundError creates a FormatterError for a missing pattern document.
func NewNotFoundError(message string, err error) *FormatterError {
	return &FormatterError{Kind: KindNotFound, Message: message, Err: err}
}

// classify converts provider errors into FormatterErrors. FormatterErrors
// pass through unchanged.
func classify(err error, fallback ErrorKind, message string) error {
	if err == nil {
		return nil
	}
	var fe *FormatterError
	if errors.As(err, &fe) {
		return err
	}
	var pe *ir.ParseError
	if errors.As(err, &pe) {
		return NewParsingError(err)
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return NewQueryError("invalid pattern document", err)
	}
	return &FormatterError{Kind: fallback, Message: message, Err: err}
}
