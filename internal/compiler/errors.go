package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/shapefmt/internal/queryir"
)

// Compile error codes (E100-E199).
const (
	ErrCUE               = "E100" // CUE syntax or evaluation error
	ErrDocumentNotStruct = "E101" // document is not a struct
	ErrMissingRules      = "E102" // rules is required
	ErrMissingMatch      = "E103" // rule without match
	ErrUnknownField      = "E104" // unknown key in document, rule or pattern
	ErrWrongType         = "E105" // field has the wrong CUE kind
	ErrUnknownAction     = "E106" // unrecognized action string
	ErrUnboundCapture    = "E107" // apply names a capture the pattern does not bind
	ErrDuplicateCapture  = "E108" // capture bound twice in one pattern
	ErrInvalidRegex      = "E109" // regex does not compile
	ErrInvalidWhere      = "E110" // where expression does not compile or is not boolean
	ErrInvalidVersion    = "E111" // unsupported document version
	ErrInvalidArgument   = "E112" // bad action argument (count, literal text)
)

// CompileError is a load-time failure in a pattern document.
type CompileError struct {
	Field   string
	Code    string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Line returns the 1-based line of the error, or 0 when unknown.
func (e *CompileError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Field: "cue", Code: ErrCUE, Message: err.Error()}
	}

	first := errs[0]
	ce := &CompileError{Field: "cue", Code: ErrCUE, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

// issueToCompileError converts a validation issue into a positioned CompileError.
func issueToCompileError(doc cue.Value, issue queryir.Issue) *CompileError {
	return &CompileError{
		Field:   issue.Field,
		Code:    codeForIssue(issue),
		Message: issue.Message,
		Pos:     positionOfIssue(doc, issue),
	}
}

// codeForIssue maps a queryir validation issue to a compile error code.
func codeForIssue(issue queryir.Issue) string {
	switch {
	case issue.Field == "version":
		return ErrInvalidVersion
	case strings.Contains(issue.Message, "is not bound"):
		return ErrUnboundCapture
	case strings.Contains(issue.Message, "bound more than once"):
		return ErrDuplicateCapture
	case strings.Contains(issue.Field, ".apply."), strings.HasPrefix(issue.Field, "settings."):
		return ErrInvalidArgument
	default:
		return ErrCUE
	}
}

// positionOfIssue resolves the CUE position of the field an issue names,
// falling back to the rule, then the document.
func positionOfIssue(doc cue.Value, issue queryir.Issue) token.Pos {
	if issue.Rule < 0 {
		if v := doc.LookupPath(cue.ParsePath(issue.Field)); v.Exists() {
			return v.Pos()
		}
		return doc.Pos()
	}
	rule := doc.LookupPath(cue.MakePath(cue.Str("rules"), cue.Index(issue.Rule)))
	if !rule.Exists() {
		return doc.Pos()
	}
	rest := strings.TrimPrefix(issue.Field, fmt.Sprintf("rules[%d].", issue.Rule))
	sels := []cue.Selector{}
	for _, part := range strings.Split(rest, ".") {
		if part != "" {
			sels = append(sels, cue.Str(part))
		}
	}
	if v := rule.LookupPath(cue.MakePath(sels...)); v.Exists() {
		return v.Pos()
	}
	return rule.Pos()
}
