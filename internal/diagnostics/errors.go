// Package diagnostics defines the compile-time error taxonomy.
package diagnostics

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/funvibe/bridje/internal/token"
)

type ErrorCode string

const (
	// Namespace loading
	ErrCyclicNamespace   ErrorCode = "N001"
	ErrNamespaceNotFound ErrorCode = "N002"
	ErrUnknownNamespace  ErrorCode = "N003"

	// Analysis
	ErrUnresolvedSymbol     ErrorCode = "A001"
	ErrMalformedSpecialForm ErrorCode = "A002"
	ErrRecurOutsideLoop     ErrorCode = "A003"
	ErrRecurArityMismatch   ErrorCode = "A004"
	ErrMacroExpansion       ErrorCode = "A005"

	// Typing
	ErrTypeMismatch      ErrorCode = "T001"
	ErrMissingRecordKeys ErrorCode = "T002"
	ErrMissingVariantTag ErrorCode = "T003"
	ErrSignatureMismatch ErrorCode = "T004"

	// Backend
	ErrEmitter ErrorCode = "R001"

	// Reader
	ErrSyntax ErrorCode = "S001"
)

var codeNames = map[ErrorCode]string{
	ErrCyclicNamespace:      "cyclic namespace",
	ErrNamespaceNotFound:    "namespace not found",
	ErrUnknownNamespace:     "unknown namespace",
	ErrUnresolvedSymbol:     "unresolved symbol",
	ErrMalformedSpecialForm: "malformed special form",
	ErrRecurOutsideLoop:     "recur outside loop",
	ErrRecurArityMismatch:   "recur arity mismatch",
	ErrMacroExpansion:       "macro expansion error",
	ErrTypeMismatch:         "type mismatch",
	ErrMissingRecordKeys:    "missing record keys",
	ErrMissingVariantTag:    "missing variant tags",
	ErrSignatureMismatch:    "signature mismatch",
	ErrEmitter:              "emitter error",
	ErrSyntax:               "syntax error",
}

func (c ErrorCode) Name() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return string(c)
}

// DiagnosticError is the single error type produced by the front end.
type DiagnosticError struct {
	Code     ErrorCode
	Pos      token.Position
	Message  string
	Subjects []string // cycle members, missing keys, missing tags
	Err      error
}

func (e *DiagnosticError) Error() string {
	var sb strings.Builder
	if !e.Pos.IsZero() {
		sb.WriteString(e.Pos.String())
		sb.WriteString(": ")
	}
	sb.WriteString("error[")
	sb.WriteString(string(e.Code))
	sb.WriteString("] ")
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *DiagnosticError) Unwrap() error { return e.Err }

func NewError(code ErrorCode, pos token.Position, format string, args ...any) *DiagnosticError {
	return &DiagnosticError{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// WithSubjects attaches sorted subject names to the error.
func (e *DiagnosticError) WithSubjects(subjects ...string) *DiagnosticError {
	s := append([]string(nil), subjects...)
	sort.Strings(s)
	e.Subjects = s
	return e
}

// Wrap builds an error of the given code around a cause.
func Wrap(code ErrorCode, pos token.Position, err error, format string, args ...any) *DiagnosticError {
	return &DiagnosticError{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of the outermost DiagnosticError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HasCode reports whether any DiagnosticError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if de, ok := err.(*DiagnosticError); ok && de.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// Find returns the first DiagnosticError in err's chain carrying code.
func Find(err error, code ErrorCode) *DiagnosticError {
	for err != nil {
		if de, ok := err.(*DiagnosticError); ok && de.Code == code {
			return de
		}
		err = errors.Unwrap(err)
	}
	return nil
}

// AtPos fills in a position on errors that have none.
func AtPos(err error, pos token.Position) error {
	var de *DiagnosticError
	if errors.As(err, &de) && de.Pos.IsZero() {
		de.Pos = pos
	}
	return err
}
