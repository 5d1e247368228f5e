package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
)

type Stage int

const (
	Pending Stage = iota
	Resolving
	Analysing
	Typing
	Committing
	Done
)

var stageNames = [...]string{"pending", "resolving", "analysing", "typing", "committing", "done"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Processor is one stage of the pipeline.
type Processor interface {
	Stage() Stage
	Process(ctx *Context) *Context
}

// Context carries one top-level form of a request through analysis,
// typing and commit.
type Context struct {
	RequestID string
	Stage     Stage
	NS        *symbols.Symbol
	Logger    *slog.Logger

	Form  reader.Form
	Decl  ast.Decl
	Value any

	Err error
}

func NewContext(requestID string, ns *symbols.Symbol, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{RequestID: requestID, Stage: Pending, NS: ns, Logger: logger}
}

// Reset prepares the context for the next form of the same namespace.
func (c *Context) Reset(form reader.Form) *Context {
	c.Form, c.Decl, c.Value, c.Err = form, nil, nil, nil
	c.Stage = Pending
	return c
}

// Enter moves the context to stage s.
func (c *Context) Enter(s Stage) {
	c.Stage = s
	c.Logger.Debug("stage", "request", c.RequestID, "ns", c.NSName(), "stage", s.String())
}

func (c *Context) NSName() string {
	if c.NS == nil {
		return ""
	}
	return c.NS.String()
}

// StageError records where a request failed. It unwraps to the cause.
type StageError struct {
	Stage Stage
	NS    string
	Err   error
}

func (e *StageError) Error() string {
	if e.NS == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.NS, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
