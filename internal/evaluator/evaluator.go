// Package evaluator loads namespaces: it resolves their dependencies, then
// analyses, types and commits each top-level form in order.
package evaluator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/funvibe/bridje/internal/analyzer"
	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/config"
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/modules"
	"github.com/funvibe/bridje/internal/pipeline"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
	"github.com/funvibe/bridje/internal/typesystem"
)

// Evaluator owns the environment store. Requests are serialised: one
// require or eval commits at a time. Each namespace is published only once
// all of its forms have committed, so a failed request keeps the namespaces
// it completed before failing and none of the one that failed.
type Evaluator struct {
	store         *env.Store
	emitter       Emitter
	source        modules.Source
	logger        *slog.Logger
	maxMacroDepth int
}

type Option func(*Evaluator)

// WithSource sets where namespaces are read from.
func WithSource(s modules.Source) Option {
	return func(e *Evaluator) { e.source = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

func WithMaxMacroDepth(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxMacroDepth = n
		}
	}
}

func New(store *env.Store, emitter Emitter, opts ...Option) *Evaluator {
	e := &Evaluator{
		store:         store,
		emitter:       emitter,
		source:        modules.MapSource{},
		logger:        slog.Default(),
		maxMacroDepth: config.DefaultMaxMacroDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result describes a completed require.
type Result struct {
	RequestID string
	Committed []*symbols.Symbol
	Version   uint64
}

// Value is the outcome of evaluating forms in a namespace: the value and
// type of the last form.
type Value struct {
	RequestID string
	Value     any
	Type      typesystem.Type
	Decl      ast.Decl
}

// Env returns the latest committed environment.
func (e *Evaluator) Env() *env.RuntimeEnv { return e.store.Snapshot() }

// Install commits a namespace built outside the evaluator, such as the
// host's core namespace.
func (e *Evaluator) Install(nsEnv *env.NSEnv) {
	_ = e.store.Exclusive(func() error {
		e.store.Publish(e.store.Snapshot().Merge(nsEnv))
		return nil
	})
}

// Require loads roots and everything they depend on that is not loaded
// yet, dependencies first.
func (e *Evaluator) Require(ctx context.Context, roots ...*symbols.Symbol) (*Result, error) {
	res := &Result{RequestID: uuid.NewString()}
	logger := e.logger.With("request", res.RequestID)

	err := e.store.Exclusive(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		committed, err := e.require(res.RequestID, logger, roots)
		res.Committed = committed
		return err
	})
	res.Version = e.store.Snapshot().Version
	if err != nil {
		logger.Debug("require failed", "error", err)
		return res, err
	}
	return res, nil
}

// require runs inside Exclusive.
func (e *Evaluator) require(reqID string, logger *slog.Logger, roots []*symbols.Symbol) ([]*symbols.Symbol, error) {
	logger.Debug("stage", "stage", pipeline.Resolving.String())
	files, err := modules.NewResolver(e.source, e.store.Snapshot().Has).Resolve(roots)
	if err != nil {
		return nil, &pipeline.StageError{Stage: pipeline.Resolving, Err: err}
	}

	var committed []*symbols.Symbol
	for _, f := range files {
		nsEnv, err := e.importHosts(logger, env.NewNSEnv(f.Header.NS, f.Header))
		if err != nil {
			return committed, &pipeline.StageError{Stage: pipeline.Analysing, NS: f.Header.NS.String(), Err: err}
		}
		if _, err := e.evalForms(reqID, logger, nsEnv, f.Forms); err != nil {
			e.store.Discard()
			return committed, err
		}
		e.store.Publish(e.store.Working())
		committed = append(committed, f.Header.NS)
		logger.Info("namespace committed", "ns", f.Header.NS.String(), "forms", len(f.Forms))
	}
	return committed, nil
}

// importHosts binds the host functions the namespace header imports.
func (e *Evaluator) importHosts(logger *slog.Logger, nsEnv *env.NSEnv) (*env.NSEnv, error) {
	if len(nsEnv.Header.Hosts) == 0 {
		return nsEnv, nil
	}
	decls, err := analyzer.New(e.store.Working(), nsEnv, analyzer.WithLogger(logger)).HostImports()
	if err != nil {
		return nil, err
	}
	for _, d := range decls {
		q := symbols.Qualify(d.Alias, d.Sym)
		val, err := e.emitter.EmitHostImport(d)
		if err != nil {
			return nil, emitterError(err, d.Loc, "importing %s from host package %s", q, d.Package)
		}
		nsEnv = nsEnv.DeclareHost(&env.DefVar{QSym: q, T: d.Type, Value: val, Defined: true})
		logger.Debug("host import", "ns", nsEnv.NS.String(), "name", q.String(), "type", d.Type.String())
	}
	return nsEnv, nil
}

// Eval evaluates forms in ns. A namespace that is not loaded is required
// first when the source has it, and created empty otherwise. The forms
// commit together: when one fails, none of them is kept.
func (e *Evaluator) Eval(ctx context.Context, ns *symbols.Symbol, forms ...reader.Form) (*Value, error) {
	reqID := uuid.NewString()
	logger := e.logger.With("request", reqID)

	var out *Value
	err := e.store.Exclusive(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		nsEnv, ok := e.store.Snapshot().NS(ns)
		if !ok {
			var err error
			if nsEnv, err = e.loadOrCreate(reqID, logger, ns); err != nil {
				return err
			}
		}
		v, err := e.evalForms(reqID, logger, nsEnv, forms)
		if err != nil {
			return err
		}
		e.store.Publish(e.store.Working())
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.RequestID = reqID
	return out, nil
}

// loadOrCreate runs inside Exclusive.
func (e *Evaluator) loadOrCreate(reqID string, logger *slog.Logger, ns *symbols.Symbol) (*env.NSEnv, error) {
	if _, err := e.source.Forms(ns); errors.Is(err, modules.ErrNotFound) {
		logger.Debug("creating namespace", "ns", ns.String())
		return env.NewNSEnv(ns, nil), nil
	}
	if _, err := e.require(reqID, logger, []*symbols.Symbol{ns}); err != nil {
		return nil, err
	}
	nsEnv, _ := e.store.Snapshot().NS(ns)
	return nsEnv, nil
}

// EvalString reads src and evaluates its forms in ns.
func (e *Evaluator) EvalString(ctx context.Context, ns *symbols.Symbol, src string) (*Value, error) {
	forms, err := reader.ReadString(src, "<eval "+ns.String()+">")
	if err != nil {
		return nil, err
	}
	return e.Eval(ctx, ns, forms...)
}

// TypeOf reports the type of a loaded global.
func (e *Evaluator) TypeOf(ns, name *symbols.Symbol) (typesystem.Type, error) {
	nsEnv, ok := e.store.Snapshot().NS(ns)
	if !ok {
		return typesystem.Type{}, diagnostics.NewError(diagnostics.ErrUnknownNamespace, token.Position{}, "namespace %s is not loaded", ns)
	}
	v, ok := nsEnv.Get(name)
	if !ok {
		return typesystem.Type{}, diagnostics.NewError(diagnostics.ErrUnresolvedSymbol, token.Position{}, "%s has no %s", ns, name)
	}
	return v.Type(), nil
}

// evalForms analyses, types and commits each form in turn, staging the
// namespace after every commit so that later forms and macros see it. The
// caller publishes the staged environment or discards it.
func (e *Evaluator) evalForms(reqID string, logger *slog.Logger, nsEnv *env.NSEnv, forms []reader.Form) (*Value, error) {
	a := analyzer.New(e.store.Working(), nsEnv,
		analyzer.WithLogger(logger),
		analyzer.WithMaxMacroDepth(e.maxMacroDepth))
	e.store.Stage(e.store.Working().Merge(nsEnv))

	p := pipeline.New(
		&analyseStep{a: a},
		&typeStep{a: a},
		&commitStep{e: e, a: a},
	)

	out := &Value{}
	pctx := pipeline.NewContext(reqID, nsEnv.NS, e.logger)
	for _, form := range analyzer.FlattenDecls(forms) {
		pctx = p.Run(pctx.Reset(form))
		if pctx.Err != nil {
			return nil, pctx.Err
		}
		pctx.Enter(pipeline.Done)
		out.Value, out.Decl, out.Type = pctx.Value, pctx.Decl, declType(pctx.Decl)
	}
	return out, nil
}

func declType(d ast.Decl) typesystem.Type {
	switch d := d.(type) {
	case *ast.ExprDecl:
		return d.Type
	case *ast.DefExpr:
		return d.Type
	case *ast.VarDeclExpr:
		return d.Type
	case *ast.DefMacroExpr:
		return d.Type
	}
	return typesystem.Type{}
}
