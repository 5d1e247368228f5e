package evaluator

import (
	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/typesystem"
)

// Emitter turns committed declarations into runtime values. Any error it
// returns aborts the enclosing request.
type Emitter interface {
	// EvalValueExpr runs a closed, typed expression.
	EvalValueExpr(expr ast.ValueExpr) (any, error)
	// EmitRecordKey produces the accessor function of a record key.
	EmitRecordKey(key *typesystem.RecordKey) (any, error)
	// EmitVariantKey produces the constructor of a variant tag.
	EmitVariantKey(key *typesystem.VariantKey) (any, error)
	// EmitEffectFn produces a function that dispatches to the nearest
	// handler of sym, else to defaultImpl (which may be nil).
	EmitEffectFn(sym *symbols.QSymbol, defaultImpl any) (any, error)
	// EmitDefMacroVar produces the expansion function of a macro.
	EmitDefMacroVar(expr *ast.DefMacroExpr, ns *symbols.Symbol) (env.MacroFunc, error)
	// EmitHostImport produces a function of a host package, checking that
	// it has the declared type.
	EmitHostImport(decl *ast.HostImportDecl) (any, error)
}
