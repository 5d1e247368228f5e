package analyzer

import (
	"github.com/funvibe/bridje/internal/ast"
	"github.com/funvibe/bridje/internal/symbols"
)

// scope is the lexical state threaded through expression analysis. It is
// passed by value; extending it never affects the caller's copy.
type scope struct {
	locals map[*symbols.Symbol]ast.LocalVar

	// recur target; hasLoop is false outside any loop or fn body and in
	// non-tail positions.
	loop    []ast.LocalVar
	hasLoop bool

	fx ast.LocalVar
}

func topScope() scope {
	return scope{locals: map[*symbols.Symbol]ast.LocalVar{}, fx: ast.DefaultEffectLocal}
}

func (s scope) local(sym *symbols.Symbol) (ast.LocalVar, bool) {
	lv, ok := s.locals[sym]
	return lv, ok
}

func (s scope) bind(lvs ...ast.LocalVar) scope {
	locals := make(map[*symbols.Symbol]ast.LocalVar, len(s.locals)+len(lvs))
	for k, v := range s.locals {
		locals[k] = v
	}
	for _, lv := range lvs {
		locals[lv.Sym] = lv
	}
	s.locals = locals
	return s
}

func (s scope) nonTail() scope {
	s.loop = nil
	s.hasLoop = false
	return s
}

func (s scope) withLoop(lvs []ast.LocalVar) scope {
	s.loop = lvs
	s.hasLoop = true
	return s
}

func (s scope) withFx(fx ast.LocalVar) scope {
	s.fx = fx
	return s
}
