package ast

// FreeLocals returns the locals expr reads but does not bind, in order of
// first reference.
func FreeLocals(expr ValueExpr) []LocalVar {
	c := &freeCollector{seen: map[LocalVar]bool{}}
	c.walk(expr, map[LocalVar]bool{})
	return c.out
}

type freeCollector struct {
	seen map[LocalVar]bool
	out  []LocalVar
}

func (c *freeCollector) ref(lv LocalVar, bound map[LocalVar]bool) {
	if !bound[lv] && !c.seen[lv] {
		c.seen[lv] = true
		c.out = append(c.out, lv)
	}
}

func with(bound map[LocalVar]bool, lvs ...LocalVar) map[LocalVar]bool {
	out := make(map[LocalVar]bool, len(bound)+len(lvs))
	for k := range bound {
		out[k] = true
	}
	for _, lv := range lvs {
		out[lv] = true
	}
	return out
}

func (c *freeCollector) walkAll(exprs []ValueExpr, bound map[LocalVar]bool) {
	for _, e := range exprs {
		c.walk(e, bound)
	}
}

func (c *freeCollector) walk(expr ValueExpr, bound map[LocalVar]bool) {
	switch e := expr.(type) {
	case *LocalVarExpr:
		c.ref(e.Local, bound)
	case *VectorExpr:
		c.walkAll(e.Exprs, bound)
	case *SetExpr:
		c.walkAll(e.Exprs, bound)
	case *RecordExpr:
		for _, entry := range e.Entries {
			c.walk(entry.Expr, bound)
		}
	case *IfExpr:
		c.walk(e.Pred, bound)
		c.walk(e.Then, bound)
		c.walk(e.Else, bound)
	case *DoExpr:
		c.walkAll(e.Exprs, bound)
		c.walk(e.Expr, bound)
	case *LetExpr:
		inner := bound
		for _, b := range e.Bindings {
			c.walk(b.Expr, inner)
			inner = with(inner, b.Local)
		}
		c.walk(e.Body, inner)
	case *LoopExpr:
		locals := make([]LocalVar, len(e.Bindings))
		for i, b := range e.Bindings {
			c.walk(b.Expr, bound)
			locals[i] = b.Local
		}
		c.walk(e.Body, with(bound, locals...))
	case *RecurExpr:
		for _, b := range e.Bindings {
			c.walk(b.Expr, bound)
		}
	case *FnExpr:
		inner := with(bound, e.Params...)
		if e.Self != nil {
			inner = with(inner, *e.Self)
		}
		if e.FxLocal != nil {
			inner = with(inner, *e.FxLocal)
		}
		c.walk(e.Body, inner)
	case *CallExpr:
		c.walk(e.Fn, bound)
		if e.EffectArg != nil {
			c.ref(e.EffectArg.Local, bound)
		}
		c.walkAll(e.Args, bound)
	case *CaseExpr:
		c.walk(e.Expr, bound)
		for _, cl := range e.Clauses {
			c.walk(cl.Body, with(bound, cl.Bindings...))
		}
		if e.Default != nil {
			c.walk(e.Default, bound)
		}
	case *WithFxExpr:
		c.ref(e.OldFx, bound)
		for _, fx := range e.Fx {
			c.walk(fx.Fn, bound)
		}
		c.walk(e.Body, with(bound, e.NewFx))
	}
}
