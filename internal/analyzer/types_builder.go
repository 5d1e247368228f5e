package analyzer

import (
	"github.com/funvibe/bridje/internal/config"
	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/env"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/typesystem"
)

var (
	fnTypeSym      = symbols.Intern(config.FnTypeName)
	variantTypeSym = symbols.Intern(config.VariantTypeName)
)

// typeBuilder turns type forms into monotypes. Type variables are shared
// across one declaration.
type typeBuilder struct {
	a   *Analyzer
	tvs map[*symbols.Symbol]typesystem.TypeVar

	// alias is the alias being defined; it may appear in its own target.
	alias *typesystem.TypeAlias
}

func (a *Analyzer) newTypeBuilder() *typeBuilder {
	return &typeBuilder{a: a, tvs: map[*symbols.Symbol]typesystem.TypeVar{}}
}

func (b *typeBuilder) typeVar(sym *symbols.Symbol) typesystem.TypeVar {
	if tv, ok := b.tvs[sym]; ok {
		return tv
	}
	tv := typesystem.NewTypeVar()
	b.tvs[sym] = tv
	return tv
}

func (b *typeBuilder) buildAll(forms []reader.Form) ([]typesystem.MonoType, error) {
	out := make([]typesystem.MonoType, 0, len(forms))
	for _, f := range forms {
		t, err := b.build(f)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (b *typeBuilder) build(form reader.Form) (typesystem.MonoType, error) {
	switch f := form.(type) {
	case *reader.SymbolForm:
		if f.Sym.IsKeyword() {
			return nil, malformed(f.Loc, "unexpected keyword %s in type", f.Sym)
		}
		if p, ok := typesystem.PrimTypes[f.Sym.Name()]; ok {
			return p, nil
		}
		switch f.Sym.Kind() {
		case symbols.VarSym:
			return b.typeVar(f.Sym), nil
		case symbols.TypeAliasSym:
			return b.aliasRef(form, nil)
		}
		return nil, malformed(f.Loc, "invalid type %s", f.Sym)

	case *reader.QSymbolForm:
		return b.aliasRef(form, nil)

	case *reader.VectorForm:
		if len(f.Forms) != 1 {
			return nil, malformed(f.Loc, "vector type takes exactly one element type")
		}
		elem, err := b.build(f.Forms[0])
		if err != nil {
			return nil, err
		}
		return &typesystem.VectorType{Elem: elem}, nil

	case *reader.SetForm:
		if len(f.Forms) != 1 {
			return nil, malformed(f.Loc, "set type takes exactly one element type")
		}
		elem, err := b.build(f.Forms[0])
		if err != nil {
			return nil, err
		}
		return &typesystem.SetType{Elem: elem}, nil

	case *reader.RecordForm:
		return b.recordType(f)

	case *reader.ListForm:
		if len(f.Forms) == 0 {
			return nil, malformed(f.Loc, "empty type form")
		}
		if head, ok := f.Forms[0].(*reader.SymbolForm); ok {
			switch head.Sym {
			case fnTypeSym:
				return b.fnType(f.Forms[1:], f)
			case variantTypeSym:
				return b.variantType(f)
			}
		}
		return b.aliasRef(f.Forms[0], f.Forms[1:])
	}
	return nil, malformed(form.Pos(), "invalid type %s", form)
}

func (b *typeBuilder) fnType(forms []reader.Form, f *reader.ListForm) (typesystem.MonoType, error) {
	if len(forms) == 0 {
		return nil, malformed(f.Loc, "Fn type needs a return type")
	}
	ts, err := b.buildAll(forms)
	if err != nil {
		return nil, err
	}
	return &typesystem.FnType{Params: ts[:len(ts)-1], Return: ts[len(ts)-1]}, nil
}

// recordType builds a closed record from {:key ...}.
func (b *typeBuilder) recordType(f *reader.RecordForm) (typesystem.MonoType, error) {
	keys := typesystem.KeySet{}
	keyTypes := map[*typesystem.RecordKey][]typesystem.MonoType{}
	inst := typesystem.NewInstantiator()
	for _, kf := range f.Forms {
		kv, err := b.a.recordKeyVar(kf)
		if err != nil {
			return nil, err
		}
		keys[kv.Key] = struct{}{}
		keyTypes[kv.Key] = inst.InstantiateAll(kv.Key.TypeParams())
	}
	return &typesystem.RecordType{
		HasKeys:   keys,
		NeedsKeys: typesystem.KeySet{},
		KeyTypes:  keyTypes,
		Row:       typesystem.NewTypeVar(),
	}, nil
}

// variantType builds a closed variant from (+ :Tag (:Tag T...) ...). The
// tag's type parameters are solved from the given argument types.
func (b *typeBuilder) variantType(f *reader.ListForm) (typesystem.MonoType, error) {
	keys := map[*typesystem.VariantKey][]typesystem.MonoType{}
	for _, tf := range f.Forms[1:] {
		head, argForms := tf, []reader.Form(nil)
		if l, ok := tf.(*reader.ListForm); ok && len(l.Forms) > 0 {
			head, argForms = l.Forms[0], l.Forms[1:]
		}
		kv, err := b.a.variantKeyVar(head)
		if err != nil {
			return nil, err
		}
		key := kv.Key
		if len(argForms) != len(key.ParamTypes) {
			return nil, malformed(tf.Pos(), "%s takes %d type arguments, got %d", key.Sym, len(key.ParamTypes), len(argForms))
		}
		args, err := b.buildAll(argForms)
		if err != nil {
			return nil, err
		}

		inst := typesystem.NewInstantiator()
		eqs := make([]typesystem.TypeEq, len(args))
		for i, p := range inst.InstantiateAll(key.ParamTypes) {
			eqs[i] = typesystem.TypeEq{Left: p, Right: args[i]}
		}
		m, err := typesystem.UnifyEqs(eqs)
		if err != nil {
			return nil, diagnostics.AtPos(err, tf.Pos())
		}
		params := inst.InstantiateAll(key.TypeParams())
		for i, p := range params {
			params[i] = p.Apply(m)
		}
		keys[key] = params
	}
	return &typesystem.VariantType{Keys: keys, Row: typesystem.NewRowVar(false)}, nil
}

func (b *typeBuilder) aliasRef(head reader.Form, argForms []reader.Form) (typesystem.MonoType, error) {
	alias, err := b.resolveAlias(head)
	if err != nil {
		return nil, err
	}
	if len(argForms) != len(alias.TypeVars) {
		return nil, malformed(head.Pos(), "type %s takes %d parameters, got %d", alias.Sym, len(alias.TypeVars), len(argForms))
	}
	params, err := b.buildAll(argForms)
	if err != nil {
		return nil, err
	}
	return &typesystem.TypeAliasType{Alias: alias, Params: params}, nil
}

func (b *typeBuilder) resolveAlias(head reader.Form) (*typesystem.TypeAlias, error) {
	var (
		v   env.GlobalVar
		err error
	)
	switch h := head.(type) {
	case *reader.SymbolForm:
		if h.Sym.Kind() != symbols.TypeAliasSym {
			return nil, malformed(h.Loc, "expected a type, got %s", h.Sym)
		}
		if b.alias != nil && b.alias.Sym.Base == h.Sym {
			return b.alias, nil
		}
		v, err = b.a.resolver.Resolve(h.Sym, h.Loc)
	case *reader.QSymbolForm:
		v, err = b.a.resolver.ResolveQ(h.Sym, h.Loc)
	default:
		return nil, malformed(head.Pos(), "expected a type, got %s", head)
	}
	if err != nil {
		return nil, err
	}
	av, ok := v.(*env.TypeAliasVar)
	if !ok {
		return nil, malformed(head.Pos(), "%s is not a type", v.Sym())
	}
	return av.Alias, nil
}

// effectSet builds the effect set from #{effect ...}.
func (b *typeBuilder) effectSet(form reader.Form) (typesystem.EffectSet, error) {
	set, ok := form.(*reader.SetForm)
	if !ok {
		return nil, malformed(form.Pos(), "expected a set of effects, got %s", form)
	}
	fx := typesystem.NewEffectSet()
	for _, ef := range set.Forms {
		var (
			v   env.GlobalVar
			err error
		)
		switch e := ef.(type) {
		case *reader.SymbolForm:
			v, err = b.a.resolveGlobal(e.Sym, e.Loc)
		case *reader.QSymbolForm:
			v, err = b.a.resolver.ResolveQ(e.Sym, e.Loc)
		default:
			return nil, malformed(ef.Pos(), "expected an effect name, got %s", ef)
		}
		if err != nil {
			return nil, err
		}
		ev, ok := v.(*env.EffectVar)
		if !ok {
			return nil, malformed(ef.Pos(), "%s is not an effect", v.Sym())
		}
		fx[ev.QSym] = struct{}{}
	}
	return fx, nil
}
