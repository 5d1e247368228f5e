package typesystem

// Instantiator replaces type and row variables with fresh ones, reusing the
// same fresh variable for repeated occurrences within one instantiation.
type Instantiator struct {
	types map[TypeVar]TypeVar
	rows  map[RowVar]RowVar
}

func NewInstantiator() *Instantiator {
	return &Instantiator{types: map[TypeVar]TypeVar{}, rows: map[RowVar]RowVar{}}
}

func (in *Instantiator) TypeVar(tv TypeVar) TypeVar {
	if fresh, ok := in.types[tv]; ok {
		return fresh
	}
	fresh := NewTypeVar()
	in.types[tv] = fresh
	return fresh
}

func (in *Instantiator) RowVar(rv RowVar) RowVar {
	if fresh, ok := in.rows[rv]; ok {
		return fresh
	}
	fresh := NewRowVar(rv.Open)
	in.rows[rv] = fresh
	return fresh
}

func (in *Instantiator) Instantiate(t MonoType) MonoType {
	switch t := t.(type) {
	case TypeVar:
		return in.TypeVar(t)
	case *RecordType:
		r := t.Map(in.Instantiate).(*RecordType)
		r.Row = in.TypeVar(t.Row)
		return r
	case *VariantType:
		v := t.Map(in.Instantiate).(*VariantType)
		v.Row = in.RowVar(t.Row)
		return v
	}
	return t.Map(in.Instantiate)
}

// InstantiateAll instantiates each type with a shared memo.
func (in *Instantiator) InstantiateAll(ts []MonoType) []MonoType {
	return mapTypes(ts, in.Instantiate)
}
