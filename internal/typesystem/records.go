package typesystem

import (
	"strings"
)

// RecordType is a row-polymorphic record.
//
// HasKeys is the exact key set when known and nil when the record is open.
// NeedsKeys are keys the record is required to carry. KeyTypes holds one
// instantiation of each mentioned key's type parameters. Row stands for
// everything not yet known about the record.
type RecordType struct {
	HasKeys   KeySet
	NeedsKeys KeySet
	KeyTypes  map[*RecordKey][]MonoType
	Row       TypeVar
}

// AccessorType is the type of a record key used as a function:
// it accepts any record that carries the key.
func AccessorType(key *RecordKey) Type {
	rec := &RecordType{
		NeedsKeys: NewKeySet(key),
		KeyTypes:  map[*RecordKey][]MonoType{key: key.TypeParams()},
		Row:       NewTypeVar(),
	}
	return Type{Mono: &FnType{Params: []MonoType{rec}, Return: key.Type}}
}

// required returns every key this record must carry.
func (r *RecordType) required() KeySet {
	if r.HasKeys == nil {
		return r.NeedsKeys
	}
	return r.NeedsKeys.Union(r.HasKeys)
}

func (r *RecordType) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	if r.HasKeys != nil {
		sb.WriteString(r.HasKeys.String())
	} else {
		sb.WriteString(r.NeedsKeys.String())
		if len(r.NeedsKeys) > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("| ")
		sb.WriteString(r.Row.String())
	}
	sb.WriteString("}")
	return sb.String()
}

func (r *RecordType) UnifyEq(other MonoType) (Unification, error) {
	o, ok := other.(*RecordType)
	if !ok {
		return Unification{}, mismatch(r, other)
	}

	var keyEqs []TypeEq
	for _, k := range NewKeySet(keysOf(r.KeyTypes)...).Sorted() {
		ops, ok := o.KeyTypes[k]
		if !ok {
			continue
		}
		ps := r.KeyTypes[k]
		for i := 0; i < len(ps) && i < len(ops); i++ {
			keyEqs = append(keyEqs, TypeEq{ps[i], ops[i]})
		}
	}

	if r.Row == o.Row {
		return Unification{TypeEqs: keyEqs}, nil
	}

	missing := KeySet{}
	if o.HasKeys != nil {
		missing = missing.Union(r.required().Minus(o.HasKeys))
	}
	if r.HasKeys != nil {
		missing = missing.Union(o.required().Minus(r.HasKeys))
	}
	if len(missing) > 0 {
		return Unification{}, missingKeys(r, o, missing)
	}

	row := NewTypeVar()
	eqs := []TypeEq{
		{r.Row, &RecordType{HasKeys: o.HasKeys, NeedsKeys: o.NeedsKeys, KeyTypes: o.KeyTypes, Row: row}},
		{o.Row, &RecordType{HasKeys: r.HasKeys, NeedsKeys: r.NeedsKeys, KeyTypes: r.KeyTypes, Row: row}},
	}
	return Unification{TypeEqs: append(eqs, keyEqs...)}, nil
}

func (r *RecordType) Map(f func(MonoType) MonoType) MonoType {
	kts := make(map[*RecordKey][]MonoType, len(r.KeyTypes))
	for k, ps := range r.KeyTypes {
		kts[k] = mapTypes(ps, f)
	}
	return &RecordType{HasKeys: r.HasKeys, NeedsKeys: r.NeedsKeys, KeyTypes: kts, Row: r.Row}
}

// Apply merges in whatever the mapping has learned about the row.
func (r *RecordType) Apply(m Mapping) MonoType {
	res := r
rows:
	for i := 0; i <= len(m.Types); i++ {
		switch b := m.Types[res.Row].(type) {
		case *RecordType:
			res = res.merge(b)
		case TypeVar:
			res = &RecordType{HasKeys: res.HasKeys, NeedsKeys: res.NeedsKeys, KeyTypes: res.KeyTypes, Row: b}
		default:
			break rows
		}
	}
	return res.Map(applyWith(m))
}

func (r *RecordType) merge(o *RecordType) *RecordType {
	has := r.HasKeys
	if has == nil {
		has = o.HasKeys
	}
	kts := make(map[*RecordKey][]MonoType, len(r.KeyTypes)+len(o.KeyTypes))
	for k, ps := range o.KeyTypes {
		kts[k] = ps
	}
	for k, ps := range r.KeyTypes {
		kts[k] = ps
	}
	return &RecordType{HasKeys: has, NeedsKeys: r.NeedsKeys.Union(o.NeedsKeys), KeyTypes: kts, Row: o.Row}
}

func (r *RecordType) FreeTypeVars() []TypeVar {
	var ts []MonoType
	for _, k := range NewKeySet(keysOf(r.KeyTypes)...).Sorted() {
		ts = append(ts, r.KeyTypes[k]...)
	}
	ts = append(ts, r.Row)
	return collectFTVs(ts...)
}

func keysOf(m map[*RecordKey][]MonoType) []*RecordKey {
	out := make([]*RecordKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
