package typesystem

import (
	"reflect"
	"testing"

	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/symbols"
)

var (
	firstNameKey = NewRecordKey(symbols.InternQ(":user/first-name"), StrType)
	lastNameKey  = NewRecordKey(symbols.InternQ(":user/last-name"), StrType)
	ageKey       = NewRecordKey(symbols.InternQ(":user/age"), IntType)
)

func closedRecord(keys ...*RecordKey) *RecordType {
	kts := map[*RecordKey][]MonoType{}
	for _, k := range keys {
		kts[k] = k.TypeParams()
	}
	return &RecordType{HasKeys: NewKeySet(keys...), NeedsKeys: KeySet{}, KeyTypes: kts, Row: NewTypeVar()}
}

func openRecord(needs ...*RecordKey) *RecordType {
	kts := map[*RecordKey][]MonoType{}
	for _, k := range needs {
		kts[k] = k.TypeParams()
	}
	return &RecordType{NeedsKeys: NewKeySet(needs...), KeyTypes: kts, Row: NewTypeVar()}
}

func mustUnify(t *testing.T, t1, t2 MonoType) Mapping {
	t.Helper()
	m, err := Unify(t1, t2)
	if err != nil {
		t.Fatalf("Unify(%s, %s): unexpected error: %v", t1, t2, err)
	}
	return m
}

func expectUnifyError(t *testing.T, t1, t2 MonoType, code diagnostics.ErrorCode) *diagnostics.DiagnosticError {
	t.Helper()
	_, err := Unify(t1, t2)
	if err == nil {
		t.Fatalf("Unify(%s, %s): expected %s, got success", t1, t2, code)
	}
	de := diagnostics.Find(err, code)
	if de == nil {
		t.Fatalf("Unify(%s, %s): expected %s, got %v", t1, t2, code, err)
	}
	return de
}

func TestUnifySimple(t *testing.T) {
	a := NewTypeVar()
	b := NewTypeVar()

	m := mustUnify(t, &FnType{Params: []MonoType{a}, Return: a}, &FnType{Params: []MonoType{IntType}, Return: b})
	if got := b.Apply(m); got != IntType {
		t.Errorf("b = %s, want Int", got)
	}

	m = mustUnify(t, &VectorType{Elem: a}, &VectorType{Elem: &SetType{Elem: StrType}})
	if got := a.Apply(m).String(); got != "#{Str}" {
		t.Errorf("a = %s, want #{Str}", got)
	}

	tests := []struct {
		name   string
		t1, t2 MonoType
	}{
		{"prim", IntType, StrType},
		{"vector vs set", &VectorType{Elem: IntType}, &SetType{Elem: IntType}},
		{"fn arity", &FnType{Params: []MonoType{IntType}, Return: IntType}, &FnType{Return: IntType}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectUnifyError(t, tt.t1, tt.t2, diagnostics.ErrTypeMismatch)
		})
	}
}

func TestUnifyOccursCheck(t *testing.T) {
	a := NewTypeVar()
	expectUnifyError(t, a, &VectorType{Elem: a}, diagnostics.ErrTypeMismatch)
}

func TestRecordOpenAbsorbsClosed(t *testing.T) {
	closed := closedRecord(firstNameKey, lastNameKey)
	open := openRecord()

	m := mustUnify(t, closed, open)

	gotOpen := open.Apply(m).(*RecordType)
	gotClosed := closed.Apply(m).(*RecordType)

	if gotOpen.HasKeys == nil || !gotOpen.HasKeys.Equal(NewKeySet(firstNameKey, lastNameKey)) {
		t.Errorf("open side has keys %v, want exactly first-name and last-name", gotOpen.HasKeys)
	}
	if !Equal(gotOpen, gotClosed) {
		t.Errorf("sides differ after unification: %s vs %s", gotOpen, gotClosed)
	}
}

func TestRecordNeedsKeys(t *testing.T) {
	needs := openRecord(firstNameKey)
	closed := closedRecord(firstNameKey, ageKey)

	m := mustUnify(t, needs, closed)
	got := needs.Apply(m).(*RecordType)
	if !got.HasKeys.Equal(NewKeySet(firstNameKey, ageKey)) {
		t.Errorf("has keys = %v", got.HasKeys)
	}
	if !got.NeedsKeys.Has(firstNameKey) {
		t.Errorf("needs keys lost first-name: %v", got.NeedsKeys)
	}

	de := expectUnifyError(t, openRecord(lastNameKey), closedRecord(firstNameKey), diagnostics.ErrMissingRecordKeys)
	if want := []string{":user/last-name"}; !reflect.DeepEqual(de.Subjects, want) {
		t.Errorf("subjects = %v, want %v", de.Subjects, want)
	}
}

func TestRecordOpenMergesNeeds(t *testing.T) {
	left := openRecord(firstNameKey)
	right := openRecord(lastNameKey)

	m := mustUnify(t, left, right)
	got := left.Apply(m).(*RecordType)
	if got.HasKeys != nil {
		t.Errorf("expected record to stay open, got %s", got)
	}
	if !got.NeedsKeys.Equal(NewKeySet(firstNameKey, lastNameKey)) {
		t.Errorf("needs keys = %v", got.NeedsKeys)
	}
	if !Equal(got, right.Apply(m)) {
		t.Errorf("sides differ: %s vs %s", got, right.Apply(m))
	}
}

func TestRecordClosedDisjoint(t *testing.T) {
	de := expectUnifyError(t, closedRecord(firstNameKey), closedRecord(lastNameKey), diagnostics.ErrMissingRecordKeys)
	want := []string{":user/first-name", ":user/last-name"}
	if !reflect.DeepEqual(de.Subjects, want) {
		t.Errorf("subjects = %v, want %v", de.Subjects, want)
	}
}

func TestRecordKeyTypeParams(t *testing.T) {
	a := NewTypeVar()
	itemsKey := NewRecordKey(symbols.InternQ(":user/items"), &VectorType{Elem: a})

	x, y := NewTypeVar(), NewTypeVar()
	left := &RecordType{HasKeys: NewKeySet(itemsKey), NeedsKeys: KeySet{}, KeyTypes: map[*RecordKey][]MonoType{itemsKey: {x}}, Row: NewTypeVar()}
	right := &RecordType{NeedsKeys: NewKeySet(itemsKey), KeyTypes: map[*RecordKey][]MonoType{itemsKey: {y}}, Row: NewTypeVar()}

	m := mustUnify(t, left, right)
	if !Equal(x.Apply(m), y.Apply(m)) {
		t.Errorf("shared key params not unified: %s vs %s", x.Apply(m), y.Apply(m))
	}
}

func TestVariantExhaustiveness(t *testing.T) {
	some := NewVariantKey(symbols.InternQ(":opt/Some"), []MonoType{IntType})
	none := NewVariantKey(symbols.InternQ(":opt/None"), nil)

	scrutinee := func() *VariantType {
		return &VariantType{Keys: map[*VariantKey][]MonoType{some: {}, none: {}}, Row: NewRowVar(false)}
	}

	onlySome := &VariantType{Keys: map[*VariantKey][]MonoType{some: {}}, Row: NewRowVar(false)}
	de := expectUnifyError(t, scrutinee(), onlySome, diagnostics.ErrMissingVariantTag)
	if want := []string{":opt/None"}; !reflect.DeepEqual(de.Subjects, want) {
		t.Errorf("subjects = %v, want %v", de.Subjects, want)
	}

	withDefault := &VariantType{Keys: map[*VariantKey][]MonoType{some: {}}, Row: NewRowVar(true)}
	s := scrutinee()
	m := mustUnify(t, s, withDefault)
	got := withDefault.Apply(m).(*VariantType)
	if len(got.Keys) != 2 {
		t.Errorf("case variant should absorb both tags, got %s", got)
	}
	if got.Row.Open {
		t.Errorf("unifying with a closed variant should close the row, got %s", got.Row)
	}
}

func TestVariantOpenRows(t *testing.T) {
	a := NewVariantKey(symbols.InternQ(":v/A"), nil)
	b := NewVariantKey(symbols.InternQ(":v/B"), nil)

	left := &VariantType{Keys: map[*VariantKey][]MonoType{a: {}}, Row: NewRowVar(true)}
	right := &VariantType{Keys: map[*VariantKey][]MonoType{b: {}}, Row: NewRowVar(true)}

	m := mustUnify(t, left, right)
	gl := left.Apply(m).(*VariantType)
	gr := right.Apply(m).(*VariantType)
	if !Equal(gl, gr) {
		t.Errorf("sides differ: %s vs %s", gl, gr)
	}
	if len(gl.Keys) != 2 || !gl.Row.Open {
		t.Errorf("expected open variant of A and B, got %s", gl)
	}
}

func TestConstructorType(t *testing.T) {
	a := NewTypeVar()
	just := NewVariantKey(symbols.InternQ(":opt/Just"), []MonoType{a})

	ct := ConstructorType(just)
	fn, ok := ct.Mono.(*FnType)
	if !ok {
		t.Fatalf("constructor type = %s, want a function", ct)
	}

	in := NewInstantiator()
	inst := in.Instantiate(fn).(*FnType)
	m := mustUnify(t, inst.Params[0], IntType)
	v := inst.Return.Apply(m).(*VariantType)
	if got := v.Keys[just][0]; got != IntType {
		t.Errorf("Just param = %s, want Int", got)
	}
}

func TestTypeAlias(t *testing.T) {
	alias := NewTypeAlias(symbols.InternQ("user/Name"), nil)

	ref := &TypeAliasType{Alias: alias}
	expectUnifyError(t, ref, StrType, diagnostics.ErrTypeMismatch)

	if err := alias.SetTarget(StrType); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if err := alias.SetTarget(IntType); err == nil {
		t.Errorf("second SetTarget should fail")
	}

	mustUnify(t, ref, StrType)
	mustUnify(t, StrType, ref)
	expectUnifyError(t, ref, IntType, diagnostics.ErrTypeMismatch)

	tv := NewTypeVar()
	m := mustUnify(t, tv, ref)
	if got := tv.Apply(m); got != MonoType(ref) {
		t.Errorf("type var bound to %s, want the alias itself", got)
	}
}

func TestParameterisedAlias(t *testing.T) {
	a := NewTypeVar()
	pair := NewTypeAlias(symbols.InternQ("user/Pair"), []TypeVar{a})
	if err := pair.SetTarget(&VectorType{Elem: a}); err != nil {
		t.Fatal(err)
	}

	x := NewTypeVar()
	m := mustUnify(t, &TypeAliasType{Alias: pair, Params: []MonoType{IntType}}, &VectorType{Elem: x})
	if got := x.Apply(m); got != IntType {
		t.Errorf("x = %s, want Int", got)
	}

	y := NewTypeVar()
	m = mustUnify(t, &TypeAliasType{Alias: pair, Params: []MonoType{y}}, &TypeAliasType{Alias: pair, Params: []MonoType{StrType}})
	if got := y.Apply(m); got != StrType {
		t.Errorf("y = %s, want Str", got)
	}
}

func TestInstantiatorMemo(t *testing.T) {
	a := NewTypeVar()
	fn := &FnType{Params: []MonoType{a, a}, Return: &VectorType{Elem: a}}

	in := NewInstantiator()
	got := in.Instantiate(fn).(*FnType)
	p0 := got.Params[0].(TypeVar)
	if got.Params[1] != MonoType(p0) || got.Return.(*VectorType).Elem != MonoType(p0) {
		t.Errorf("repeated variable should share one fresh variable: %s", got)
	}
	if p0 == a {
		t.Errorf("instantiated variable should be fresh")
	}

	other := NewInstantiator().Instantiate(fn).(*FnType)
	if other.Params[0] == MonoType(p0) {
		t.Errorf("separate instantiations should not share variables")
	}
}

func TestEffectSet(t *testing.T) {
	e1 := symbols.InternQ("fx/log!")
	e2 := symbols.InternQ("fx/read!")

	s := NewEffectSet(e1).Union(NewEffectSet(e2))
	if len(s) != 2 {
		t.Fatalf("union = %s", s)
	}
	if got := s.Minus(e1); got.Has(e1) || !got.Has(e2) {
		t.Errorf("minus = %s", got)
	}
	if got := (Type{Mono: IntType, Effects: s}).String(); got != "(! Int #{fx/log! fx/read!})" {
		t.Errorf("Type.String() = %s", got)
	}
}
