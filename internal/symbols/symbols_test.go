package symbols

import "testing"

func TestInternIdentity(t *testing.T) {
	if Intern("foo") != Intern("foo") {
		t.Error("interning the same text twice gave different symbols")
	}
	if Intern("foo") == Intern(":foo") {
		t.Error("a keyword and a plain symbol share an identity")
	}
	if Qualify(Intern("a"), Intern("b")) != InternQ("a/b") {
		t.Error("Qualify and InternQ disagree")
	}
}

func TestKinds(t *testing.T) {
	tests := []struct {
		text string
		kind Kind
		str  string
	}{
		{"foo", VarSym, "foo"},
		{":foo", RecordKeySym, ":foo"},
		{":Foo", VariantSym, ":Foo"},
		{"Foo", TypeAliasSym, "Foo"},
		{".foo", PolyVarSym, ".foo"},
		{"my.ns/foo", VarSym, "my.ns/foo"},
		{":my.ns/foo", RecordKeySym, ":my.ns/foo"},
		{":my.ns/Foo", VariantSym, ":my.ns/Foo"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			id := Read(tt.text)
			if id.Kind() != tt.kind {
				t.Errorf("kind = %s, want %s", id.Kind(), tt.kind)
			}
			if id.String() != tt.str {
				t.Errorf("String() = %s, want %s", id.String(), tt.str)
			}
		})
	}
}

func TestRead(t *testing.T) {
	if _, ok := Read("/").(*Symbol); !ok {
		t.Error("a bare slash should read as a local symbol")
	}
	q, ok := Read("util/twice").(*QSymbol)
	if !ok {
		t.Fatal("util/twice should read as a qualified symbol")
	}
	if q.NS != Intern("util") || q.Base != Intern("twice") {
		t.Errorf("got ns=%s base=%s", q.NS, q.Base)
	}
	if k := InternQ(":u/name"); k.Base != Intern(":name") || !k.IsKeyword() {
		t.Errorf("keyword base = %s", k.Base)
	}
}
