package reader

import (
	"errors"
	"testing"

	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/symbols"
)

func TestReadString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`(let [x 1 x (+ x 1)] x)`, `(let [x 1 x (+ x 1)] x)`},
		{`#{1 2N}`, `#{1 2N}`},
		{`{:first-name "James", :last-name "Henderson"}`, `{:first-name "James" :last-name "Henderson"}`},
		{`(my.ns/foo :my.ns/Bar)`, `(my.ns/foo :my.ns/Bar)`},
		{`'foo`, `'foo`},
		{`[1.5 true false]`, `[1.5 true false]`},
	}

	for _, tt := range tests {
		forms, err := ReadString(tt.input, "")
		if err != nil {
			t.Fatalf("ReadString(%q): %v", tt.input, err)
		}
		if len(forms) != 1 {
			t.Fatalf("ReadString(%q): got %d forms", tt.input, len(forms))
		}
		if got := forms[0].String(); got != tt.want {
			t.Errorf("ReadString(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestReadSymbols(t *testing.T) {
	forms, err := ReadString(`foo :foo my.ns/foo`, "")
	if err != nil {
		t.Fatal(err)
	}
	if s := forms[0].(*SymbolForm).Sym; s != symbols.Intern("foo") || s.IsKeyword() {
		t.Errorf("foo read as %v", s)
	}
	if s := forms[1].(*SymbolForm).Sym; s != symbols.Intern(":foo") || s.Kind() != symbols.RecordKeySym {
		t.Errorf(":foo read as %v (%s)", s, s.Kind())
	}
	q := forms[2].(*QSymbolForm).Sym
	if q.NS != symbols.Intern("my.ns") || q.Base != symbols.Intern("foo") {
		t.Errorf("my.ns/foo read as %v", q)
	}
}

func TestReadErrors(t *testing.T) {
	for _, input := range []string{`(a b`, `)`, `"abc`, `'`} {
		_, err := ReadString(input, "")
		if diagnostics.CodeOf(err) != diagnostics.ErrSyntax {
			t.Errorf("ReadString(%q): expected syntax error, got %v", input, err)
		}
	}
}

func TestReadIncomplete(t *testing.T) {
	tests := []struct {
		input      string
		incomplete bool
	}{
		{"(a b", true},
		{"[1 [2", true},
		{"'", true},
		{")", false},
		{"(a b)", false},
	}
	for _, tt := range tests {
		_, err := ReadString(tt.input, "")
		if got := errors.Is(err, ErrIncomplete); got != tt.incomplete {
			t.Errorf("ReadString(%q): incomplete = %v, want %v (%v)", tt.input, got, tt.incomplete, err)
		}
	}
}

func TestReadPositions(t *testing.T) {
	forms, err := ReadString("(a\n (b c))", "f.brj")
	if err != nil {
		t.Fatal(err)
	}
	inner := forms[0].(*ListForm).Forms[1]
	if p := inner.Pos(); p.Line != 2 || p.Column != 2 || p.File != "f.brj" {
		t.Errorf("inner list at %s, want f.brj:2:2", p)
	}
}
