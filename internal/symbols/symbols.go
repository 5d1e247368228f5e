// Package symbols interns identifiers so that equality is pointer identity.
//
// A local symbol is a bare name (`foo`, `:foo`); a qualified symbol pairs a
// namespace symbol with a base symbol (`my.ns/foo`, `:my.ns/foo`). Every
// identifier carries a Kind derived once from its lexical shape.
package symbols

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

type Kind int

const (
	VarSym       Kind = iota // foo
	RecordKeySym             // :foo
	VariantSym               // :Foo
	TypeAliasSym             // Foo
	PolyVarSym               // .foo
)

func (k Kind) String() string {
	switch k {
	case VarSym:
		return "var"
	case RecordKeySym:
		return "record-key"
	case VariantSym:
		return "variant-tag"
	case TypeAliasSym:
		return "type-alias"
	case PolyVarSym:
		return "poly-var"
	}
	return "unknown"
}

// Ident is either a *Symbol or a *QSymbol.
type Ident interface {
	String() string
	Kind() Kind
	isIdent()
}

type Symbol struct {
	base    string
	keyword bool
	kind    Kind
}

func (s *Symbol) Name() string    { return s.base }
func (s *Symbol) IsKeyword() bool { return s.keyword }
func (s *Symbol) Kind() Kind      { return s.kind }
func (s *Symbol) isIdent()        {}

func (s *Symbol) String() string {
	if s.keyword {
		return ":" + s.base
	}
	return s.base
}

type QSymbol struct {
	NS   *Symbol
	Base *Symbol
}

func (q *QSymbol) Kind() Kind      { return q.Base.kind }
func (q *QSymbol) IsKeyword() bool { return q.Base.keyword }
func (q *QSymbol) isIdent()        {}

func (q *QSymbol) String() string {
	if q.Base.keyword {
		return ":" + q.NS.base + "/" + q.Base.base
	}
	return q.NS.base + "/" + q.Base.base
}

var (
	mu       sync.Mutex
	syms     = make(map[string]*Symbol)
	qsymKeys = make(map[[2]*Symbol]*QSymbol)
)

func kindOf(base string, keyword bool) Kind {
	first, _ := utf8.DecodeRuneInString(base)
	upper := unicode.IsUpper(first)
	if keyword {
		if upper {
			return VariantSym
		}
		return RecordKeySym
	}
	switch {
	case upper:
		return TypeAliasSym
	case first == '.' && len(base) > 1:
		return PolyVarSym
	}
	return VarSym
}

// Intern returns the unique symbol for text. A leading ':' marks a keyword.
func Intern(text string) *Symbol {
	mu.Lock()
	defer mu.Unlock()
	return internLocked(text)
}

func internLocked(text string) *Symbol {
	if s, ok := syms[text]; ok {
		return s
	}
	keyword := strings.HasPrefix(text, ":") && len(text) > 1
	base := text
	if keyword {
		base = text[1:]
	}
	s := &Symbol{base: base, keyword: keyword, kind: kindOf(base, keyword)}
	syms[text] = s
	return s
}

// Qualify returns the unique qualified symbol ns/base.
func Qualify(ns, base *Symbol) *QSymbol {
	mu.Lock()
	defer mu.Unlock()
	return qualifyLocked(ns, base)
}

func qualifyLocked(ns, base *Symbol) *QSymbol {
	key := [2]*Symbol{ns, base}
	if q, ok := qsymKeys[key]; ok {
		return q
	}
	q := &QSymbol{NS: ns, Base: base}
	qsymKeys[key] = q
	return q
}

// InternQ interns "ns/base" or ":ns/base".
func InternQ(text string) *QSymbol {
	keyword := strings.HasPrefix(text, ":")
	body := strings.TrimPrefix(text, ":")
	idx := strings.Index(body, "/")
	if idx <= 0 || idx == len(body)-1 {
		// not qualified; treat whole text as base in the empty namespace
		return Qualify(Intern(""), Intern(text))
	}
	mu.Lock()
	defer mu.Unlock()
	base := body[idx+1:]
	if keyword {
		base = ":" + base
	}
	return qualifyLocked(internLocked(body[:idx]), internLocked(base))
}

// Read interns text as a local or qualified identifier depending on its shape.
func Read(text string) Ident {
	body := strings.TrimPrefix(text, ":")
	if idx := strings.Index(body, "/"); idx > 0 && idx < len(body)-1 {
		return InternQ(text)
	}
	return Intern(text)
}
