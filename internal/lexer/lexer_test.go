package lexer

import (
	"testing"

	"github.com/funvibe/bridje/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `(def (greet s) ; comment
  #{1 2N 1.5 2.5M} [:a/b "x\"y"], 'foo true -3)`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.LPAREN, "("},
		{token.SYMBOL, "def"},
		{token.LPAREN, "("},
		{token.SYMBOL, "greet"},
		{token.SYMBOL, "s"},
		{token.RPAREN, ")"},
		{token.HASH_SET, "#{"},
		{token.INT, "1"},
		{token.BIG_INT, "2"},
		{token.FLOAT, "1.5"},
		{token.BIG_FLOAT, "2.5"},
		{token.RBRACE, "}"},
		{token.LBRACKET, "["},
		{token.KEYWORD, ":a/b"},
		{token.STRING, `x"y`},
		{token.RBRACKET, "]"},
		{token.QUOTE, "'"},
		{token.SYMBOL, "foo"},
		{token.TRUE, "true"},
		{token.INT, "-3"},
		{token.RPAREN, ")"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)", i, tt.expectedType, tok.Type, tok.Lexeme)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestPositions(t *testing.T) {
	l := NewWithFile("(a\n  b)", "x.brj")
	l.NextToken()
	a := l.NextToken()
	if a.Line != 1 || a.Column != 2 {
		t.Errorf("a at %s, want 1:2", a.Position)
	}
	b := l.NextToken()
	if b.Line != 2 || b.Column != 3 || b.File != "x.brj" {
		t.Errorf("b at %s, want x.brj:2:3", b.Position)
	}
}

func TestOperatorSymbols(t *testing.T) {
	l := New("+ - <= a/b")
	for _, want := range []string{"+", "-", "<=", "a/b"} {
		tok := l.NextToken()
		if tok.Type != token.SYMBOL || tok.Literal != want {
			t.Errorf("got %s %q, want SYMBOL %q", tok.Type, tok.Literal, want)
		}
	}
}
