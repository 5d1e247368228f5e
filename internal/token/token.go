package token

import "fmt"

type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	LPAREN   TokenType = "("
	RPAREN   TokenType = ")"
	LBRACKET TokenType = "["
	RBRACKET TokenType = "]"
	LBRACE   TokenType = "{"
	RBRACE   TokenType = "}"
	HASH_SET TokenType = "#{"
	QUOTE    TokenType = "'"

	STRING    TokenType = "STRING"
	INT       TokenType = "INT"
	BIG_INT   TokenType = "BIG_INT"
	FLOAT     TokenType = "FLOAT"
	BIG_FLOAT TokenType = "BIG_FLOAT"
	SYMBOL    TokenType = "SYMBOL"
	KEYWORD   TokenType = "KEYWORD"
	TRUE      TokenType = "TRUE"
	FALSE     TokenType = "FALSE"
)

// Position is an opaque source location carried by forms, expressions and errors.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) IsZero() bool {
	return p.Line == 0 && p.Column == 0 && p.File == ""
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

type Token struct {
	Type    TokenType
	Lexeme  string
	Literal string // string literals unescaped; numeric suffixes stripped
	Position
}
