package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/bridje/internal/token"
)

type Lexer struct {
	input        string
	file         string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	return NewWithFile(input, "")
}

func NewWithFile(input, file string) *Lexer {
	l := &Lexer{input: input, file: file, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) pos() token.Position {
	return token.Position{File: l.file, Line: l.line, Column: l.column}
}

// NextToken returns the next token; EOF is returned repeatedly at end of input.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.pos()
	mk := func(t token.TokenType, lexeme string) token.Token {
		return token.Token{Type: t, Lexeme: lexeme, Literal: lexeme, Position: pos}
	}

	switch l.ch {
	case 0:
		if l.position >= len(l.input) {
			return mk(token.EOF, "")
		}
		l.readChar()
		return mk(token.ILLEGAL, "\x00")
	case '(':
		l.readChar()
		return mk(token.LPAREN, "(")
	case ')':
		l.readChar()
		return mk(token.RPAREN, ")")
	case '[':
		l.readChar()
		return mk(token.LBRACKET, "[")
	case ']':
		l.readChar()
		return mk(token.RBRACKET, "]")
	case '{':
		l.readChar()
		return mk(token.LBRACE, "{")
	case '}':
		l.readChar()
		return mk(token.RBRACE, "}")
	case '\'':
		l.readChar()
		return mk(token.QUOTE, "'")
	case '#':
		if l.peekChar() == '{' {
			l.readChar()
			l.readChar()
			return mk(token.HASH_SET, "#{")
		}
		l.readChar()
		return mk(token.ILLEGAL, "#")
	case '"':
		return l.readString(pos)
	}

	if isDigit(l.ch) || ((l.ch == '-' || l.ch == '+') && isDigit(l.peekChar())) {
		return l.readNumber(pos)
	}

	if isSymbolChar(l.ch) {
		lexeme := l.readSymbolText()
		switch {
		case lexeme == "true":
			return mk(token.TRUE, lexeme)
		case lexeme == "false":
			return mk(token.FALSE, lexeme)
		case strings.HasPrefix(lexeme, ":") && len(lexeme) > 1:
			return mk(token.KEYWORD, lexeme)
		}
		return mk(token.SYMBOL, lexeme)
	}

	ch := l.ch
	l.readChar()
	return mk(token.ILLEGAL, string(ch))
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ',' || unicode.IsSpace(l.ch):
			l.readChar()
		case l.ch == ';':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readString(pos token.Position) token.Token {
	start := l.position
	l.readChar() // opening quote
	var sb strings.Builder
	for l.ch != '"' {
		if l.ch == 0 && l.position >= len(l.input) {
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:], Literal: "unterminated string", Position: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '"':
				sb.WriteRune('"')
			case '\\':
				sb.WriteRune('\\')
			default:
				sb.WriteRune('\\')
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // closing quote
	return token.Token{Type: token.STRING, Lexeme: l.input[start:l.position], Literal: sb.String(), Position: pos}
}

func (l *Lexer) readNumber(pos token.Position) token.Token {
	start := l.position
	if l.ch == '-' || l.ch == '+' {
		l.readChar()
	}
	isFloat := false
	for isDigit(l.ch) || l.ch == '.' || l.ch == 'e' || l.ch == 'E' {
		if l.ch == '.' || l.ch == 'e' || l.ch == 'E' {
			isFloat = true
			if (l.ch == 'e' || l.ch == 'E') && (l.peekChar() == '-' || l.peekChar() == '+') {
				l.readChar()
			}
		}
		l.readChar()
	}
	lexeme := l.input[start:l.position]
	switch l.ch {
	case 'N':
		l.readChar()
		if isFloat {
			return token.Token{Type: token.ILLEGAL, Lexeme: lexeme + "N", Literal: "big int literal with fraction", Position: pos}
		}
		return token.Token{Type: token.BIG_INT, Lexeme: lexeme + "N", Literal: lexeme, Position: pos}
	case 'M':
		l.readChar()
		return token.Token{Type: token.BIG_FLOAT, Lexeme: lexeme + "M", Literal: lexeme, Position: pos}
	}
	if isFloat {
		return token.Token{Type: token.FLOAT, Lexeme: lexeme, Literal: lexeme, Position: pos}
	}
	return token.Token{Type: token.INT, Lexeme: lexeme, Literal: lexeme, Position: pos}
}

func (l *Lexer) readSymbolText() string {
	start := l.position
	for isSymbolChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isSymbolChar(ch rune) bool {
	if ch == 0 || unicode.IsSpace(ch) {
		return false
	}
	switch ch {
	case '(', ')', '[', ']', '{', '}', '"', ',', ';', '\'', '#':
		return false
	}
	return unicode.IsPrint(ch)
}
