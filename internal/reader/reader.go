package reader

import (
	"errors"
	"math/big"
	"strconv"

	"github.com/funvibe/bridje/internal/diagnostics"
	"github.com/funvibe/bridje/internal/lexer"
	"github.com/funvibe/bridje/internal/symbols"
	"github.com/funvibe/bridje/internal/token"
)

// ErrIncomplete is wrapped by errors for input that ends inside a form.
var ErrIncomplete = errors.New("incomplete input")

type Reader struct {
	l         *lexer.Lexer
	curToken  token.Token
	peekToken token.Token
}

func New(l *lexer.Lexer) *Reader {
	r := &Reader{l: l}
	r.nextToken()
	r.nextToken()
	return r
}

func (r *Reader) nextToken() {
	r.curToken = r.peekToken
	r.peekToken = r.l.NextToken()
}

// ReadString reads every form in src. file is used only for positions.
func ReadString(src, file string) ([]Form, error) {
	return New(lexer.NewWithFile(src, file)).ReadAll()
}

func (r *Reader) ReadAll() ([]Form, error) {
	var forms []Form
	for r.curToken.Type != token.EOF {
		f, err := r.readForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, nil
}

func (r *Reader) readForm() (Form, error) {
	tok := r.curToken
	pos := tok.Position
	r.nextToken()

	switch tok.Type {
	case token.TRUE, token.FALSE:
		return &BoolForm{Value: tok.Type == token.TRUE, Loc: pos}, nil
	case token.STRING:
		return &StringForm{Value: tok.Literal, Loc: pos}, nil
	case token.INT:
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, diagnostics.Wrap(diagnostics.ErrSyntax, pos, err, "invalid integer %q", tok.Lexeme)
		}
		return &IntForm{Value: v, Loc: pos}, nil
	case token.BIG_INT:
		v, ok := new(big.Int).SetString(tok.Literal, 10)
		if !ok {
			return nil, diagnostics.NewError(diagnostics.ErrSyntax, pos, "invalid big integer %q", tok.Lexeme)
		}
		return &BigIntForm{Value: v, Loc: pos}, nil
	case token.FLOAT:
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, diagnostics.Wrap(diagnostics.ErrSyntax, pos, err, "invalid float %q", tok.Lexeme)
		}
		return &FloatForm{Value: v, Loc: pos}, nil
	case token.BIG_FLOAT:
		v, ok := new(big.Float).SetString(tok.Literal)
		if !ok {
			return nil, diagnostics.NewError(diagnostics.ErrSyntax, pos, "invalid big float %q", tok.Lexeme)
		}
		return &BigFloatForm{Value: v, Loc: pos}, nil
	case token.SYMBOL, token.KEYWORD:
		switch id := symbols.Read(tok.Literal).(type) {
		case *symbols.QSymbol:
			return &QSymbolForm{Sym: id, Loc: pos}, nil
		case *symbols.Symbol:
			return &SymbolForm{Sym: id, Loc: pos}, nil
		}
	case token.LPAREN:
		forms, err := r.readSeq(token.RPAREN, pos)
		if err != nil {
			return nil, err
		}
		return &ListForm{Forms: forms, Loc: pos}, nil
	case token.LBRACKET:
		forms, err := r.readSeq(token.RBRACKET, pos)
		if err != nil {
			return nil, err
		}
		return &VectorForm{Forms: forms, Loc: pos}, nil
	case token.HASH_SET:
		forms, err := r.readSeq(token.RBRACE, pos)
		if err != nil {
			return nil, err
		}
		return &SetForm{Forms: forms, Loc: pos}, nil
	case token.LBRACE:
		forms, err := r.readSeq(token.RBRACE, pos)
		if err != nil {
			return nil, err
		}
		return &RecordForm{Forms: forms, Loc: pos}, nil
	case token.QUOTE:
		if r.curToken.Type == token.EOF {
			return nil, diagnostics.Wrap(diagnostics.ErrSyntax, pos, ErrIncomplete, "expected form after quote")
		}
		f, err := r.readForm()
		if err != nil {
			return nil, err
		}
		return &QuoteForm{Form: f, Loc: pos}, nil
	case token.RPAREN, token.RBRACKET, token.RBRACE:
		return nil, diagnostics.NewError(diagnostics.ErrSyntax, pos, "unexpected %q", tok.Lexeme)
	case token.EOF:
		return nil, diagnostics.NewError(diagnostics.ErrSyntax, pos, "unexpected end of input")
	case token.ILLEGAL:
		return nil, diagnostics.NewError(diagnostics.ErrSyntax, pos, "%s: %q", tok.Literal, tok.Lexeme)
	}
	return nil, diagnostics.NewError(diagnostics.ErrSyntax, pos, "unexpected token %q", tok.Lexeme)
}

func (r *Reader) readSeq(closing token.TokenType, open token.Position) ([]Form, error) {
	forms := []Form{}
	for r.curToken.Type != closing {
		if r.curToken.Type == token.EOF {
			return nil, diagnostics.Wrap(diagnostics.ErrSyntax, open, ErrIncomplete, "unclosed %q", closingOpener(closing))
		}
		f, err := r.readForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	r.nextToken()
	return forms, nil
}

func closingOpener(t token.TokenType) string {
	switch t {
	case token.RPAREN:
		return "("
	case token.RBRACKET:
		return "["
	}
	return "{"
}
