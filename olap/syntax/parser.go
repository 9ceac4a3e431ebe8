// Package syntax parses predicate-call text such as `Measure(x: 3)` into
// logic terms.
package syntax

import (
	"strings"

	"github.com/wbrown/janus-olap/olap/logic"
)

// Parser builds logic terms from lexer tokens
type Parser struct {
	input string
	lexer *Lexer
}

// NewParser creates a new parser
func NewParser(input string, lexer *Lexer) *Parser {
	return &Parser{input: input, lexer: lexer}
}

// ParseExpression parses a single expression that must span the whole input
func ParseExpression(input string) (logic.Term, error) {
	lexer := NewLexer(input)
	if err := lexer.Lex(); err != nil {
		return nil, err
	}

	p := NewParser(input, lexer)
	term, err := p.readTerm()
	if err != nil {
		return nil, err
	}
	if tok := lexer.PeekToken(); tok.Type != TokenEOF {
		return nil, newParseError(input, tok, "unexpected %s after expression", tok.Type)
	}
	return term, nil
}

// Parse parses a predicate call. Anything other than a call at the top
// level is an error.
func Parse(input string) (*logic.Call, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &ParseError{Text: input, Line: 1, Col: 1, Msg: "empty predicate call"}
	}
	term, err := ParseExpression(input)
	if err != nil {
		return nil, err
	}
	call, ok := term.(*logic.Call)
	if !ok {
		return nil, &ParseError{Text: input, Line: 1, Col: 1, Msg: "expected a predicate call, got " + term.String()}
	}
	return call, nil
}

// readTerm reads a single term
func (p *Parser) readTerm() (logic.Term, error) {
	token := p.lexer.PeekToken()

	switch token.Type {
	case TokenEOF:
		return nil, newParseError(p.input, token, "unexpected end of input")

	case TokenString:
		p.lexer.NextToken()
		return logic.Str(token.Value), nil

	case TokenNumber:
		p.lexer.NextToken()
		return logic.Number(token.Value), nil

	case TokenIdent:
		return p.readNamed()

	case TokenLeftBracket:
		return p.readList()

	case TokenLeftBrace:
		return p.readRecord()

	default:
		return nil, newParseError(p.input, token, "unexpected %s", token.Type)
	}
}

// readNamed reads keywords, variables, subscripts and calls. Dotted names
// directly followed by '(' are call names; otherwise the dots are field
// accesses.
func (p *Parser) readNamed() (logic.Term, error) {
	first := p.lexer.NextToken()
	parts := []string{first.Value}

	for p.lexer.PeekToken().Type == TokenDot {
		dot := p.lexer.NextToken()
		field := p.lexer.NextToken()
		if field.Type != TokenIdent {
			return nil, newParseError(p.input, dot, "expected field name after '.'")
		}
		parts = append(parts, field.Value)
	}

	if p.lexer.PeekToken().Type == TokenLeftParen {
		return p.readCall(strings.Join(parts, "."), first)
	}

	if len(parts) == 1 {
		switch first.Value {
		case "true":
			return logic.Bool(true), nil
		case "false":
			return logic.Bool(false), nil
		case "null":
			return logic.Null(), nil
		}
	}
	if strings.HasPrefix(first.Value, "@") {
		return nil, newParseError(p.input, first, "directive %s is not a value", first.Value)
	}

	var term logic.Term = logic.Var(parts[0])
	for _, field := range parts[1:] {
		term = logic.Subscript{Base: term, Field: field}
	}
	return term, nil
}

// readCall reads the argument list of a call whose name was already consumed
func (p *Parser) readCall(name string, nameToken Token) (*logic.Call, error) {
	p.lexer.NextToken() // consume (
	call := &logic.Call{Predicate: name}
	seen := map[string]bool{}

	for {
		token := p.lexer.PeekToken()
		if token.Type == TokenRightParen {
			p.lexer.NextToken()
			return call, nil
		}
		if token.Type == TokenEOF {
			return nil, newParseError(p.input, nameToken, "unterminated call to %s", name)
		}
		if len(call.Positional)+len(call.Named) > 0 {
			if token.Type != TokenComma {
				return nil, newParseError(p.input, token, "expected ',' or ')' in call to %s, got %s", name, token.Type)
			}
			p.lexer.NextToken()
			token = p.lexer.PeekToken()
		}

		if token.Type == TokenIdent && p.lexer.PeekTokenAt(1).Type == TokenColon {
			p.lexer.NextToken() // name
			p.lexer.NextToken() // :
			if seen[token.Value] {
				return nil, newParseError(p.input, token, "duplicate argument %s in call to %s", token.Value, name)
			}
			seen[token.Value] = true
			value, err := p.readTerm()
			if err != nil {
				return nil, err
			}
			call.Named = append(call.Named, logic.Arg{Name: token.Value, Value: value})
			continue
		}

		if len(call.Named) > 0 {
			return nil, newParseError(p.input, token, "positional argument after named argument in call to %s", name)
		}
		value, err := p.readTerm()
		if err != nil {
			return nil, err
		}
		call.Positional = append(call.Positional, value)
	}
}

// readList reads a list literal [...]
func (p *Parser) readList() (logic.Term, error) {
	start := p.lexer.NextToken() // consume [
	var items []logic.Term

	for {
		token := p.lexer.PeekToken()
		if token.Type == TokenRightBracket {
			p.lexer.NextToken()
			return logic.List{Items: items}, nil
		}
		if token.Type == TokenEOF {
			return nil, newParseError(p.input, start, "unterminated list")
		}
		if len(items) > 0 {
			if token.Type != TokenComma {
				return nil, newParseError(p.input, token, "expected ',' or ']' in list, got %s", token.Type)
			}
			p.lexer.NextToken()
		}

		item, err := p.readTerm()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

// readRecord reads a record literal {name: value, ...}
func (p *Parser) readRecord() (logic.Term, error) {
	start := p.lexer.NextToken() // consume {
	var fields []logic.Arg
	seen := map[string]bool{}

	for {
		token := p.lexer.PeekToken()
		if token.Type == TokenRightBrace {
			p.lexer.NextToken()
			return logic.Record{Fields: fields}, nil
		}
		if token.Type == TokenEOF {
			return nil, newParseError(p.input, start, "unterminated record")
		}
		if len(fields) > 0 {
			if token.Type != TokenComma {
				return nil, newParseError(p.input, token, "expected ',' or '}' in record, got %s", token.Type)
			}
			p.lexer.NextToken()
			token = p.lexer.PeekToken()
		}

		if token.Type != TokenIdent || p.lexer.PeekTokenAt(1).Type != TokenColon {
			return nil, newParseError(p.input, token, "record fields must be written name: value")
		}
		p.lexer.NextToken()
		p.lexer.NextToken()
		if seen[token.Value] {
			return nil, newParseError(p.input, token, "duplicate record field %s", token.Value)
		}
		seen[token.Value] = true

		value, err := p.readTerm()
		if err != nil {
			return nil, err
		}
		fields = append(fields, logic.Arg{Name: token.Value, Value: value})
	}
}
