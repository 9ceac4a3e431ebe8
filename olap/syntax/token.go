package syntax

import "fmt"

// TokenType represents the type of a predicate-call token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenNumber
	TokenString
	TokenLeftParen
	TokenRightParen
	TokenLeftBracket
	TokenRightBracket
	TokenLeftBrace
	TokenRightBrace
	TokenComma
	TokenColon
	TokenDot
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenIdent:        "Ident",
	TokenNumber:       "Number",
	TokenString:       "String",
	TokenLeftParen:    "LeftParen",
	TokenRightParen:   "RightParen",
	TokenLeftBracket:  "LeftBracket",
	TokenRightBracket: "RightBracket",
	TokenLeftBrace:    "LeftBrace",
	TokenRightBrace:   "RightBrace",
	TokenComma:        "Comma",
	TokenColon:        "Colon",
	TokenDot:          "Dot",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(t))
}

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Offset int
	Line   int
	Col    int
}

// String returns a string representation of the token
func (t Token) String() string {
	switch t.Type {
	case TokenIdent, TokenNumber:
		return fmt.Sprintf("%s[%d:%d]:%s", t.Type, t.Line, t.Col, t.Value)
	case TokenString:
		return fmt.Sprintf("%s[%d:%d]:%q", t.Type, t.Line, t.Col, t.Value)
	default:
		return fmt.Sprintf("%s[%d:%d]", t.Type, t.Line, t.Col)
	}
}
