package syntax

import (
	"strings"
	"unicode"
)

// Lexer tokenizes predicate-call text
type Lexer struct {
	input   string
	pos     int
	line    int
	col     int
	tokens  []Token
	current int
}

// NewLexer creates a new lexer for the given input
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		line:   1,
		col:    1,
		tokens: []Token{},
	}
}

var punctuation = map[byte]TokenType{
	'(': TokenLeftParen,
	')': TokenRightParen,
	'[': TokenLeftBracket,
	']': TokenRightBracket,
	'{': TokenLeftBrace,
	'}': TokenRightBrace,
	',': TokenComma,
	':': TokenColon,
	'.': TokenDot,
}

// Lex tokenizes the entire input
func (l *Lexer) Lex() error {
	for l.pos < len(l.input) {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			break
		}

		start := Token{Offset: l.pos, Line: l.line, Col: l.col}
		ch := l.peek()

		switch {
		case ch == '"':
			str, err := l.readString(start)
			if err != nil {
				return err
			}
			start.Type = TokenString
			start.Value = str
		case isDigit(ch) || ((ch == '-' || ch == '+') && isDigit(l.peekAt(1))):
			start.Type = TokenNumber
			start.Value = l.readNumber()
		case isIdentStart(ch):
			start.Type = TokenIdent
			start.Value = l.readIdent()
		default:
			tt, ok := punctuation[ch]
			if !ok {
				return newParseError(l.input, start, "unexpected character %q", ch)
			}
			l.advance()
			start.Type = tt
		}
		l.tokens = append(l.tokens, start)
	}

	l.tokens = append(l.tokens, Token{
		Type:   TokenEOF,
		Offset: l.pos,
		Line:   l.line,
		Col:    l.col,
	})
	return nil
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	if l.current >= len(l.tokens) {
		return l.eof()
	}
	token := l.tokens[l.current]
	l.current++
	return token
}

// PeekToken returns the next token without advancing
func (l *Lexer) PeekToken() Token {
	return l.PeekTokenAt(0)
}

// PeekTokenAt returns the token n positions ahead without advancing
func (l *Lexer) PeekTokenAt(n int) Token {
	if l.current+n >= len(l.tokens) {
		return l.eof()
	}
	return l.tokens[l.current+n]
}

func (l *Lexer) eof() Token {
	return Token{Type: TokenEOF, Offset: l.pos, Line: l.line, Col: l.col}
}

func (l *Lexer) peek() byte {
	return l.peekAt(0)
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.peek())) {
		l.advance()
	}
}

// readString reads a double-quoted string literal
func (l *Lexer) readString(start Token) (string, error) {
	var result strings.Builder
	l.advance() // opening quote

	for l.pos < len(l.input) {
		ch := l.peek()
		switch ch {
		case '"':
			l.advance()
			return result.String(), nil
		case '\\':
			l.advance()
			if l.pos >= len(l.input) {
				return "", newParseError(l.input, start, "unterminated string")
			}
			escaped := l.peek()
			switch escaped {
			case 't':
				result.WriteByte('\t')
			case 'r':
				result.WriteByte('\r')
			case 'n':
				result.WriteByte('\n')
			case '\\':
				result.WriteByte('\\')
			case '"':
				result.WriteByte('"')
			default:
				at := Token{Offset: l.pos, Line: l.line, Col: l.col}
				return "", newParseError(l.input, at, "invalid escape sequence '\\%c'", escaped)
			}
			l.advance()
		default:
			result.WriteByte(ch)
			l.advance()
		}
	}

	return "", newParseError(l.input, start, "unterminated string")
}

// readNumber reads [+-]digits[.digits][(e|E)[+-]digits]
func (l *Lexer) readNumber() string {
	start := l.pos
	if l.peek() == '-' || l.peek() == '+' {
		l.advance()
	}
	l.readDigits()
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		l.readDigits()
	}
	if (l.peek() == 'e' || l.peek() == 'E') &&
		(isDigit(l.peekAt(1)) || ((l.peekAt(1) == '-' || l.peekAt(1) == '+') && isDigit(l.peekAt(2)))) {
		l.advance()
		if l.peek() == '-' || l.peek() == '+' {
			l.advance()
		}
		l.readDigits()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readDigits() {
	for isDigit(l.peek()) {
		l.advance()
	}
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.peek()) {
		l.advance()
	}
	return l.input[start:l.pos]
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '@' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return ch == '_' || isDigit(ch) || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
