package syntax

import "fmt"

// ParseError reports malformed predicate-call text
type ParseError struct {
	Text   string // the full input
	Offset int    // byte offset of the offending position
	Line   int
	Col    int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d in %q: %s", e.Line, e.Col, e.Text, e.Msg)
}

func newParseError(text string, tok Token, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Text:   text,
		Offset: tok.Offset,
		Line:   tok.Line,
		Col:    tok.Col,
		Msg:    fmt.Sprintf(format, args...),
	}
}
