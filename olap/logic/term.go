// Package logic holds the rule and program AST emitted by the OLAP compiler
// and its text serialization.
package logic

import (
	"strconv"
	"strings"
)

// Term is a node of a rule head or body. The set of implementations is closed.
type Term interface {
	String() string
	term()
}

// LiteralKind classifies a scalar literal
type LiteralKind int

const (
	LiteralNull LiteralKind = iota
	LiteralBool
	LiteralNumber
	LiteralString
)

// Literal is a scalar constant. Numbers keep their source text so that
// serialization reproduces the request verbatim.
type Literal struct {
	Kind LiteralKind
	Raw  string
}

// Str returns a string literal
func Str(s string) Literal { return Literal{Kind: LiteralString, Raw: s} }

// Int returns a number literal
func Int(n int64) Literal { return Literal{Kind: LiteralNumber, Raw: strconv.FormatInt(n, 10)} }

// Number returns a number literal from its source text
func Number(raw string) Literal { return Literal{Kind: LiteralNumber, Raw: raw} }

// Bool returns a boolean literal
func Bool(b bool) Literal { return Literal{Kind: LiteralBool, Raw: strconv.FormatBool(b)} }

// Null returns the null literal
func Null() Literal { return Literal{Kind: LiteralNull} }

func (Literal) term() {}

func (l Literal) String() string {
	switch l.Kind {
	case LiteralNull:
		return "null"
	case LiteralString:
		return strconv.Quote(l.Raw)
	default:
		return l.Raw
	}
}

// List is a list literal [a, b, ...]
type List struct {
	Items []Term
}

func (List) term() {}

func (l List) String() string {
	return "[" + joinTerms(l.Items, ", ") + "]"
}

// Record is a record literal {name: value, ...}
type Record struct {
	Fields []Arg
}

func (Record) term() {}

func (r Record) String() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Variable is a logic variable
type Variable struct {
	Name string
}

// Var returns a variable term
func Var(name string) Variable { return Variable{Name: name} }

func (Variable) term() {}

func (v Variable) String() string { return v.Name }

// Subscript accesses a named field of a record-valued term (base.field)
type Subscript struct {
	Base  Term
	Field string
}

func (Subscript) term() {}

func (s Subscript) String() string { return s.Base.String() + "." + s.Field }

// Aggregation applies an aggregating operator to a term. It is only
// meaningful as the value of a named head argument.
type Aggregation struct {
	Operator string
	Arg      Term
}

func (Aggregation) term() {}

func (a Aggregation) String() string { return a.Operator + "= " + a.Arg.String() }

// Arg is a named argument of a call or a field of a record
type Arg struct {
	Name  string
	Value Term
}

func (a Arg) String() string {
	if agg, ok := a.Value.(Aggregation); ok {
		return a.Name + "? " + agg.String()
	}
	return a.Name + ": " + a.Value.String()
}

// Call is a predicate call. Positional arguments precede named ones.
// Calls are treated as immutable once built; the With* helpers copy.
type Call struct {
	Predicate  string
	Positional []Term
	Named      []Arg
}

// NewCall builds a call with positional arguments only
func NewCall(predicate string, positional ...Term) *Call {
	return &Call{Predicate: predicate, Positional: positional}
}

func (*Call) term() {}

func (c *Call) String() string {
	parts := make([]string, 0, len(c.Positional)+len(c.Named))
	for _, p := range c.Positional {
		parts = append(parts, p.String())
	}
	for _, a := range c.Named {
		parts = append(parts, a.String())
	}
	return c.Predicate + "(" + strings.Join(parts, ", ") + ")"
}

// Arg returns the named argument value, if present
func (c *Call) Arg(name string) (Term, bool) {
	for _, a := range c.Named {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Columns returns the named argument names in order
func (c *Call) Columns() []string {
	cols := make([]string, len(c.Named))
	for i, a := range c.Named {
		cols[i] = a.Name
	}
	return cols
}

// WithSubject returns a copy of the call with subject prepended to the
// positional arguments. This is how a schema call like State() is applied
// to a fact row: State(fact).
func (c *Call) WithSubject(subject Term) *Call {
	positional := make([]Term, 0, len(c.Positional)+1)
	positional = append(positional, subject)
	positional = append(positional, c.Positional...)
	named := make([]Arg, len(c.Named))
	copy(named, c.Named)
	return &Call{Predicate: c.Predicate, Positional: positional, Named: named}
}

// Conjunction is a comma-joined sequence of propositions
type Conjunction struct {
	Items []Term
}

// And builds a conjunction, flattening nested conjunctions and dropping nils
func And(items ...Term) Conjunction {
	var flat []Term
	for _, it := range items {
		switch t := it.(type) {
		case nil:
		case Conjunction:
			flat = append(flat, t.Items...)
		default:
			flat = append(flat, t)
		}
	}
	return Conjunction{Items: flat}
}

func (Conjunction) term() {}

func (c Conjunction) String() string {
	parts := make([]string, len(c.Items))
	for i, it := range c.Items {
		if _, ok := it.(Disjunction); ok && len(c.Items) > 1 {
			parts[i] = "(" + it.String() + ")"
			continue
		}
		parts[i] = it.String()
	}
	return strings.Join(parts, ", ")
}

// Disjunction holds alternative propositions
type Disjunction struct {
	Items []Term
}

// Or builds a disjunction
func Or(items ...Term) Disjunction {
	return Disjunction{Items: items}
}

func (Disjunction) term() {}

func (d Disjunction) String() string {
	parts := make([]string, len(d.Items))
	for i, it := range d.Items {
		parts[i] = "(" + it.String() + ")"
	}
	return strings.Join(parts, " | ")
}

func joinTerms(terms []Term, sep string) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, sep)
}
