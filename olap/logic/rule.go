package logic

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedRule is returned when a rule violates a structural invariant
var ErrMalformedRule = errors.New("malformed rule")

// Rule is a single Head :- Body statement. A nil Body makes the rule a
// directive or fact. Distinct marks an aggregating (grouping) rule.
type Rule struct {
	Head     *Call
	Body     Term
	Distinct bool
	Comment  string
}

// Predicate returns the head predicate name
func (r *Rule) Predicate() string {
	return r.Head.Predicate
}

// Columns returns the named columns of the head
func (r *Rule) Columns() []string {
	return r.Head.Columns()
}

// Validate checks that the head has a predicate and that every head column
// name is unique.
func (r *Rule) Validate() error {
	if r == nil || r.Head == nil {
		return fmt.Errorf("%w: missing head", ErrMalformedRule)
	}
	if r.Head.Predicate == "" {
		return fmt.Errorf("%w: empty head predicate", ErrMalformedRule)
	}
	seen := make(map[string]bool, len(r.Head.Named))
	for _, a := range r.Head.Named {
		if a.Name == "" {
			return fmt.Errorf("%w: %s has an unnamed column", ErrMalformedRule, r.Head.Predicate)
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: %s has duplicate column %q", ErrMalformedRule, r.Head.Predicate, a.Name)
		}
		seen[a.Name] = true
	}
	for _, p := range r.Head.Positional {
		if rec, ok := p.(Record); ok {
			fields := make(map[string]bool, len(rec.Fields))
			for _, f := range rec.Fields {
				if fields[f.Name] {
					return fmt.Errorf("%w: %s has duplicate record field %q", ErrMalformedRule, r.Head.Predicate, f.Name)
				}
				fields[f.Name] = true
			}
		}
	}
	return nil
}

// String serializes the rule as one statement, preceded by a comment line
// when the rule carries one.
func (r *Rule) String() string {
	var sb strings.Builder
	if r.Comment != "" {
		sb.WriteString("# ")
		sb.WriteString(r.Comment)
		sb.WriteString("\n")
	}
	sb.WriteString(r.Head.String())
	if r.Distinct {
		sb.WriteString(" distinct")
	}
	if r.Body != nil {
		body := r.Body.String()
		if body != "" {
			sb.WriteString(" :- ")
			sb.WriteString(body)
		}
	}
	sb.WriteString(";")
	return sb.String()
}

// Directive builds a body-less rule such as @Limit("Report", 10)
func Directive(name string, args ...Term) *Rule {
	return &Rule{Head: NewCall(name, args...)}
}
