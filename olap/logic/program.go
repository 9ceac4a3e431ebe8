package logic

import (
	"strings"
)

// Program is an append-only ordered list of rules
type Program struct {
	rules []*Rule
}

// NewProgram creates an empty program
func NewProgram() *Program {
	return &Program{}
}

// AddRule validates and appends a rule. Rules are never modified after
// being added.
func (p *Program) AddRule(r *Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	p.rules = append(p.rules, r)
	return nil
}

// Rules returns the rules in order
func (p *Program) Rules() []*Rule {
	out := make([]*Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// Len returns the number of rules
func (p *Program) Len() int {
	return len(p.rules)
}

// Rule returns the first rule whose head predicate matches
func (p *Program) Rule(predicate string) (*Rule, bool) {
	for _, r := range p.rules {
		if r.Head.Predicate == predicate {
			return r, true
		}
	}
	return nil, false
}

// Predicates returns head predicates in rule order
func (p *Program) Predicates() []string {
	preds := make([]string, len(p.rules))
	for i, r := range p.rules {
		preds[i] = r.Head.Predicate
	}
	return preds
}

// String serializes the program, one statement per rule, separated by a
// blank line.
func (p *Program) String() string {
	parts := make([]string, len(p.rules))
	for i, r := range p.rules {
		parts[i] = r.String()
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// Concat appends the program text to a base program, inserting the
// statement terminator the base may be missing.
func Concat(base string, p *Program) string {
	return ConcatText(base, p.String())
}

// ConcatText is Concat for program text that was already serialized
func ConcatText(base, program string) string {
	base = strings.TrimRight(base, " \t\r\n")
	if base == "" {
		return program
	}
	if !strings.HasSuffix(base, ";") {
		base += ";"
	}
	return base + "\n" + program
}
