package schema

import (
	"errors"
	"strings"
)

// Sentinel causes carried by SchemaError
var (
	ErrUnknownTable     = errors.New("unknown fact table")
	ErrUnknownPredicate = errors.New("unknown predicate")
	ErrDependencyCycle  = errors.New("fact table dependency cycle")
	ErrDuplicateName    = errors.New("duplicate name")
	ErrInvalidSchema    = errors.New("invalid schema")
)

// SchemaError reports a malformed or inconsistent schema, or a request call
// naming something the schema does not define. It is always fatal.
type SchemaError struct {
	Op        string   // what was being built or resolved
	Table     string   // offending fact table, if any
	Predicate string   // offending predicate, if any
	Path      []string // dependency path, for cycles
	Err       error
}

func (e *SchemaError) Error() string {
	var sb strings.Builder
	sb.WriteString("schema error")
	if e.Op != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Op)
	}
	if e.Table != "" {
		sb.WriteString(": table ")
		sb.WriteString(e.Table)
	}
	if e.Predicate != "" {
		sb.WriteString(": predicate ")
		sb.WriteString(e.Predicate)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if len(e.Path) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(e.Path, " -> "))
		sb.WriteString(")")
	}
	return sb.String()
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// RequestError reports a semantically invalid request. Request.Validate
// raises it before compilation; the compiler raises it for requests whose
// output columns cannot be told apart.
type RequestError struct {
	Field string
	Msg   string
}

func (e *RequestError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Msg
	}
	return "invalid request: " + e.Field + ": " + e.Msg
}
