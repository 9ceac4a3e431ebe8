package schema

// Request names the measures, dimensions and filters of a report as
// predicate-call strings, plus optional ordering and limit.
type Request struct {
	Measures   []string `json:"measures" yaml:"measures"`
	Dimensions []string `json:"dimensions" yaml:"dimensions"`
	Filters    []string `json:"filters" yaml:"filters"`
	Order      []string `json:"order,omitempty" yaml:"order,omitempty"`
	Limit      *int     `json:"limit,omitempty" yaml:"limit,omitempty"`
	Title      string   `json:"title,omitempty" yaml:"title,omitempty"`
	ChartType  string   `json:"chartType,omitempty" yaml:"chartType,omitempty"`
}

// Validate rejects requests without measures or dimensions. The compiler
// does not call it; it is meant for the CLI and server front ends.
func (r *Request) Validate() error {
	if len(r.Measures) == 0 || len(r.Dimensions) == 0 {
		return &RequestError{Msg: "Please specify at least one measure and at least one dimension."}
	}
	for _, o := range r.Order {
		if o == "" {
			return &RequestError{Field: "order", Msg: "empty order term"}
		}
	}
	return nil
}

// LimitValue returns the limit, or -1 when none is set
func (r *Request) LimitValue() int {
	if r.Limit == nil || *r.Limit < 0 {
		return -1
	}
	return *r.Limit
}

// Normalized returns a copy with duplicate calls collapsed, keeping the
// first occurrence of each.
func (r Request) Normalized() Request {
	r.Measures = dedupe(r.Measures)
	r.Dimensions = dedupe(r.Dimensions)
	r.Filters = dedupe(r.Filters)
	r.Order = append([]string(nil), r.Order...)
	if r.Limit != nil {
		limit := *r.Limit
		r.Limit = &limit
	}
	return r
}

func dedupe(calls []string) []string {
	out := make([]string, 0, len(calls))
	seen := make(map[string]bool, len(calls))
	for _, c := range calls {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
