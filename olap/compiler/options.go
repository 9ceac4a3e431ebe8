package compiler

import (
	"strconv"
	"strings"

	"github.com/wbrown/janus-olap/olap/annotations"
)

// Options configures the names the compiler emits and how it reports
// progress. Zero-valued string fields fall back to the defaults.
type Options struct {
	ReportPredicate     string // Final assembly predicate (default: Report)
	DomainPredicate     string // Dimensions domain predicate (default: DimensionsDomain)
	Aggregator          string // Aggregation operator for measures (default: Aggr)
	FactVariable        string // Row variable in generated rules (default: fact)
	StepSuffix          string // Suffix of intermediate consolidations (default: Step1)
	ConsolidatingPrefix string // Prefix of per-table measure rules (default: Consolidating)

	EmitComments bool                // Write comment lines before the first measure rule and Report
	Handler      annotations.Handler // Receives compile events (optional)
}

// DefaultOptions returns the naming used by the downstream logic compiler
func DefaultOptions() Options {
	return Options{
		ReportPredicate:     "Report",
		DomainPredicate:     "DimensionsDomain",
		Aggregator:          "Aggr",
		FactVariable:        "fact",
		StepSuffix:          "Step1",
		ConsolidatingPrefix: "Consolidating",
		EmitComments:        true,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ReportPredicate == "" {
		o.ReportPredicate = d.ReportPredicate
	}
	if o.DomainPredicate == "" {
		o.DomainPredicate = d.DomainPredicate
	}
	if o.Aggregator == "" {
		o.Aggregator = d.Aggregator
	}
	if o.FactVariable == "" {
		o.FactVariable = d.FactVariable
	}
	if o.StepSuffix == "" {
		o.StepSuffix = d.StepSuffix
	}
	if o.ConsolidatingPrefix == "" {
		o.ConsolidatingPrefix = d.ConsolidatingPrefix
	}
	return o
}

// Fingerprint identifies the options that change the emitted program text.
// The event handler is not part of it.
func (o Options) Fingerprint() string {
	o = o.withDefaults()
	return strings.Join([]string{
		o.ReportPredicate,
		o.DomainPredicate,
		o.Aggregator,
		o.FactVariable,
		o.StepSuffix,
		o.ConsolidatingPrefix,
		strconv.FormatBool(o.EmitComments),
	}, "\x00")
}
