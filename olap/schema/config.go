// Package schema describes OLAP configurations (fact tables, measures,
// dimensions and filters) and the requests compiled against them.
package schema

// FieldDescription names a parameter of a predicate signature
type FieldDescription struct {
	FieldName string `json:"field_name" yaml:"field_name"`
}

// PredicateSignature is the name and parameter list of a schema predicate
type PredicateSignature struct {
	PredicateName string             `json:"predicate_name" yaml:"predicate_name"`
	Parameters    []FieldDescription `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Measure is an aggregating predicate bound to the fact table it is
// computed from. An empty FactTable means the default fact table.
type Measure struct {
	AggregatingFunction PredicateSignature `json:"aggregating_function" yaml:"aggregating_function"`
	FactTable           string             `json:"fact_table,omitempty" yaml:"fact_table,omitempty"`
	Description         string             `json:"description,omitempty" yaml:"description,omitempty"`
}

// Dimension is a predicate producing a grouping value
type Dimension struct {
	Function    PredicateSignature `json:"function" yaml:"function"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
}

// Filter is a boolean predicate and the dimensions it needs to be evaluated
type Filter struct {
	Predicate           PredicateSignature `json:"predicate" yaml:"predicate"`
	DependsOnDimensions []string           `json:"depends_on_dimensions,omitempty" yaml:"depends_on_dimensions,omitempty"`
	Description         string             `json:"description,omitempty" yaml:"description,omitempty"`
}

// ChartType is a charting predicate offered to the request author
type ChartType struct {
	Predicate   PredicateSignature `json:"predicate" yaml:"predicate"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
}

// NamedDimension renames or recomputes a dimension during consolidation:
// Name is the output column, Dimension the source call text.
type NamedDimension struct {
	Name      string `json:"name" yaml:"name"`
	Dimension string `json:"dimension" yaml:"dimension"`
}

// Consolidation defines a fact table as a rollup of another fact table
type Consolidation struct {
	ConsolidatedFactTable  string           `json:"consolidated_fact_table" yaml:"consolidated_fact_table"`
	ConsolidatedDimensions []NamedDimension `json:"consolidated_dimensions,omitempty" yaml:"consolidated_dimensions,omitempty"`
	ProjectedDimensions    []NamedDimension `json:"projected_dimensions,omitempty" yaml:"projected_dimensions,omitempty"`
}

// Union defines a fact table as the row-wise merge of member tables
type Union struct {
	FactTables             []string         `json:"fact_tables" yaml:"fact_tables"`
	ConsolidatedDimensions []NamedDimension `json:"consolidated_dimensions,omitempty" yaml:"consolidated_dimensions,omitempty"`
	ProjectedDimensions    []NamedDimension `json:"projected_dimensions,omitempty" yaml:"projected_dimensions,omitempty"`
}

// FactTable is a base or derived relation of fact rows
type FactTable struct {
	FactTable           string         `json:"fact_table" yaml:"fact_table"`
	Consolidation       *Consolidation `json:"consolidation,omitempty" yaml:"consolidation,omitempty"`
	Union               *Union         `json:"union,omitempty" yaml:"union,omitempty"`
	EphemeralDimensions []string       `json:"ephemeral_dimensions,omitempty" yaml:"ephemeral_dimensions,omitempty"`
	HostileDimensions   []string       `json:"hostile_dimensions,omitempty" yaml:"hostile_dimensions,omitempty"`
}

// Config is the OLAP configuration as written by users
type Config struct {
	Name             string      `json:"name,omitempty" yaml:"name,omitempty"`
	FactTables       []FactTable `json:"fact_tables" yaml:"fact_tables"`
	DefaultFactTable string      `json:"default_fact_table" yaml:"default_fact_table"`
	Measures         []Measure   `json:"measures" yaml:"measures"`
	Dimensions       []Dimension `json:"dimensions" yaml:"dimensions"`
	Filters          []Filter    `json:"filters" yaml:"filters"`
	ChartTypes       []ChartType `json:"chart_types,omitempty" yaml:"chart_types,omitempty"`
	SuffixLines      []string    `json:"suffix_lines,omitempty" yaml:"suffix_lines,omitempty"`
	LogicaProgram    string      `json:"logica_program,omitempty" yaml:"logica_program,omitempty"`
}
