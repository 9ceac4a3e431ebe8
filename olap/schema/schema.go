package schema

import (
	"fmt"
	"sort"
)

// Schema is an indexed, read-only view of a Config. It is safe to share
// between concurrent compilations.
type Schema struct {
	config      Config
	tables      []string
	tableByName map[string]*FactTable
	measureOf   map[string]string
	dimensions  map[string]bool
	filterDeps  map[string][]string
	ephemeral   map[string]map[string]bool
	chartTypes  map[string]bool
}

// New indexes and validates cfg. The config is copied; later changes to cfg
// do not affect the schema.
func New(cfg Config) (*Schema, error) {
	s := &Schema{
		config:      cfg,
		tableByName: make(map[string]*FactTable, len(cfg.FactTables)),
		measureOf:   make(map[string]string, len(cfg.Measures)),
		dimensions:  make(map[string]bool, len(cfg.Dimensions)),
		filterDeps:  make(map[string][]string, len(cfg.Filters)),
		ephemeral:   make(map[string]map[string]bool, len(cfg.FactTables)),
		chartTypes:  make(map[string]bool, len(cfg.ChartTypes)),
	}
	s.config.FactTables = append([]FactTable(nil), cfg.FactTables...)

	for i := range s.config.FactTables {
		t := &s.config.FactTables[i]
		if t.FactTable == "" {
			return nil, &SchemaError{Op: "index fact tables", Err: fmt.Errorf("%w: fact table %d has no name", ErrInvalidSchema, i)}
		}
		if _, dup := s.tableByName[t.FactTable]; dup {
			return nil, &SchemaError{Op: "index fact tables", Table: t.FactTable, Err: ErrDuplicateName}
		}
		if t.Consolidation != nil && t.Union != nil {
			return nil, &SchemaError{Op: "index fact tables", Table: t.FactTable,
				Err: fmt.Errorf("%w: both consolidation and union are set", ErrInvalidSchema)}
		}
		if t.Union != nil && len(t.Union.FactTables) == 0 {
			return nil, &SchemaError{Op: "index fact tables", Table: t.FactTable,
				Err: fmt.Errorf("%w: union has no member tables", ErrInvalidSchema)}
		}
		s.tables = append(s.tables, t.FactTable)
		s.tableByName[t.FactTable] = t

		eph := make(map[string]bool, len(t.EphemeralDimensions))
		for _, d := range t.EphemeralDimensions {
			eph[d] = true
		}
		s.ephemeral[t.FactTable] = eph
	}

	if _, ok := s.tableByName[cfg.DefaultFactTable]; !ok {
		return nil, &SchemaError{Op: "resolve default fact table", Table: cfg.DefaultFactTable, Err: ErrUnknownTable}
	}

	for _, m := range cfg.Measures {
		name := m.AggregatingFunction.PredicateName
		if _, dup := s.measureOf[name]; dup {
			return nil, &SchemaError{Op: "index measures", Predicate: name, Err: ErrDuplicateName}
		}
		table := m.FactTable
		if table == "" {
			table = cfg.DefaultFactTable
		}
		if _, ok := s.tableByName[table]; !ok {
			return nil, &SchemaError{Op: "index measures", Table: table, Predicate: name, Err: ErrUnknownTable}
		}
		s.measureOf[name] = table
	}

	for _, d := range cfg.Dimensions {
		name := d.Function.PredicateName
		if s.dimensions[name] {
			return nil, &SchemaError{Op: "index dimensions", Predicate: name, Err: ErrDuplicateName}
		}
		s.dimensions[name] = true
	}

	for _, f := range cfg.Filters {
		name := f.Predicate.PredicateName
		if _, dup := s.filterDeps[name]; dup {
			return nil, &SchemaError{Op: "index filters", Predicate: name, Err: ErrDuplicateName}
		}
		s.filterDeps[name] = append([]string{}, f.DependsOnDimensions...)
	}

	for _, c := range cfg.ChartTypes {
		s.chartTypes[c.Predicate.PredicateName] = true
	}

	return s, nil
}

// Config returns the config the schema was built from
func (s *Schema) Config() Config {
	return s.config
}

// Tables returns fact table names in declaration order
func (s *Schema) Tables() []string {
	return append([]string(nil), s.tables...)
}

// Table returns the fact table definition for name
func (s *Schema) Table(name string) (*FactTable, bool) {
	t, ok := s.tableByName[name]
	return t, ok
}

// HasTable reports whether name is a declared fact table
func (s *Schema) HasTable(name string) bool {
	_, ok := s.tableByName[name]
	return ok
}

func (s *Schema) DefaultFactTable() string {
	return s.config.DefaultFactTable
}

// MeasureTable returns the fact table a measure predicate is computed from
func (s *Schema) MeasureTable(predicate string) (string, bool) {
	t, ok := s.measureOf[predicate]
	return t, ok
}

func (s *Schema) HasDimension(predicate string) bool {
	return s.dimensions[predicate]
}

func (s *Schema) HasChartType(predicate string) bool {
	return s.chartTypes[predicate]
}

// FilterDependencies returns the dimensions a filter predicate depends on
func (s *Schema) FilterDependencies(predicate string) ([]string, bool) {
	deps, ok := s.filterDeps[predicate]
	return deps, ok
}

// IsEphemeral reports whether a dimension or filter predicate cannot be
// evaluated at table's grain.
func (s *Schema) IsEphemeral(table, predicate string) bool {
	return s.ephemeral[table][predicate]
}

// EphemeralDimensions returns the sorted ephemeral set of table
func (s *Schema) EphemeralDimensions(table string) []string {
	out := make([]string, 0, len(s.ephemeral[table]))
	for d := range s.ephemeral[table] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
