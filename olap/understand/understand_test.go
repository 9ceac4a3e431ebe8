package understand

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-olap/olap/schema"
)

func promptConfig() schema.Config {
	return schema.Config{
		Measures: []schema.Measure{
			{AggregatingFunction: schema.PredicateSignature{PredicateName: "Total"}, Description: "Total revenue."},
		},
		Dimensions: []schema.Dimension{
			{Function: schema.PredicateSignature{PredicateName: "State"}},
		},
		Filters: []schema.Filter{
			{Predicate: schema.PredicateSignature{PredicateName: "StateIn",
				Parameters: []schema.FieldDescription{{FieldName: "states"}, {FieldName: "mode"}}}},
		},
		ChartTypes: []schema.ChartType{
			{Predicate: schema.PredicateSignature{PredicateName: "BarChart"}, Description: "Bars."},
		},
		SuffixLines: []string{"Prefer bar charts."},
	}
}

func TestPromptTemplate(t *testing.T) {
	expected := strings.Join([]string{
		"Please write configuration for an OLAP request.",
		"Available measures are:",
		"* Total(): Total revenue.",
		"",
		"Available dimensions are:",
		"* State()",
		"",
		"Available filters are:",
		"* StateIn(states:, mode:)",
		"* BarChart(): Bars.",
		"Config is JSON object with fields title, measures, dimensions, filters, order, limit and chartType.",
		"Always use all the fields. For example if you do not have filters, then pass it as empty list.",
		"",
		"Prefer bar charts.",
		"",
		"Write me JSON for this request: __USER_REQUEST__",
	}, "\n")
	assert.Equal(t, expected, PromptTemplate(promptConfig()))
}

func TestCutOffChatter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean", `{"a": 1}`, `{"a": 1}`},
		{"chatter", "Sure! ```json\n{\"a\": {\"b\": 1}}\n``` Enjoy.", `{"a": {"b": 1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := CutOffChatter(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}

	_, err := CutOffChatter("no json here")
	assert.ErrorIs(t, err, ErrNoJSON)
	_, err = CutOffChatter("} backwards {")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestUnderstand(t *testing.T) {
	var seen string
	model := ModelFunc(func(_ context.Context, prompt string) (string, error) {
		seen = prompt
		return "Here you go:\n{\"title\": \"Revenue\", \"measures\": [\"Total()\"], \"dimensions\": [\"State()\"], " +
			"\"filters\": [], \"order\": [], \"limit\": -1, \"chartType\": \"BarChart()\", \"extra\\_key\": 1}", nil
	})

	u := NewUnderstander(promptConfig(), model)
	req, err := u.Understand(context.Background(), "revenue by state")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(seen, "Write me JSON for this request: revenue by state"))
	assert.Equal(t, "Revenue", req.Title)
	assert.Equal(t, []string{"Total()"}, req.Measures)
	assert.Equal(t, "BarChart()", req.ChartType)
	assert.Equal(t, -1, req.LimitValue())
}

func TestUnderstandModelError(t *testing.T) {
	boom := errors.New("quota exceeded")
	u := NewUnderstander(promptConfig(), ModelFunc(func(context.Context, string) (string, error) {
		return "", boom
	}))
	_, err := u.Understand(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}
