// Package understand turns free-text report requests into Requests with the
// help of a language model. Model clients live outside this module; they
// plug in through the Model interface.
package understand

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wbrown/janus-olap/olap/schema"
)

// UserRequestPlaceholder marks where the user's text goes in a prompt
const UserRequestPlaceholder = "__USER_REQUEST__"

// ErrNoJSON is returned when a model response holds no JSON object
var ErrNoJSON = errors.New("model response contains no JSON object")

// Model completes a prompt
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelFunc adapts a function to Model
type ModelFunc func(ctx context.Context, prompt string) (string, error)

func (f ModelFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func params(p schema.PredicateSignature) string {
	parts := make([]string, len(p.Parameters))
	for i, f := range p.Parameters {
		parts[i] = f.FieldName + ":"
	}
	return strings.Join(parts, ", ")
}

func item(p schema.PredicateSignature, description string) string {
	line := "* " + p.PredicateName + "(" + params(p) + ")"
	if description != "" {
		line += ": " + description
	}
	return line
}

// PromptTemplate lists the measures, dimensions, filters and chart types of
// cfg and asks for a JSON request. The user's text replaces
// UserRequestPlaceholder.
func PromptTemplate(cfg schema.Config) string {
	lines := []string{
		"Please write configuration for an OLAP request.",
		"Available measures are:",
	}
	for _, m := range cfg.Measures {
		lines = append(lines, item(m.AggregatingFunction, m.Description))
	}
	lines = append(lines, "", "Available dimensions are:")
	for _, d := range cfg.Dimensions {
		lines = append(lines, item(d.Function, d.Description))
	}
	lines = append(lines, "", "Available filters are:")
	for _, f := range cfg.Filters {
		lines = append(lines, item(f.Predicate, f.Description))
	}
	for _, c := range cfg.ChartTypes {
		lines = append(lines, item(c.Predicate, c.Description))
	}
	lines = append(lines,
		"Config is JSON object with fields title, measures, dimensions, filters, order, limit and chartType.",
		"Always use all the fields. For example if you do not have filters, then pass it as empty list.",
		"",
	)
	lines = append(lines, cfg.SuffixLines...)
	lines = append(lines, "", "Write me JSON for this request: "+UserRequestPlaceholder)
	return strings.Join(lines, "\n")
}

// Prompt fills the template with the user's text
func Prompt(template, userRequest string) string {
	return strings.ReplaceAll(template, UserRequestPlaceholder, userRequest)
}

// CutOffChatter keeps the text from the first '{' through the last '}'
func CutOffChatter(response string) (string, error) {
	start := strings.IndexByte(response, '{')
	end := strings.LastIndexByte(response, '}')
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return response[start : end+1], nil
}

// Understander asks a model to write requests against one config
type Understander struct {
	model    Model
	template string
}

// NewUnderstander builds the prompt template for cfg once
func NewUnderstander(cfg schema.Config, model Model) *Understander {
	return &Understander{model: model, template: PromptTemplate(cfg)}
}

// Template returns the prompt template in use
func (u *Understander) Template() string {
	return u.template
}

// Understand asks the model for a request matching text. The result is
// decoded but not validated.
func (u *Understander) Understand(ctx context.Context, text string) (schema.Request, error) {
	response, err := u.model.Complete(ctx, Prompt(u.template, text))
	if err != nil {
		return schema.Request{}, fmt.Errorf("model: %w", err)
	}
	body, err := CutOffChatter(response)
	if err != nil {
		return schema.Request{}, err
	}
	// Some models escape underscores as in markdown
	body = strings.ReplaceAll(body, `\_`, "_")
	return schema.ParseRequest([]byte(body))
}
