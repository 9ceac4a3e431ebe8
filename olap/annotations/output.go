package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// OutputFormatter renders events for people reading a terminal
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter creates a formatter writing to w. Color is used only
// when w is a terminal.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stderr
	}

	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return &OutputFormatter{useColor: useColor, writer: w}
}

// SetColor forces color output on or off
func (f *OutputFormatter) SetColor(on bool) {
	f.useColor = on
}

// Handle implements Handler
func (f *OutputFormatter) Handle(event Event) {
	if out := f.Format(event); out != "" {
		fmt.Fprintln(f.writer, out)
	}
}

// Format converts an event to a single display line
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case CompileInvoked:
		return fmt.Sprintf("%s %s Compiling %s, %s, %s",
			latency,
			f.colorize("===", color.FgYellow),
			f.count(event.Data["measures.count"], "measures"),
			f.count(event.Data["dimensions.count"], "dimensions"),
			f.count(event.Data["filters.count"], "filters"))

	case DependenciesBuilt:
		return fmt.Sprintf("%s Dependency graph over %s", latency, f.count(event.Data["tables.count"], "tables"))

	case TablesResolved:
		return fmt.Sprintf("%s Measures read from %v, building %v",
			latency, event.Data["tables"], event.Data["worklist"])

	case RuleEmitted:
		return fmt.Sprintf("%s %s %s (%s)",
			latency,
			f.colorize("+", color.FgGreen),
			f.colorize(fmt.Sprint(event.Data["predicate"]), color.FgCyan),
			event.Data["kind"])

	case TableBuilt:
		return fmt.Sprintf("%s Built %s as %s", latency, event.Data["table"], event.Data["kind"])

	case CompileComplete:
		if ok, _ := event.Data["success"].(bool); !ok {
			return fmt.Sprintf("%s %s Compile failed: %v", latency, f.colorize("✗", color.FgRed), event.Data["error"])
		}
		return fmt.Sprintf("%s %s Compiled %s",
			latency, f.colorize("===", color.FgGreen), f.count(event.Data["rules.count"], "rules"))

	case WarningDimensionUnbound:
		return fmt.Sprintf("%s %s Dimension %s is not exposed by any measure rule",
			latency, f.colorize("⚠", color.FgYellow), event.Data["dimension"])

	case ErrorCompile:
		return fmt.Sprintf("%s %s %v", latency, f.colorize("✗", color.FgRed), event.Data["error"])

	default:
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

func (f *OutputFormatter) formatLatency(d time.Duration) string {
	var s string
	if d < time.Millisecond {
		s = fmt.Sprintf("[%dµs]", d.Microseconds())
	} else {
		s = fmt.Sprintf("[%.1fms]", float64(d.Microseconds())/1000.0)
	}
	if !f.useColor {
		return s
	}
	switch {
	case d < 50*time.Millisecond:
		return color.GreenString(s)
	case d < 200*time.Millisecond:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

func (f *OutputFormatter) count(v interface{}, label string) string {
	text := fmt.Sprintf("%v %s", v, label)
	if !f.useColor {
		return text
	}
	switch strings.ToLower(label) {
	case "measures", "rules":
		return color.CyanString(text)
	case "dimensions", "tables":
		return color.MagentaString(text)
	default:
		return text
	}
}

func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler returns a handler printing formatted events to stderr
func ConsoleHandler() Handler {
	return NewOutputFormatter(os.Stderr).Handle
}
