package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `default_fact_table: Sales
logica_program: base.l
fact_tables:
  - fact_table: Sales
measures:
  - aggregating_function:
      predicate_name: Total
dimensions:
  - function:
      predicate_name: State
filters: []
`

func setup(t *testing.T) (config, request string) {
	t.Helper()
	dir := t.TempDir()
	config = filepath.Join(dir, "olap.yaml")
	request = filepath.Join(dir, "request.json")
	require.NoError(t, os.WriteFile(config, []byte(testConfig), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.l"), []byte("Sales(..r) :- SalesTable(..r);\n"), 0o644))
	require.NoError(t, os.WriteFile(request, []byte(`{"measures": ["Total()"], "dimensions": ["State()"]}`), 0o644))
	return config, request
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestProgramCommand(t *testing.T) {
	config, request := setup(t)

	out, _, err := run(t, "", "program", "--config", config, request)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Computing all the measures.\nConsolidatingSales("), out)
	assert.Contains(t, out, "# Assembling all the measures.\nReport(")

	fromStdin, _, err := run(t, `{"measures": ["Total()"], "dimensions": ["State()"]}`, "program", "-c", config, "-")
	require.NoError(t, err)
	assert.Equal(t, out, fromStdin)
}

func TestProgramCommandEvents(t *testing.T) {
	config, request := setup(t)

	_, stderr, err := run(t, "", "program", "--events", "--no-color", "--config", config, request)
	require.NoError(t, err)
	assert.Contains(t, stderr, "ConsolidatingSales")
	assert.Contains(t, stderr, "Compiled")
}

func TestFullProgramCommand(t *testing.T) {
	config, request := setup(t)

	out, _, err := run(t, "", "full-program", "--config", config, request)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Sales(..r) :- SalesTable(..r);\n# Computing all the measures."), out)

	_, _, err = run(t, "", "full-program", "--config", config, "--base", "missing.l", request)
	assert.Error(t, err)
}

func TestExplainAndShowPrompt(t *testing.T) {
	config, request := setup(t)

	out, _, err := run(t, "", "explain", "--config", config, request)
	require.NoError(t, err)
	assert.Contains(t, out, "Sales")

	out, _, err = run(t, "", "show-prompt", "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, "* Total()")
	assert.Contains(t, out, "* State()")
}

func TestCommandErrors(t *testing.T) {
	config, _ := setup(t)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"measures": ["Total()"], "dimensions": []}`), 0o644))

	_, _, err := run(t, "", "program", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--config")

	_, _, err = run(t, "", "program", "--config", config, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please specify at least one measure and at least one dimension.")

	_, _, err = run(t, "", "understand", "--config", config, "revenue", "by", "state")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no language model configured")
}

func TestUnderstandWithModelCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	config, _ := setup(t)
	script := `cat >/dev/null; echo 'Here you go: {"measures": ["Total()"], "dimensions": ["State()"], "filters": []}'`

	out, _, err := run(t, "", "understand", "--config", config,
		"--model-command", "sh", "--model-arg=-c", "--model-arg", script,
		"revenue", "by", "state")
	require.NoError(t, err)
	assert.Contains(t, out, `"State()"`)

	out, _, err = run(t, "", "understand", "--compile", "--config", config,
		"--model-command", "sh", "--model-arg=-c", "--model-arg", script,
		"revenue", "by", "state")
	require.NoError(t, err)
	assert.Contains(t, out, "Report(")
}

func TestNewLogger(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", ""} {
		_, err := newLogger(lvl)
		assert.NoError(t, err, lvl)
	}
	_, err := newLogger("loud")
	assert.Error(t, err)
}
