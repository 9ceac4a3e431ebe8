package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-olap/olap/compiler"
	"github.com/wbrown/janus-olap/olap/schema"
	"github.com/wbrown/janus-olap/olap/storage"
	"github.com/wbrown/janus-olap/olap/understand"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(schema.Config{
		DefaultFactTable: "Sales",
		FactTables:       []schema.FactTable{{FactTable: "Sales"}},
		Measures:         []schema.Measure{{AggregatingFunction: schema.PredicateSignature{PredicateName: "Total"}}},
		Dimensions:       []schema.Dimension{{Function: schema.PredicateSignature{PredicateName: "State"}}},
		ChartTypes:       []schema.ChartType{{Predicate: schema.PredicateSignature{PredicateName: "BarChart"}}},
	})
	require.NoError(t, err)
	return s
}

type sqlFunc func(ctx context.Context, program, predicate string) (string, error)

func (f sqlFunc) CompileSQL(ctx context.Context, program, predicate string) (string, error) {
	return f(ctx, program, predicate)
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const validRequest = `{"measures": ["Total()"], "dimensions": ["State()"], "filters": [], "chartType": "BarChart(stacked: true)"}`

func TestProgramEndpoint(t *testing.T) {
	store, err := storage.NewInMemoryBadgerStore()
	require.NoError(t, err)
	defer store.Close()

	var gotPredicate string
	srv := New(testSchema(t), Options{
		Cache:       storage.NewProgramCache(10, time.Minute),
		Store:       store,
		BaseProgram: "Sales(x) :- T(x)",
		SQL: sqlFunc(func(_ context.Context, program, predicate string) (string, error) {
			gotPredicate = predicate
			return "SELECT 1", nil
		}),
	})

	rec := post(t, srv.Handler(), "/api/program", validRequest)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ProgramResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.False(t, resp.Cached)
	assert.Contains(t, resp.Program, "ConsolidatingSales(")
	assert.True(t, strings.HasPrefix(resp.FullProgram, "Sales(x) :- T(x);\n"))
	assert.Equal(t, "SELECT 1", resp.SQL)
	assert.Equal(t, "Report", gotPredicate)
	require.NotNil(t, resp.ChartTypeCall)
	assert.Equal(t, "BarChart", resp.ChartTypeCall.PredicateName)
	assert.Equal(t, map[string]string{"stacked": "true"}, resp.ChartTypeCall.Arguments)

	entry, err := store.Get(resp.Key)
	require.NoError(t, err)
	assert.Equal(t, resp.Program, entry.Program)

	rec = post(t, srv.Handler(), "/api/program", validRequest)
	require.Equal(t, http.StatusOK, rec.Code)
	var again ProgramResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.True(t, again.Cached)
	assert.Equal(t, resp.Program, again.Program)
}

func TestStoredProgramsAreKeyedByCompilerOptions(t *testing.T) {
	store, err := storage.NewInMemoryBadgerStore()
	require.NoError(t, err)
	defer store.Close()

	first := New(testSchema(t), Options{Store: store})
	rec := post(t, first.Handler(), "/api/program", validRequest)
	require.Equal(t, http.StatusOK, rec.Code)

	opts := compiler.DefaultOptions()
	opts.ReportPredicate = "Answer"
	second := New(testSchema(t), Options{Store: store, Compiler: opts})
	rec = post(t, second.Handler(), "/api/program", validRequest)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProgramResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Cached)
	assert.Contains(t, resp.Program, "Answer(")
	assert.NotContains(t, resp.Program, "Report(")
}

func TestProgramEndpointErrors(t *testing.T) {
	srv := New(testSchema(t), Options{})

	tests := []struct {
		name string
		body string
		code int
		kind string
	}{
		{"no dimensions", `{"measures": ["Total()"], "dimensions": []}`, http.StatusBadRequest, "request"},
		{"bad json", `{"measures": `, http.StatusBadRequest, "request"},
		{"unknown measure", `{"measures": ["Nope()"], "dimensions": ["State()"]}`, http.StatusBadRequest, "schema"},
		{"bad call", `{"measures": ["Total("], "dimensions": ["State()"]}`, http.StatusBadRequest, "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, srv.Handler(), "/api/program", tt.body)
			assert.Equal(t, tt.code, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Kind)
		})
	}

	rec := post(t, srv.Handler(), "/api/program", `{"measures": [], "dimensions": []}`)
	assert.Contains(t, rec.Body.String(), "Please specify at least one measure and at least one dimension.")
}

func TestSQLCompilerErrorsPassThrough(t *testing.T) {
	srv := New(testSchema(t), Options{
		SQL: sqlFunc(func(context.Context, string, string) (string, error) {
			return "", errors.New("type error in Report")
		}),
	})

	rec := post(t, srv.Handler(), "/api/program", validRequest)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "type error in Report", resp.Error)
	assert.Equal(t, "sql", resp.Kind)
}

func TestExplainAndPrompt(t *testing.T) {
	srv := New(testSchema(t), Options{})

	rec := post(t, srv.Handler(), "/api/explain", validRequest)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sales")

	req := httptest.NewRequest(http.MethodGet, "/api/prompt", nil)
	out := httptest.NewRecorder()
	srv.Handler().ServeHTTP(out, req)
	assert.Contains(t, out.Body.String(), "* Total()")
	assert.Contains(t, out.Body.String(), understand.UserRequestPlaceholder)
}

func TestUnderstandEndpoint(t *testing.T) {
	srv := New(testSchema(t), Options{})
	rec := post(t, srv.Handler(), "/api/understand", "revenue by state")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	srv = New(testSchema(t), Options{Model: understand.ModelFunc(func(context.Context, string) (string, error) {
		return `Sure: {"measures": ["Total()"], "dimensions": ["State()"], "filters": []}`, nil
	})})
	rec = post(t, srv.Handler(), "/api/understand", "revenue by state")
	require.Equal(t, http.StatusOK, rec.Code)

	var req schema.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &req))
	assert.Equal(t, []string{"State()"}, req.Dimensions)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := New(testSchema(t), Options{})
	post(t, srv.Handler(), "/api/program", validRequest)

	for path, want := range map[string]string{
		"/healthz": "ok",
		"/metrics": `logiclm_requests_total{code="200",endpoint="program"} 1`,
	} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body, _ := io.ReadAll(rec.Body)
		assert.Contains(t, string(body), want)
	}
}

func TestLoadServerConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9090\"\nschema: sales.yaml\ncache_ttl: 30s\n"), 0o644))

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "sales.yaml", cfg.SchemaPath)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 1000, cfg.CacheSize)

	require.NoError(t, os.WriteFile(path, []byte("bogus: 1\n"), 0o644))
	_, err = LoadServerConfig(path)
	assert.Error(t, err)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	srv := New(testSchema(t), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0", time.Second) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
