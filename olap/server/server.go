// Package server exposes the compiler over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wbrown/janus-olap/olap/compiler"
	"github.com/wbrown/janus-olap/olap/logic"
	"github.com/wbrown/janus-olap/olap/schema"
	"github.com/wbrown/janus-olap/olap/storage"
	"github.com/wbrown/janus-olap/olap/syntax"
	"github.com/wbrown/janus-olap/olap/understand"
)

const maxBodyBytes = 1 << 20

// SQLCompiler turns a full logic program into SQL for one predicate.
// Its errors are reported to clients verbatim.
type SQLCompiler interface {
	CompileSQL(ctx context.Context, program, predicate string) (string, error)
}

// Options wires optional collaborators into a Server
type Options struct {
	Logger      log.Logger
	Registry    *prometheus.Registry
	Cache       *storage.ProgramCache
	Store       storage.ProgramStore
	Model       understand.Model
	SQL         SQLCompiler
	BaseProgram string
	Compiler    compiler.Options
}

// Server serves compile, explain and understand endpoints for one schema
type Server struct {
	schema     *schema.Schema
	opts       Options
	logger     log.Logger
	metrics    *metrics
	understand *understand.Understander
	router     chi.Router
}

// New creates a server for s
func New(s *schema.Schema, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Compiler.ReportPredicate == "" {
		opts.Compiler = compiler.DefaultOptions()
	}

	srv := &Server{
		schema:  s,
		opts:    opts,
		logger:  log.With(opts.Logger, "component", "server"),
		metrics: newMetrics(opts.Registry),
	}
	if opts.Model != nil {
		srv.understand = understand.NewUnderstander(s.Config(), opts.Model)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/program", srv.instrument("program", srv.handleProgram))
		r.Post("/explain", srv.instrument("explain", srv.handleExplain))
		r.Post("/understand", srv.instrument("understand", srv.handleUnderstand))
		r.Get("/prompt", srv.instrument("prompt", srv.handlePrompt))
	})
	srv.router = r
	return srv
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within timeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, timeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		level.Info(s.logger).Log("msg", "listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	level.Info(s.logger).Log("msg", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		s.metrics.requests.WithLabelValues(endpoint, strconv.Itoa(rec.code)).Inc()
	}
}

// ProgramResponse is the body returned by POST /api/program
type ProgramResponse struct {
	ID            string         `json:"id,omitempty"`
	Key           string         `json:"key"`
	Program       string         `json:"program"`
	FullProgram   string         `json:"full_program,omitempty"`
	SQL           string         `json:"sql,omitempty"`
	Cached        bool           `json:"cached"`
	Request       schema.Request `json:"request"`
	ChartTypeCall *ChartTypeCall `json:"chart_type_predicate_call,omitempty"`
}

// ChartTypeCall echoes the parsed chart type of a request
type ChartTypeCall struct {
	PredicateName string            `json:"predicate_name"`
	Arguments     map[string]string `json:"arguments"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps compile errors to status codes: bad input is 400, model
// or SQL compiler failures 422, anything else 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		serr *schema.SchemaError
		rerr *schema.RequestError
		perr *syntax.ParseError
		xerr *externalError
	)
	code, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.As(err, &rerr):
		code, kind = http.StatusBadRequest, "request"
	case errors.As(err, &perr):
		code, kind = http.StatusBadRequest, "parse"
	case errors.As(err, &serr):
		code, kind = http.StatusBadRequest, "schema"
	case errors.As(err, &xerr):
		code, kind = http.StatusUnprocessableEntity, xerr.stage
	}
	if code == http.StatusInternalServerError {
		level.Error(s.logger).Log("msg", "request failed", "err", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error(), Kind: kind})
}

// externalError wraps failures of collaborators outside the compiler
type externalError struct {
	stage string
	err   error
}

func (e *externalError) Error() string { return e.err.Error() }
func (e *externalError) Unwrap() error { return e.err }

func readRequest(r *http.Request) (schema.Request, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return schema.Request{}, err
	}
	req, err := schema.ParseRequest(body)
	if err != nil {
		return schema.Request{}, &schema.RequestError{Msg: err.Error()}
	}
	return req, nil
}

func (s *Server) handleProgram(w http.ResponseWriter, r *http.Request) {
	req, err := readRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.Compile(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Compile validates and compiles req, consulting the cache and store
func (s *Server) Compile(ctx context.Context, req schema.Request) (*ProgramResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.Normalized()

	key, err := storage.Key(s.schema.Config(), req, s.opts.Compiler.Fingerprint())
	if err != nil {
		return nil, err
	}
	resp := &ProgramResponse{Key: key, Request: req}

	if req.ChartType != "" {
		call, err := syntax.Parse(req.ChartType)
		if err != nil {
			return nil, fmt.Errorf("chart type: %w", err)
		}
		resp.ChartTypeCall = chartTypeCall(call)
	}

	if text, ok := s.lookup(key); ok {
		resp.Program, resp.Cached = text, true
	} else {
		start := time.Now()
		c, err := compiler.New(s.schema, req, s.opts.Compiler)
		if err != nil {
			return nil, err
		}
		program, err := c.Program()
		if err != nil {
			return nil, err
		}
		s.metrics.compileDuration.Observe(time.Since(start).Seconds())
		s.metrics.programRules.Observe(float64(program.Len()))

		resp.ID = c.ID()
		resp.Program = program.String()
		s.remember(key, c.ID(), resp.Program)
		level.Info(s.logger).Log("msg", "compiled", "id", c.ID(), "key", key[:12], "rules", program.Len(), "duration", time.Since(start))
	}

	full := resp.Program
	if s.opts.BaseProgram != "" {
		full = logic.ConcatText(s.opts.BaseProgram, resp.Program)
		resp.FullProgram = full
	}
	if s.opts.SQL != nil {
		sql, err := s.opts.SQL.CompileSQL(ctx, full, s.opts.Compiler.ReportPredicate)
		if err != nil {
			return nil, &externalError{stage: "sql", err: err}
		}
		resp.SQL = sql
	}
	return resp, nil
}

func (s *Server) lookup(key string) (string, bool) {
	if text, ok := s.opts.Cache.Get(key); ok {
		s.metrics.cacheLookups.WithLabelValues("memory").Inc()
		return text, true
	}
	if s.opts.Store != nil {
		entry, err := s.opts.Store.Get(key)
		if err == nil {
			s.metrics.cacheLookups.WithLabelValues("store").Inc()
			s.opts.Cache.Set(key, entry.Program)
			return entry.Program, true
		}
		if !errors.Is(err, storage.ErrNotFound) {
			level.Warn(s.logger).Log("msg", "program store read failed", "key", key, "err", err)
		}
	}
	s.metrics.cacheLookups.WithLabelValues("miss").Inc()
	return "", false
}

func (s *Server) remember(key, id, text string) {
	s.opts.Cache.Set(key, text)
	if s.opts.Store == nil {
		return
	}
	entry := storage.Entry{Key: key, CompileID: id, Program: text, CreatedAt: time.Now().UTC()}
	if err := s.opts.Store.Put(entry); err != nil {
		level.Warn(s.logger).Log("msg", "program store write failed", "key", key, "err", err)
	}
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	req, err := readRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, err := compiler.New(s.schema, req, s.opts.Compiler)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, c.Explain())
}

func (s *Server) handlePrompt(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, understand.PromptTemplate(s.schema.Config()))
}

func (s *Server) handleUnderstand(w http.ResponseWriter, r *http.Request) {
	if s.understand == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "no language model configured", Kind: "understand"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, err)
		return
	}
	req, err := s.understand.Understand(r.Context(), string(body))
	if err != nil {
		s.writeError(w, &externalError{stage: "understand", err: err})
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func chartTypeCall(call *logic.Call) *ChartTypeCall {
	out := &ChartTypeCall{PredicateName: call.Predicate, Arguments: map[string]string{}}
	for _, a := range call.Named {
		out.Arguments[a.Name] = a.Value.String()
	}
	return out
}
