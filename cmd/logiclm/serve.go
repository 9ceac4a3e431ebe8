package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/wbrown/janus-olap/olap/schema"
	"github.com/wbrown/janus-olap/olap/server"
	"github.com/wbrown/janus-olap/olap/storage"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		configFile string
		listen     string
		storePath  string
		basePath   string
		logLevel   string
		cacheSize  int
		cacheTTL   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compiler over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := server.DefaultServerConfig()
			if configFile != "" {
				loaded, err := server.LoadServerConfig(configFile)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			fl := cmd.Flags()
			if fl.Changed("listen") {
				cfg.ListenAddr = listen
			}
			if fl.Changed("store") {
				cfg.StorePath = storePath
			}
			if fl.Changed("base") {
				cfg.BaseProgram = basePath
			}
			if fl.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if fl.Changed("cache-size") {
				cfg.CacheSize = cacheSize
			}
			if fl.Changed("cache-ttl") {
				cfg.CacheTTL = cacheTTL
			}
			if flags.config != "" {
				cfg.SchemaPath = flags.config
			}
			if cfg.SchemaPath == "" {
				return fmt.Errorf("--config or a schema entry in the server config is required")
			}

			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), flags, cfg, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "server-config", "", "server YAML configuration")
	f.StringVar(&listen, "listen", ":8080", "address to listen on")
	f.StringVar(&storePath, "store", "", "directory of the persistent program store (empty: memory only)")
	f.StringVar(&basePath, "base", "", "logic program prepended to compiled programs")
	f.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.IntVar(&cacheSize, "cache-size", 1000, "maximum number of cached programs")
	f.DurationVar(&cacheTTL, "cache-ttl", 5*time.Minute, "lifetime of cached programs")
	return cmd
}

func newLogger(lvl string) (log.Logger, error) {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	var allow level.Option
	switch strings.ToLower(lvl) {
	case "debug":
		allow = level.AllowDebug()
	case "", "info":
		allow = level.AllowInfo()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		return nil, fmt.Errorf("unknown log level %q", lvl)
	}
	logger = level.NewFilter(logger, allow)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller), nil
}

func serve(ctx context.Context, flags *globalFlags, cfg server.ServerConfig, logger log.Logger) error {
	s, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return err
	}

	base := cfg.BaseProgram
	if base == "" {
		base = s.Config().LogicaProgram
	}
	var baseText string
	if base != "" {
		data, err := os.ReadFile(base)
		if err != nil {
			return fmt.Errorf("read logic program: %w", err)
		}
		baseText = string(data)
	}

	opts := server.Options{
		Logger:      logger,
		Registry:    prometheus.NewRegistry(),
		Cache:       storage.NewProgramCache(cfg.CacheSize, cfg.CacheTTL),
		Model:       flags.model(),
		BaseProgram: baseText,
		Compiler:    flags.compilerOptions(os.Stderr),
	}
	opts.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.StorePath != "" {
		store, err := storage.NewBadgerStore(cfg.StorePath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Store = store
		level.Info(logger).Log("msg", "opened program store", "path", cfg.StorePath)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	level.Info(logger).Log("msg", "serving", "schema", cfg.SchemaPath, "tables", len(s.Tables()))
	return server.New(s, opts).ListenAndServe(ctx, cfg.ListenAddr, cfg.ShutdownTTL)
}
