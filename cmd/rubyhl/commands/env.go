// Package commands implements the rubyhl subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rubyhl/pkg/cache"
	"github.com/Sumatoshi-tech/rubyhl/pkg/config"
	"github.com/Sumatoshi-tech/rubyhl/pkg/lvar"
	"github.com/Sumatoshi-tech/rubyhl/pkg/observability"
	"github.com/Sumatoshi-tech/rubyhl/pkg/source"
	"github.com/Sumatoshi-tech/rubyhl/pkg/version"
)

// Persistent flag names shared by every subcommand.
const (
	FlagConfig       = "config"
	FlagVerbose      = "verbose"
	FlagBackend      = "backend"
	FlagColumnBase   = "column-base"
	FlagShowWarnings = "show-warnings"
)

// flagKeys maps persistent flags to the configuration keys they override.
var flagKeys = map[string]string{
	FlagBackend:      "extract.backend",
	FlagColumnBase:   "extract.column_base",
	FlagShowWarnings: "extract.show_warnings",
}

// AddPersistentFlags registers the global flags on root.
func AddPersistentFlags(root *cobra.Command) {
	flags := root.PersistentFlags()

	flags.String(FlagConfig, "", "config file (default .rubyhl.yaml in . or $HOME)")
	flags.BoolP(FlagVerbose, "v", false, "debug logging to stderr")
	flags.String(FlagBackend, config.BackendTreeSitter, "tree source: treesitter or ripper")
	flags.Int(FlagColumnBase, 0, "0 for parser columns, 1 for editor columns")
	flags.Bool(FlagShowWarnings, false, "report syntax the extractor does not understand")
}

// env is everything a subcommand needs to extract.
type env struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.ExtractionMetrics
	provider  source.Provider
	service   *source.Service
	cache     *cache.LRU
	logger    *slog.Logger
}

// loadEnv reads configuration with explicitly set flags on top, then
// initializes observability and the tree source for mode.
func loadEnv(cmd *cobra.Command, mode observability.AppMode) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool(FlagVerbose) //nolint:errcheck // registered on root.

	obsCfg, err := observabilityConfig(cfg, mode, verbose, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewExtractionMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	provider, err := source.New(cfg.Extract, providers.Logger)
	if err != nil {
		return nil, err
	}

	svcOpts := []source.ServiceOption{
		source.WithTracer(providers.Tracer),
		source.WithMetrics(metrics),
		source.WithLogger(providers.Logger),
		source.WithMaxFileSize(cfg.Extract.MaxFileSize),
		source.WithCalleeRecursion(cfg.Extract.FollowCallee),
	}

	// Servers see the same buffers again and again; one-shot commands do not.
	var results *cache.LRU
	if mode != observability.ModeCLI {
		results = cache.NewLRU(cfg.Extract.CacheSize)
		svcOpts = append(svcOpts, source.WithCache(results))
	}

	service := source.NewService(provider, svcOpts...)

	return &env{
		cfg:       cfg,
		providers: providers,
		metrics:   metrics,
		provider:  provider,
		service:   service,
		cache:     results,
		logger:    providers.Logger,
	}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(FlagConfig) //nolint:errcheck // registered on root.

	var opts []config.Option

	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}

		opts = append(opts, config.WithOverride(key, f.Value.String()))
	}

	cfg, err := config.LoadConfig(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func observabilityConfig(cfg *config.Config, mode observability.AppMode, verbose bool, logOut io.Writer) (observability.Config, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.Prometheus = cfg.Telemetry.MetricsAddr != ""
	obsCfg.LogJSON = cfg.Logging.Format == config.FormatJSON
	obsCfg.LogOutput = logOut

	level, err := observability.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return obsCfg, err
	}

	obsCfg.LogLevel = level
	if verbose {
		obsCfg.LogLevel = slog.LevelDebug
	}

	return obsCfg, nil
}

// serveMetrics exposes /metrics when telemetry.metrics_addr is set.
func (e *env) serveMetrics(ctx context.Context) (func(), error) {
	if e.cfg.Telemetry.MetricsAddr == "" {
		return func() {}, nil
	}

	ms, err := observability.StartMetricsServer(ctx, e.cfg.Telemetry.MetricsAddr, e.providers)
	if err != nil {
		return nil, err
	}

	return ms.Close, nil
}

// rebase applies the configured column base at the output boundary.
func (e *env) rebase(occs []lvar.Occurrence) []lvar.Occurrence {
	return lvar.Rebase(occs, e.cfg.Extract.ColumnBase)
}

func (e *env) close() {
	if e.cache != nil {
		stats := e.cache.Stats()
		e.logger.Debug("result cache", "hits", stats.Hits, "misses", stats.Misses,
			"hit_rate", stats.HitRate(), "entries", stats.Entries)
	}

	shutdownErr := e.providers.Shutdown(context.Background())
	if shutdownErr != nil {
		e.logger.Warn("observability shutdown failed", "error", shutdownErr)
	}
}
