package main

import (
	"fmt"
	"io"
	"os"

	"SearchMapper/pkg/analysis"
	"SearchMapper/pkg/cache"
	"SearchMapper/pkg/config"
	"SearchMapper/pkg/logger"
	"SearchMapper/pkg/mapping"
	"SearchMapper/pkg/metrics"
	"SearchMapper/pkg/schema"
	"SearchMapper/pkg/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// loadConfigWithOverrides reads the environment and applies global flags.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	cfg := config.GlobalConfig
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("default-analyzer") {
		cfg.DefaultAnalyzer = c.String("default-analyzer")
	}
	if c.IsSet("store-driver") {
		cfg.StoreDriver = c.String("store-driver")
	}
	if c.IsSet("store-dsn") {
		cfg.StoreDSN = c.String("store-dsn")
	}
	return cfg, nil
}

func newAnalysisRegistry(cfg *config.Config) (*analysis.Registry, error) {
	return analysis.NewRegistry(analysis.WithDefault(cfg.DefaultAnalyzer))
}

// openSchema opens the revision store and restores the published mappings.
func openSchema(c *cli.Context, cfg *config.Config) (*schema.Registry, *store.Store, error) {
	reg, err := newAnalysisRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return nil, nil, err
	}
	plans, err := cache.NewCache(cache.Config{
		Type:              cfg.PlanCache,
		MaxSize:           cfg.PlanCacheSize,
		DefaultExpiration: cfg.PlanCacheTTL,
		CleanupInterval:   2 * cfg.PlanCacheTTL,
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	if cfg.MetricsEnabled && !metrics.IsEnabled() {
		metrics.SetGlobal(metrics.NewMetrics(prometheus.NewRegistry()))
	}
	sr := schema.NewRegistry(reg, schema.WithStore(st), schema.WithPlanCache(plans))
	if err := sr.Restore(c.Context); err != nil {
		logger.Warn("some mappings could not be restored", zap.Error(err))
	}
	return sr, st, nil
}

// readMapping loads the --mapping argument: a file path, "-" for stdin, or
// inline JSON via --json.
func readMapping(c *cli.Context) (*mapping.Config, error) {
	name := c.String("name")
	if inline := c.String("json"); inline != "" {
		return mapping.ParseJSON(name, []byte(inline))
	}
	path := c.String("mapping")
	if path == "" {
		return nil, fmt.Errorf("one of --mapping or --json is required")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(c.App.Reader)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping: %w", err)
	}
	return mapping.ParseJSON(name, data)
}

func buildMapping(c *cli.Context) (*mapping.TextFieldMapping, *analysis.Registry, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, nil, err
	}
	reg, err := newAnalysisRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	mc, err := readMapping(c)
	if err != nil {
		return nil, nil, err
	}
	m, err := mapping.Build(mc, reg)
	if err != nil {
		return nil, nil, err
	}
	return m, reg, nil
}

var mappingFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "name",
		Aliases: []string{"n"},
		Usage:   "Field name",
		Value:   "field",
	},
	&cli.StringFlag{
		Name:    "mapping",
		Aliases: []string{"m"},
		Usage:   "Mapping JSON file, - for stdin",
	},
	&cli.StringFlag{
		Name:  "json",
		Usage: "Inline mapping JSON",
	},
}

func withMappingFlags(extra ...cli.Flag) []cli.Flag {
	return append(append([]cli.Flag{}, mappingFlags...), extra...)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "mappingctl",
		Usage: "Validate text field mappings and plan phrase queries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "default-analyzer",
				Usage: "Analyzer the \"default\" reference resolves to",
			},
			&cli.StringFlag{
				Name:  "store-driver",
				Usage: "Revision store driver (sqlite, mysql, pg)",
			},
			&cli.StringFlag{
				Name:  "store-dsn",
				Usage: "Revision store DSN",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			return logger.Init(cfg.Log)
		},
		After: func(c *cli.Context) error {
			_ = logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Validate a mapping and print its canonical form",
				Flags:  withMappingFlags(&cli.BoolFlag{Name: "include-defaults", Usage: "Print every parameter"}),
				Action: buildCommand,
			},
			{
				Name:   "derive",
				Usage:  "List the auxiliary sub-fields of a mapping",
				Flags:  mappingFlags,
				Action: deriveCommand,
			},
			{
				Name:      "plan",
				Usage:     "Plan a query against a mapping",
				ArgsUsage: "<text>",
				Flags: withMappingFlags(
					&cli.StringFlag{Name: "op", Usage: "phrase, phrase_prefix, prefix or exists", Value: "phrase"},
					&cli.IntFlag{Name: "slop", Usage: "Phrase slop"},
				),
				Action: planCommand,
			},
			{
				Name:   "export",
				Usage:  "Print the bleve index mapping of a mapping",
				Flags:  mappingFlags,
				Action: exportCommand,
			},
			{
				Name:   "put",
				Usage:  "Merge a mapping into the persisted schema",
				Flags:  mappingFlags,
				Action: putCommand,
			},
			{
				Name:  "watch",
				Usage: "Keep the schema in sync with the store and log changes until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "schedule", Usage: "Refresh cron spec (default from MAPPER_REFRESH_SCHEDULE)"},
				},
				Action: watchCommand,
			},
			{
				Name:  "history",
				Usage: "List the persisted revisions of a field",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Field name", Required: true},
				},
				Action: historyCommand,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
