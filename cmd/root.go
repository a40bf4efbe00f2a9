package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brettbedarf/dirstore/config"
	"github.com/brettbedarf/dirstore/internal/app"
	"github.com/brettbedarf/dirstore/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides, e.g. DIRSTORE_BACKEND.
const envPrefix = "DIRSTORE"

// flagKeys maps config keys (also env names after prefixing) to flag names.
var flagKeys = map[string]string{
	"config":            "config",
	"listen_address":    "listen",
	"backend":           "backend",
	"data_dir":          "data-dir",
	"fetch_concurrency": "fetch-concurrency",
	"max_depth":         "max-depth",
	"enable_cors":       "cors",
	"enable_metrics":    "metrics",
	"seed":              "seed",
	"seed_file":         "seed-file",
	"verbose":           "verbose",
}

// newCLI builds the root command and the viper instance bound to its flags.
// Running the root command without a subcommand serves.
func newCLI() (*cobra.Command, *viper.Viper) {
	v := viper.New()

	root := &cobra.Command{
		Use:           "dirstore",
		Short:         "Per-owner directory tree service",
		Long:          "Serves isolated directory trees per caller over HTTP, backed by memory or BadgerDB.",
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, v)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to a YAML or JSON config file")
	flags.String("listen", config.DefaultListenAddress, "host:port to listen on")
	flags.String("backend", string(config.DefaultBackend), "Store backend: memory or badger")
	flags.String("data-dir", "", "Badger data directory")
	flags.Int("fetch-concurrency", config.DefaultFetchConcurrency, "In-flight child fetches per directory during reads")
	flags.Uint32("max-depth", config.DefaultMaxDepth, "Deepest directory accepted, 0 for unlimited")
	flags.Bool("cors", config.DefaultEnableCORS, "Allow cross-origin requests from any origin")
	flags.Bool("metrics", config.DefaultEnableMetrics, "Expose Prometheus metrics at /metrics")
	flags.Bool("seed", config.DefaultSeed, "Populate the demo dataset at startup")
	flags.String("seed-file", "", "YAML or JSON datasets to create at startup")
	flags.IntP("verbose", "v", config.InfoVerbose, "Log verbosity between 1 (error) and 5 (trace)")

	for key, flag := range flagKeys {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// plain LISTEN_ADDRESS is honoured for compatibility with older deployments
	_ = v.BindEnv("listen_address", envPrefix+"_LISTEN_ADDRESS", "LISTEN_ADDRESS")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the directory HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, v)
		},
	}
	root.AddCommand(serve)

	return root, v
}

func runServe(cmd *cobra.Command, v *viper.Viper) (err error) {
	cfg, err := resolveConfig(v)
	if err != nil {
		return err
	}

	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize")
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	logger.Info().Str("listen", cfg.ListenAddress).Str("backend", string(cfg.Backend)).Msg("Dirstore API starting")
	if err := a.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Server stopped with error")
		return err
	}
	logger.Info().Msg("Dirstore API stopped")
	return nil
}

// resolveConfig layers defaults, the config file, then env and flags.
func resolveConfig(v *viper.Viper) (*config.Config, error) {
	override := &config.ConfigOverride{}
	if path := v.GetString("config"); path != "" {
		fileOverride, err := config.LoadConfigOverrideFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config %q: %w", path, err)
		}
		override = fileOverride
	}
	applyViper(v, override)

	cfg := config.NewConfig(override)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyViper copies every key explicitly set by env or flag onto override.
func applyViper(v *viper.Viper, override *config.ConfigOverride) {
	if v.IsSet("verbose") {
		override.LogLvl = util.Pointer(v.GetInt("verbose"))
	}
	if v.IsSet("listen_address") {
		override.ListenAddress = util.Pointer(v.GetString("listen_address"))
	}
	if v.IsSet("backend") {
		override.Backend = util.Pointer(config.Backend(v.GetString("backend")))
	}
	if v.IsSet("data_dir") {
		override.DataDir = util.Pointer(v.GetString("data_dir"))
	}
	if v.IsSet("fetch_concurrency") {
		override.FetchConcurrency = util.Pointer(v.GetInt("fetch_concurrency"))
	}
	if v.IsSet("max_depth") {
		override.MaxDepth = util.Pointer(v.GetUint32("max_depth"))
	}
	if v.IsSet("enable_cors") {
		override.EnableCORS = util.Pointer(v.GetBool("enable_cors"))
	}
	if v.IsSet("enable_metrics") {
		override.EnableMetrics = util.Pointer(v.GetBool("enable_metrics"))
	}
	if v.IsSet("seed") {
		override.Seed = util.Pointer(v.GetBool("seed"))
	}
	if v.IsSet("seed_file") {
		override.SeedFile = util.Pointer(v.GetString("seed_file"))
	}
}
