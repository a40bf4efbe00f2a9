package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/brettbedarf/dirstore"
	"github.com/brettbedarf/dirstore/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestNewConfig_WithNilOverride tests that NewConfig creates a config with all default values
// when no override is provided.
func TestNewConfig_WithNilOverride(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(nil)

	require.NotNil(t, cfg)
	assert.Equal(t, createDefaultCfg(), cfg, "must use default values when no config provided")
	assert.NoError(t, Validate(cfg), "defaults must be valid")
	assert.Equal(t, dirstore.DefaultMaxDepth, cfg.MaxDepth, "must match the store default")
}

// TestNewConfig_WithAllOverride tests that NewConfig applies every override field.
func TestNewConfig_WithAllOverride(t *testing.T) {
	t.Parallel()

	override := createOverride()
	cfg := NewConfig(override)

	expCfg := &Config{
		LogLvl:           util.LevelFromVerbosity(*override.LogLvl),
		ListenAddress:    *override.ListenAddress,
		Backend:          *override.Backend,
		DataDir:          *override.DataDir,
		FetchConcurrency: *override.FetchConcurrency,
		MaxDepth:         *override.MaxDepth,
		EnableCORS:       *override.EnableCORS,
		EnableMetrics:    *override.EnableMetrics,
		Seed:             *override.Seed,
		SeedFile:         *override.SeedFile,
	}
	require.NotNil(t, cfg)
	assert.Equal(t, expCfg, cfg, "must override all provided fields")
	assert.NoError(t, Validate(cfg))
}

func TestConfig_Merge_LogLvlConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		verboseValue  int
		expectedLevel util.LogLevel
	}{
		{"verbose_1_error", ErrorVerbose, util.ErrorLevel},
		{"verbose_2_warn", WarnVerbose, util.WarnLevel},
		{"verbose_3_info", InfoVerbose, util.InfoLevel},
		{"verbose_4_debug", DebugVerbose, util.DebugLevel},
		{"verbose_5_trace", TraceVerbose, util.TraceLevel},
		{"verbose_0_clamped_to_1", 0, util.ErrorLevel},
		{"verbose_100_clamped_to_5", 100, util.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			override := &ConfigOverride{
				LogLvl: &tt.verboseValue,
			}

			cfg := NewConfig(override)

			assert.Equal(t, tt.expectedLevel, cfg.LogLvl,
				"CLI verbose %d should map to util.LogLevel %v", tt.verboseValue, tt.expectedLevel)
		})
	}
}

func TestConfig_Merge_NilOverrideVals(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(&ConfigOverride{})

	require.NotNil(t, cfg)
	assert.Equal(t, createDefaultCfg(), cfg, "must use default values for nil override fields")
}

func TestConfig_Merge_PartialOverride(t *testing.T) {
	t.Parallel()

	override := &ConfigOverride{
		ListenAddress: util.Pointer(":8080"),
		MaxDepth:      util.Pointer(uint32(0)),
	}
	cfg := NewConfig(override)

	expCfg := createDefaultCfg()
	expCfg.ListenAddress = ":8080"
	expCfg.MaxDepth = 0

	require.NotNil(t, cfg)
	assert.Equal(t, expCfg, cfg, "must override all provided fields and leave rest default")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.Backend = "postgres" }, "Config.Backend"},
		{"empty listen address", func(c *Config) { c.ListenAddress = "" }, "Config.ListenAddress"},
		{"listen address without port", func(c *Config) { c.ListenAddress = "localhost" }, "Config.ListenAddress"},
		{"ephemeral port", func(c *Config) { c.ListenAddress = "127.0.0.1:0" }, "Config.ListenAddress"},
		{"zero fetch concurrency", func(c *Config) { c.FetchConcurrency = 0 }, "Config.FetchConcurrency"},
		{"badger without data dir", func(c *Config) { c.Backend = BackendBadger }, "DataDir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("badger with data dir", func(t *testing.T) {
		t.Parallel()
		cfg := NewDefaultConfig()
		cfg.Backend = BackendBadger
		cfg.DataDir = t.TempDir()
		assert.NoError(t, Validate(cfg))
	})
}

func TestLoadConfigOverrideFile_Valid(t *testing.T) {
	t.Parallel()

	type tc struct {
		ext   string
		build func() (*ConfigOverride, []byte)
	}

	cases := []tc{
		{
			ext: ".yaml",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := yaml.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
		{
			ext: ".yml",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := yaml.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
		{
			ext: ".json",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := json.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
	}

	for _, c := range cases {
		name := "valid" + c.ext
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			override, data := c.build()
			dir := t.TempDir()
			path := filepath.Join(dir, "override"+c.ext)
			require.NoError(t, os.WriteFile(path, data, 0o600))

			loaded, err := LoadConfigOverrideFile(path)

			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, *override, *loaded)
		})
	}
}

func TestLoadConfigOverrideFile_KeyNames(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dirstore.yaml")
	data := "backend: badger\ndata_dir: /var/lib/dirstore\nmax_depth: 64\nverbose: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	override, err := LoadConfigOverrideFile(path)
	require.NoError(t, err)
	cfg := NewConfig(override)
	require.NoError(t, Validate(cfg))
	assert.Equal(t, BackendBadger, cfg.Backend)
	assert.Equal(t, "/var/lib/dirstore", cfg.DataDir)
	assert.Equal(t, uint32(64), cfg.MaxDepth)
	assert.Equal(t, util.DebugLevel, cfg.LogLvl)
}

// TestLoadConfigOverrideFile_NonExistentFile tests error handling
// when trying to load a file that doesn't exist.
func TestLoadConfigOverrideFile_NonExistentFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "does_not_exist.yaml")

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err), "expected not exist error, got %v", err)
}

// TestLoadConfigOverrideFile_UnsupportedExtension tests error handling
// for file extensions that aren't supported (.txt, .xml, etc).
func TestLoadConfigOverrideFile_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "override.txt")
	require.NoError(t, os.WriteFile(path, []byte("max_depth: 1"), 0o600))

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config file extension")
}

func createDefaultCfg() *Config {
	return &Config{
		LogLvl:           DefaultLogLvl,
		ListenAddress:    DefaultListenAddress,
		Backend:          DefaultBackend,
		FetchConcurrency: DefaultFetchConcurrency,
		MaxDepth:         DefaultMaxDepth,
		EnableCORS:       DefaultEnableCORS,
		EnableMetrics:    DefaultEnableMetrics,
		Seed:             DefaultSeed,
	}
}

// createOverride makes a ConfigOverride with all non-default values
func createOverride() *ConfigOverride {
	return &ConfigOverride{
		LogLvl:           util.Pointer(TraceVerbose),
		ListenAddress:    util.Pointer("0.0.0.0:9000"),
		Backend:          util.Pointer(BackendBadger),
		DataDir:          util.Pointer("/tmp/dirstore"),
		FetchConcurrency: util.Pointer(DefaultFetchConcurrency + 1),
		MaxDepth:         util.Pointer(DefaultMaxDepth + 1),
		EnableCORS:       util.Pointer(!DefaultEnableCORS),
		EnableMetrics:    util.Pointer(!DefaultEnableMetrics),
		Seed:             util.Pointer(!DefaultSeed),
		SeedFile:         util.Pointer("/etc/dirstore/seed.yaml"),
	}
}
