package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/dirstore"
	"github.com/brettbedarf/dirstore/internal/util"
	"gopkg.in/yaml.v3"
)

// Backend selects the store implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendBadger Backend = "badger"
)

// Verbosity values accepted by [ConfigOverride.LogLvl], as on the CLI.
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultLogLvl           = util.InfoLevel
	DefaultListenAddress    = "127.0.0.1:3000"
	DefaultBackend          = BackendMemory
	DefaultFetchConcurrency = dirstore.DefaultFetchConcurrency
	DefaultMaxDepth         = dirstore.DefaultMaxDepth

	DefaultEnableCORS    = true
	DefaultEnableMetrics = true
	DefaultSeed          = false
)

// Config contains runtime configuration values for the directory service.
type Config struct {
	LogLvl util.LogLevel // Log level (Default Info)

	ListenAddress string  `validate:"required,hostname_port"`       // host:port the HTTP server binds (Default 127.0.0.1:3000)
	Backend       Backend `validate:"required,oneof=memory badger"` // Store implementation (Default memory)
	DataDir       string  // Badger data directory, required for the badger backend

	FetchConcurrency int    `validate:"min=1,max=4096"` // In-flight child fetches per directory during reads (Default 16)
	MaxDepth         uint32 // Deepest directory Create accepts, 0 for unlimited (Default 1024)

	EnableCORS    bool // Allow cross-origin requests from any origin (Default true)
	EnableMetrics bool // Expose Prometheus metrics at /metrics (Default true)
	Seed          bool   // Populate the demo trees for owners 0 and 42 at startup (Default false)
	SeedFile      string // YAML or JSON datasets created at startup, after the demo trees
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is a CLI verbosity between 1 (error) and 5 (trace), clamped.
	LogLvl           *int     `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	ListenAddress    *string  `yaml:"listen_address,omitempty" json:"listen_address,omitempty"`
	Backend          *Backend `yaml:"backend,omitempty" json:"backend,omitempty"`
	DataDir          *string  `yaml:"data_dir,omitempty" json:"data_dir,omitempty"`
	FetchConcurrency *int     `yaml:"fetch_concurrency,omitempty" json:"fetch_concurrency,omitempty"`
	MaxDepth         *uint32  `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`
	EnableCORS       *bool    `yaml:"enable_cors,omitempty" json:"enable_cors,omitempty"`
	EnableMetrics    *bool    `yaml:"enable_metrics,omitempty" json:"enable_metrics,omitempty"`
	Seed             *bool    `yaml:"seed,omitempty" json:"seed,omitempty"`
	SeedFile         *string  `yaml:"seed_file,omitempty" json:"seed_file,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
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

// NewConfig returns the defaults with override applied. A nil override
// yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = util.LevelFromVerbosity(*override.LogLvl)
	}
	if override.ListenAddress != nil {
		c.ListenAddress = *override.ListenAddress
	}
	if override.Backend != nil {
		c.Backend = *override.Backend
	}
	if override.DataDir != nil {
		c.DataDir = *override.DataDir
	}
	if override.FetchConcurrency != nil {
		c.FetchConcurrency = *override.FetchConcurrency
	}
	if override.MaxDepth != nil {
		c.MaxDepth = *override.MaxDepth
	}
	if override.EnableCORS != nil {
		c.EnableCORS = *override.EnableCORS
	}
	if override.EnableMetrics != nil {
		c.EnableMetrics = *override.EnableMetrics
	}
	if override.Seed != nil {
		c.Seed = *override.Seed
	}
	if override.SeedFile != nil {
		c.SeedFile = *override.SeedFile
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}
