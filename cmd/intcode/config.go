package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// Config represents the YAML configuration file structure.
type Config struct {
	VM         VMConfig         `yaml:"vm"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// VMConfig holds interpreter limits.
type VMConfig struct {
	MemoryLimit int64  `yaml:"memory_limit"`
	StepLimit   uint64 `yaml:"step_limit"`
	Trace       bool   `yaml:"trace"`
}

// CheckpointConfig holds checkpoint storage settings.
type CheckpointConfig struct {
	Backend          string `yaml:"backend"` // badger or memory
	DataDir          string `yaml:"data_dir"`
	CompressionLevel int    `yaml:"compression_level"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	dataDir := "intcode-data"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "intcode")
	}

	return Config{
		VM: VMConfig{
			MemoryLimit: 1 << 24,
		},
		Checkpoint: CheckpointConfig{
			Backend:          "badger",
			DataDir:          dataDir,
			CompressionLevel: 3,
		},
		Log: LogConfig{
			Level: "notice",
		},
	}
}

// defaultConfigPath returns the config location under the user config dir.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "intcode", "config.yaml")
}

// loadConfig loads configuration from path. A missing file yields the
// defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Checkpoint.Backend {
	case "badger", "memory":
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend)
	}
	if c.VM.MemoryLimit < 0 {
		return fmt.Errorf("negative memory limit %d", c.VM.MemoryLimit)
	}
	if c.Checkpoint.CompressionLevel < 0 || c.Checkpoint.CompressionLevel > 22 {
		return fmt.Errorf("compression level %d out of range [0,22]", c.Checkpoint.CompressionLevel)
	}
	if _, err := verbosity(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// globalFlags are the persistent flags that can override the config file.
type globalFlags struct {
	configFile string
	logLevel   string
	dataDir    string
	metrics    bool
	trace      bool
	stepLimit  uint64
}

func (f *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configFile, "config", defaultConfigPath(), "Path to YAML configuration file")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, notice, warning, error, none")
	pf.StringVar(&f.dataDir, "data-dir", "", "Checkpoint data directory")
	pf.BoolVar(&f.metrics, "metrics", false, "Print Prometheus metrics after the command")
	pf.BoolVar(&f.trace, "trace", false, "Log every executed instruction at debug level")
	pf.Uint64Var(&f.stepLimit, "step-limit", 0, "Maximum instructions per run (0 = unbounded)")
}

// applyOverrides lets explicitly set flags win over config file values.
func (f *globalFlags) applyOverrides(cmd *cobra.Command, cfg *Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if flags.Changed("data-dir") {
		cfg.Checkpoint.DataDir = f.dataDir
	}
	if flags.Changed("metrics") {
		cfg.Metrics.Enabled = f.metrics
	}
	if flags.Changed("trace") {
		cfg.VM.Trace = f.trace
	}
	if flags.Changed("step-limit") {
		cfg.VM.StepLimit = f.stepLimit
	}
}

// verbosity maps a level name to a commonlog verbosity.
func verbosity(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return 2, nil
	case "info":
		return 1, nil
	case "", "notice":
		return 0, nil
	case "warning", "warn":
		return -1, nil
	case "error":
		return -2, nil
	case "none":
		return -5, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}
