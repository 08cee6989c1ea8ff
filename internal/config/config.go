package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// configPtr holds the current config for thread-safe access.
var configPtr atomic.Pointer[Config]

// loadedConfigFile stores the path of the config file used by the last
// successful Load.
var loadedConfigFile atomic.Value

// Get returns the current Config. It is safe for concurrent use. If no
// config has been loaded yet, it returns the default config.
func Get() *Config {
	if c := configPtr.Load(); c != nil {
		return c
	}
	d := DefaultConfig()
	configPtr.Store(d)
	return d
}

// set stores a new Config atomically.
func set(cfg *Config) {
	configPtr.Store(cfg)
}

// Config is the top-level configuration for Chronicle.
type Config struct {
	Watch WatchConfig `mapstructure:"watch" toml:"watch"`
	OCR   OCRConfig   `mapstructure:"ocr"   toml:"ocr"`
	Index IndexConfig `mapstructure:"index" toml:"index"`
	Host  HostConfig  `mapstructure:"host"  toml:"host"`
	Log   LogConfig   `mapstructure:"log"   toml:"log"`
}

// WatchConfig controls the watcher and debouncer.
type WatchConfig struct {
	// Dirs overrides the two spec-default watch directories
	// (relative to $HOME, or absolute). Empty means use the defaults.
	Dirs               []string `mapstructure:"dirs"                 toml:"dirs"`
	DebounceMS         int      `mapstructure:"debounce_ms"          toml:"debounce_ms"`
	IgnoreTTLSeconds   int      `mapstructure:"ignore_ttl_seconds"   toml:"ignore_ttl_seconds"`
	StabilizationPolls int      `mapstructure:"stabilization_polls"  toml:"stabilization_polls"`
	StabilizationMS    int      `mapstructure:"stabilization_ms"     toml:"stabilization_ms"`
}

// OCRConfig controls the OCR engines.
type OCRConfig struct {
	// TesseractPSMModes is loaded and validated but not read by the OCR
	// package: GenericTesseract always walks its own fixed mode ladder.
	TesseractPSMModes []int `mapstructure:"tesseract_psm_modes" toml:"tesseract_psm_modes"`
	VisionEnabled     bool  `mapstructure:"vision_enabled"      toml:"vision_enabled"`
}

// IndexConfig controls the persistent store. SimilarityThreshold is loaded
// and validated but not read elsewhere: find-similar requests without a
// threshold use the store's built-in default of 10.
type IndexConfig struct {
	DataDir             string `mapstructure:"data_dir"             toml:"data_dir"`
	DBFilename          string `mapstructure:"db_filename"          toml:"db_filename"`
	SimilarityThreshold int    `mapstructure:"similarity_threshold" toml:"similarity_threshold"`
}

// HostConfig controls the local HTTP/SSE surface used by the host app.
type HostConfig struct {
	BindAddress string `mapstructure:"bind_address" toml:"bind_address"`
	Port        int    `mapstructure:"port"         toml:"port"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"`
	Foreground bool   `mapstructure:"foreground"  toml:"foreground"`
}

// DefaultConfig returns the built-in default configuration.
func DefaultConfig() *Config {
	return &Config{
		Watch: WatchConfig{
			Dirs:               nil,
			DebounceMS:         DefaultDebounceMS,
			IgnoreTTLSeconds:   DefaultIgnoreTTLSeconds,
			StabilizationPolls: DefaultStabilizationPolls,
			StabilizationMS:    DefaultStabilizationIntervalMS,
		},
		OCR: OCRConfig{
			TesseractPSMModes: DefaultPSMModes(),
			VisionEnabled:     true,
		},
		Index: IndexConfig{
			DataDir:             DefaultDataDir,
			DBFilename:          DefaultDBFilename,
			SimilarityThreshold: DefaultSimilarityThreshold,
		},
		Host: HostConfig{
			BindAddress: DefaultBindAddress,
			Port:        DefaultHostPort,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			Foreground: false,
		},
	}
}

// DBPath returns the full path to the SQLite database file.
func (c *Config) DBPath() string {
	return filepath.Join(expandHome(c.Index.DataDir), c.Index.DBFilename)
}

// Load reads configuration from disk with the following precedence:
//  1. Environment variables (CHRONICLE_ prefix, _ as separator)
//  2. The file at explicitPath if non-empty
//  3. ~/.chronicle/chronicle.toml
//  4. ./chronicle.toml
//  5. Built-in defaults
//
// The loaded config is validated and stored in the global atomic pointer.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	setViperDefaults(v)

	v.SetEnvPrefix("CHRONICLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".chronicle"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("chronicle")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config: %w", err)
		}
	}

	if cf := v.ConfigFileUsed(); cf != "" {
		loadedConfigFile.Store(cf)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
	)); err != nil {
		return nil, fmt.Errorf("config: unmarshalling config: %w", err)
	}

	cfg.Index.DataDir = expandHome(cfg.Index.DataDir)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	set(cfg)
	return cfg, nil
}

// InitConfig writes the default configuration file to
// ~/.chronicle/chronicle.toml. If the file already exists it is not
// overwritten.
func InitConfig() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("config: determining home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".chronicle")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: creating data directory: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFilename)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists: %s\n", path)
		return nil
	}

	cfg := DefaultConfig()
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshalling default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: writing config: %w", err)
	}

	fmt.Printf("Config written to %s\n", path)
	return nil
}

// ConfigFilePath returns the path of the config file that was loaded, or
// empty if no file was found.
func ConfigFilePath() string {
	if v, ok := loadedConfigFile.Load().(string); ok {
		return v
	}
	return ""
}

// setViperDefaults registers every known key with viper so env var binding
// works for all fields even when no config file is present.
func setViperDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("watch.dirs", d.Watch.Dirs)
	v.SetDefault("watch.debounce_ms", d.Watch.DebounceMS)
	v.SetDefault("watch.ignore_ttl_seconds", d.Watch.IgnoreTTLSeconds)
	v.SetDefault("watch.stabilization_polls", d.Watch.StabilizationPolls)
	v.SetDefault("watch.stabilization_ms", d.Watch.StabilizationMS)

	v.SetDefault("ocr.tesseract_psm_modes", d.OCR.TesseractPSMModes)
	v.SetDefault("ocr.vision_enabled", d.OCR.VisionEnabled)

	v.SetDefault("index.data_dir", d.Index.DataDir)
	v.SetDefault("index.db_filename", d.Index.DBFilename)
	v.SetDefault("index.similarity_threshold", d.Index.SimilarityThreshold)

	v.SetDefault("host.bind_address", d.Host.BindAddress)
	v.SetDefault("host.port", d.Host.Port)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.foreground", d.Log.Foreground)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
