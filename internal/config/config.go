// Package config loads application settings from an optional TOML file and
// the environment. It never stores render parameters.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	EnvConfigPath = "OVERLAY_CONFIG"
	EnvLogLevel   = "LOG_LEVEL"
	EnvDebug      = "DEBUG"
	EnvJSONLogs   = "OVERLAY_JSON_LOGS"

	configFileName = "config.toml"
	appDirName     = "tracing-overlay"
)

type Config struct {
	LogLevel      string `toml:"log_level"`
	JSONLogs      bool   `toml:"json_logs"`
	ExportFormat  string `toml:"export_format"`
	JPEGQuality   int    `toml:"jpeg_quality"`
	OpenControls  bool   `toml:"open_controls"`
	MinWindowSize int    `toml:"min_window_size"`

	// Path is the file the settings were read from, empty for defaults.
	Path string `toml:"-"`
}

func Default() Config {
	return Config{
		LogLevel:      "info",
		JSONLogs:      false,
		ExportFormat:  "png",
		JPEGQuality:   95,
		OpenControls:  true,
		MinWindowSize: 200,
	}
}

var exportFormats = map[string]bool{"png": true, "jpeg": true, "bmp": true, "tiff": true, "webp": true}

// Validate checks every field and returns all problems joined.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}

	if !exportFormats[c.ExportFormat] {
		errs = append(errs, fmt.Errorf("export_format: unsupported format %q", c.ExportFormat))
	}

	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg_quality: %d outside 1..100", c.JPEGQuality))
	}

	if c.MinWindowSize < 1 {
		errs = append(errs, fmt.Errorf("min_window_size: must be positive, got %d", c.MinWindowSize))
	}

	return errors.Join(errs...)
}

// DefaultPath is the per user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appDirName, configFileName)
}

// Load reads path, or OVERLAY_CONFIG, or the per user file, in that order,
// and applies environment overrides. A missing file at the default location
// is not an error; a missing file that was asked for explicitly is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfigPath); env != "" {
			path = env
			explicit = true
		} else {
			path = DefaultPath()
		}
	}

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return cfg, err
			}
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return c.Decode(string(data), path)
}

// Decode overlays the TOML document data onto c. Unknown keys are errors.
func (c *Config) Decode(data, source string) error {
	meta, err := toml.Decode(data, c)
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", source, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys in %s: %s", source, strings.Join(keys, ", "))
	}

	c.Path = source
	c.ExportFormat = normalizeFormat(c.ExportFormat)
	return nil
}

// applyEnv applies LOG_LEVEL, DEBUG and OVERLAY_JSON_LOGS. DEBUG wins over
// LOG_LEVEL.
func (c *Config) applyEnv(getenv func(string) string) {
	if level := getenv(EnvLogLevel); level != "" {
		c.LogLevel = strings.ToLower(level)
	}

	if debug, err := strconv.ParseBool(getenv(EnvDebug)); err == nil && debug {
		c.LogLevel = "debug"
	}

	if raw := getenv(EnvJSONLogs); raw != "" {
		if jsonLogs, err := strconv.ParseBool(raw); err == nil {
			c.JSONLogs = jsonLogs
		}
	}
}

// Encode writes c as TOML.
func (c Config) Encode() (string, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return "", err
	}
	return b.String(), nil
}

func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	switch format {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	}
	return format
}
