package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".consentcrawl"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .consentcrawl configuration file.
// It supplies defaults for options that rarely change between runs;
// command-line flags override it.
type File struct {
	// OutputDir is the default output directory.
	OutputDir string `yaml:"outputDir,omitempty"`

	// BrowserBin points at a browser binary.
	BrowserBin string `yaml:"browserBin,omitempty"`

	// Headless controls browser visibility. Defaults to true when the
	// key is absent.
	Headless *bool `yaml:"headless,omitempty"`

	// NavigationTimeout bounds a page load, as a duration string like
	// "60s". Parsed with time.ParseDuration; invalid values are ignored.
	NavigationTimeout string `yaml:"navigationTimeout,omitempty"`

	// FetchTimeout bounds a payload request, e.g. "30s".
	FetchTimeout string `yaml:"fetchTimeout,omitempty"`

	// FetchRetries is the transport retry count for payload requests.
	FetchRetries *int `yaml:"fetchRetries,omitempty"`

	// AssumeHTTP prefixes bare domains with "http://".
	AssumeHTTP bool `yaml:"assumeHttp,omitempty"`
}

// LoadConfigFile loads run defaults from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound. Callers
// should treat that as fatal only when the path was given explicitly.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .consentcrawl in the current directory
// 3. Look for it in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}

// Apply copies the file's defaults onto cfg, leaving fields alone where
// the file has no value. Call before flag values are merged so explicit
// flags win.
func (cf *File) Apply(cfg *Config) {
	if cf.OutputDir != "" {
		cfg.OutputDir = cf.OutputDir
	}
	if cf.BrowserBin != "" {
		cfg.BrowserBin = cf.BrowserBin
	}
	if cf.Headless != nil {
		cfg.Headless = *cf.Headless
	}
	if d, err := time.ParseDuration(cf.NavigationTimeout); err == nil && d > 0 {
		cfg.NavigationTimeout = d
	}
	if d, err := time.ParseDuration(cf.FetchTimeout); err == nil && d > 0 {
		cfg.FetchTimeout = d
	}
	if cf.FetchRetries != nil && *cf.FetchRetries >= 0 {
		cfg.FetchRetries = *cf.FetchRetries
	}
	if cf.AssumeHTTP {
		cfg.AssumeHTTP = true
	}
}
