// Package config loads teamstamp YAML configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-teamstamp/internal/fileutil"
	"github.com/alnah/go-teamstamp/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength     = 4096
	MaxLabelLength    = 100 // printed on every page
	MaxMarkerLength   = 50  // "C-{id}"
	MaxColorLength    = 20  // "#0000ff"
	MaxBinaryLength   = 255 // "pdftk", "/usr/local/bin/magick"
	MaxDurationLength = 20  // "2m30s"
)

// appDirName is the directory under os.UserConfigDir() searched for configs.
const appDirName = "go-teamstamp"

// Config holds file-based settings. Zero values mean "use the default".
type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Output      OutputConfig      `yaml:"output"`
	Workers     WorkersConfig     `yaml:"workers"`
	Overlay     OverlayConfig     `yaml:"overlay"`
	Raster      RasterConfig      `yaml:"raster"`
	Tools       ToolsConfig       `yaml:"tools"`
	Access      AccessConfig      `yaml:"access"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Assets      AssetsConfig      `yaml:"assets"`
	Manifest    bool              `yaml:"manifest"`
}

// SourceConfig locates the documents to distribute.
type SourceConfig struct {
	Dir       string `yaml:"dir"`       // default "tests"
	Extension string `yaml:"extension"` // default ".pdf"
}

// OutputConfig defines the output root.
type OutputConfig struct {
	Dir string `yaml:"dir"` // used when no positional directory is given
}

// WorkersConfig bounds concurrency.
type WorkersConfig struct {
	Documents int `yaml:"documents"` // per team; 0 = auto
	Teams     int `yaml:"teams"`     // teams at once; 0 = sequential
}

// OverlayConfig defines the overlay text and styling.
type OverlayConfig struct {
	Marker         string  `yaml:"marker"` // must contain {id}
	Label          string  `yaml:"label"`
	MarkerColor    string  `yaml:"markerColor"`
	MarkerOpacity  float64 `yaml:"markerOpacity"`
	MarkerFontSize float64 `yaml:"markerFontSize"`
	CodeColor      string  `yaml:"codeColor"`
	CodeOpacity    float64 `yaml:"codeOpacity"`
	CodeFontSize   float64 `yaml:"codeFontSize"`
	CodeOffset     float64 `yaml:"codeOffset"`
}

// RasterConfig defines rasterization settings.
type RasterConfig struct {
	Density int `yaml:"density"`
	Quality int `yaml:"quality"`
}

// ToolsConfig names the external binaries.
type ToolsConfig struct {
	Stamper    string `yaml:"stamper"`    // default "pdftk"
	Rasterizer string `yaml:"rasterizer"` // default "convert"
	Htpasswd   string `yaml:"htpasswd"`   // default "htpasswd"
	Timeout    string `yaml:"timeout"`    // per document, e.g. "2m"
}

// AccessConfig defines the web server access files.
type AccessConfig struct {
	Enabled bool   `yaml:"enabled"`
	AuthDir string `yaml:"authDir"` // .htpasswd directory as seen by the server
	Hasher  string `yaml:"hasher"`  // "bcrypt" or "htpasswd"
}

// CredentialsConfig overrides the word lists.
type CredentialsConfig struct {
	Adjectives string `yaml:"adjectives"` // word list path
	Nouns      string `yaml:"nouns"`
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// Validate checks field lengths and value ranges that do not need the
// library's defaults to be meaningful.
func (c *Config) Validate() error {
	paths := []struct {
		name, value string
	}{
		{"source.dir", c.Source.Dir},
		{"output.dir", c.Output.Dir},
		{"access.authDir", c.Access.AuthDir},
		{"credentials.adjectives", c.Credentials.Adjectives},
		{"credentials.nouns", c.Credentials.Nouns},
		{"assets.basePath", c.Assets.BasePath},
	}
	for _, p := range paths {
		if err := validateFieldLength(p.name, p.value, MaxPathLength); err != nil {
			return err
		}
	}

	if c.Source.Extension != "" {
		if err := fileutil.ValidateExtension(strings.TrimPrefix(c.Source.Extension, ".")); err != nil {
			return fmt.Errorf("%w: source.extension %q: %v", ErrInvalidValue, c.Source.Extension, err)
		}
	}

	if c.Workers.Documents < 0 {
		return fmt.Errorf("%w: workers.documents must not be negative, got %d", ErrInvalidValue, c.Workers.Documents)
	}
	if c.Workers.Teams < 0 {
		return fmt.Errorf("%w: workers.teams must not be negative, got %d", ErrInvalidValue, c.Workers.Teams)
	}

	if err := c.Overlay.validate(); err != nil {
		return err
	}

	if c.Raster.Density < 0 || c.Raster.Quality < 0 || c.Raster.Quality > 100 {
		return fmt.Errorf("%w: raster density %d, quality %d", ErrInvalidValue, c.Raster.Density, c.Raster.Quality)
	}

	for _, b := range []struct{ name, value string }{
		{"tools.stamper", c.Tools.Stamper},
		{"tools.rasterizer", c.Tools.Rasterizer},
		{"tools.htpasswd", c.Tools.Htpasswd},
	} {
		if err := validateFieldLength(b.name, b.value, MaxBinaryLength); err != nil {
			return err
		}
	}
	if _, err := c.Tools.TimeoutDuration(); err != nil {
		return err
	}

	switch strings.ToLower(c.Access.Hasher) {
	case "", "bcrypt", "htpasswd":
	default:
		return fmt.Errorf("%w: access.hasher %q (must be bcrypt or htpasswd)", ErrInvalidValue, c.Access.Hasher)
	}

	return nil
}

func (o *OverlayConfig) validate() error {
	if err := validateFieldLength("overlay.marker", o.Marker, MaxMarkerLength); err != nil {
		return err
	}
	if err := validateFieldLength("overlay.label", o.Label, MaxLabelLength); err != nil {
		return err
	}
	if err := validateFieldLength("overlay.markerColor", o.MarkerColor, MaxColorLength); err != nil {
		return err
	}
	if err := validateFieldLength("overlay.codeColor", o.CodeColor, MaxColorLength); err != nil {
		return err
	}
	if o.Marker != "" && !strings.Contains(o.Marker, "{id}") {
		return fmt.Errorf("%w: overlay.marker %q must contain {id}", ErrInvalidValue, o.Marker)
	}
	if o.MarkerOpacity < 0 || o.MarkerOpacity >= 1 {
		return fmt.Errorf("%w: overlay.markerOpacity must be below 1, got %.2f", ErrInvalidValue, o.MarkerOpacity)
	}
	if o.CodeOpacity < 0 || o.CodeOpacity >= 1 {
		return fmt.Errorf("%w: overlay.codeOpacity must be below 1, got %.2f", ErrInvalidValue, o.CodeOpacity)
	}
	if o.MarkerFontSize < 0 || o.CodeFontSize < 0 {
		return fmt.Errorf("%w: overlay font sizes must not be negative", ErrInvalidValue)
	}
	if o.CodeOffset < 0 || o.CodeOffset >= 1 {
		return fmt.Errorf("%w: overlay.codeOffset must be in [0, 1), got %.2f", ErrInvalidValue, o.CodeOffset)
	}
	return nil
}

// TimeoutDuration parses Tools.Timeout. An empty value returns zero.
func (t ToolsConfig) TimeoutDuration() (time.Duration, error) {
	if t.Timeout == "" {
		return 0, nil
	}
	if len(t.Timeout) > MaxDurationLength {
		return 0, fmt.Errorf("%w: tools.timeout (%d chars, max %d)", ErrFieldTooLong, len(t.Timeout), MaxDurationLength)
	}
	d, err := time.ParseDuration(t.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: tools.timeout %q (must be a positive duration like 2m)", ErrInvalidValue, t.Timeout)
	}
	return d, nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns an empty configuration: every setting falls back to
// the library default, access control and the manifest are off.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.DecodeStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-teamstamp/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, appDirName, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
