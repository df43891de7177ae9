package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alnah/go-teamstamp/internal/config"
)

// envPrefix marks teamstamp environment variables.
const envPrefix = "TEAMSTAMP_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath  string // TEAMSTAMP_CONFIG: config file name or path
	TestDir     string // TEAMSTAMP_TEST_DIRECTORY: source documents
	OutputDir   string // TEAMSTAMP_OUTPUT_DIR: output root
	Label       string // TEAMSTAMP_LABEL: overlay label
	AuthDir     string // TEAMSTAMP_AUTH_DIR: .htpasswd directory on the server
	Hasher      string // TEAMSTAMP_HASHER: bcrypt or htpasswd
	Stamper     string // TEAMSTAMP_STAMPER: pdftk binary
	Rasterizer  string // TEAMSTAMP_RASTERIZER: convert or magick binary
	Timeout     string // TEAMSTAMP_TIMEOUT: per-document timeout
	AssetPath   string // TEAMSTAMP_ASSET_PATH: custom asset directory
	Workers     int    // TEAMSTAMP_WORKERS: documents at once per team
	TeamWorkers int    // TEAMSTAMP_TEAM_WORKERS: teams at once
}

// knownEnvVars lists valid TEAMSTAMP_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"TEAMSTAMP_CONFIG":         true,
	"TEAMSTAMP_TEST_DIRECTORY": true,
	"TEAMSTAMP_OUTPUT_DIR":     true,
	"TEAMSTAMP_LABEL":          true,
	"TEAMSTAMP_AUTH_DIR":       true,
	"TEAMSTAMP_HASHER":         true,
	"TEAMSTAMP_STAMPER":        true,
	"TEAMSTAMP_RASTERIZER":     true,
	"TEAMSTAMP_TIMEOUT":        true,
	"TEAMSTAMP_ASSET_PATH":     true,
	"TEAMSTAMP_WORKERS":        true,
	"TEAMSTAMP_TEAM_WORKERS":   true,
	"TEAMSTAMP_CONTAINER":      true, // read by doctor
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath: getenv("TEAMSTAMP_CONFIG"),
		TestDir:    getenv("TEAMSTAMP_TEST_DIRECTORY"),
		OutputDir:  getenv("TEAMSTAMP_OUTPUT_DIR"),
		Label:      getenv("TEAMSTAMP_LABEL"),
		AuthDir:    getenv("TEAMSTAMP_AUTH_DIR"),
		Hasher:     getenv("TEAMSTAMP_HASHER"),
		Stamper:    getenv("TEAMSTAMP_STAMPER"),
		Rasterizer: getenv("TEAMSTAMP_RASTERIZER"),
		Timeout:    getenv("TEAMSTAMP_TIMEOUT"),
		AssetPath:  getenv("TEAMSTAMP_ASSET_PATH"),
	}

	if w, err := strconv.Atoi(getenv("TEAMSTAMP_WORKERS")); err == nil && w > 0 {
		cfg.Workers = w
	}
	if w, err := strconv.Atoi(getenv("TEAMSTAMP_TEAM_WORKERS")); err == nil && w > 0 {
		cfg.TeamWorkers = w
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized TEAMSTAMP_* variables.
// Helps catch typos like TEAMSTAMP_WORKER instead of TEAMSTAMP_WORKERS.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, env := range environ {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(env, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig applies set environment values over the config file.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	setString(&cfg.Source.Dir, env.TestDir)
	setString(&cfg.Output.Dir, env.OutputDir)
	setString(&cfg.Overlay.Label, env.Label)
	setString(&cfg.Access.AuthDir, env.AuthDir)
	setString(&cfg.Access.Hasher, env.Hasher)
	setString(&cfg.Tools.Stamper, env.Stamper)
	setString(&cfg.Tools.Rasterizer, env.Rasterizer)
	setString(&cfg.Tools.Timeout, env.Timeout)
	setString(&cfg.Assets.BasePath, env.AssetPath)
	setInt(&cfg.Workers.Documents, env.Workers)
	setInt(&cfg.Workers.Teams, env.TeamWorkers)
}

// setString overwrites dst when v is non-empty.
func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// setInt overwrites dst when v is non-zero.
func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
