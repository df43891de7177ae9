package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-teamstamp"
	"github.com/alnah/go-teamstamp/internal/assets"
	"github.com/alnah/go-teamstamp/internal/config"
)

// ErrUsage marks invalid command-line usage.
var ErrUsage = errors.New("usage error")

// runDistribute resolves flags, environment and config into a run and
// executes it.
func runDistribute(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseDistributeFlags(args, env.Stderr)
	if err != nil {
		if isHelpRequest(err) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	warnUnknownEnvVars(env.Stderr, env.Environ())
	envCfg := loadEnvConfig(env.Getenv)

	cfg, err := loadRunConfig(flags.common.config, envCfg.ConfigPath)
	if err != nil {
		return err
	}
	applyEnvConfig(envCfg, cfg)
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	teams, outputDir, err := resolvePositional(positional, flags.credentials.cached, cfg)
	if err != nil {
		return err
	}

	logger := newLogger(env, flags.common.quiet, flags.common.verbose)
	defer func() { _ = logger.Sync() }()

	libCfg := buildLibraryConfig(cfg, outputDir)
	logger.Debug("configuration resolved",
		zap.String("output", outputDir),
		zap.String("source", libCfg.SourceDir),
		zap.Int("workers", libCfg.Workers),
		zap.Int("team_workers", libCfg.RecipientWorkers),
		zap.Bool("access_control", libCfg.AccessControl),
		zap.String("assets", cfg.Assets.BasePath),
	)

	resolver, err := assets.NewAssetResolver(cfg.Assets.BasePath)
	if err != nil {
		return fmt.Errorf("loading assets: %w", err)
	}
	generator, err := buildGenerator(cfg.Credentials, resolver)
	if err != nil {
		return err
	}
	hasher, err := buildHasher(cfg)
	if err != nil {
		return err
	}

	compositor := env.Compositor
	if compositor == nil {
		if compositor, err = buildCompositor(cfg.Tools); err != nil {
			return err
		}
	}

	renderer := env.Renderer
	if renderer == nil {
		rod, err := buildRenderer(buildOverlayStyle(cfg.Overlay), resolver)
		if err != nil {
			return err
		}
		defer func() { _ = rod.Close() }()
		renderer = rod
	}

	progress := env.Stdout
	if flags.common.quiet {
		progress = io.Discard
	}

	orch, err := teamstamp.NewOrchestrator(libCfg,
		teamstamp.WithRenderer(renderer),
		teamstamp.WithCompositor(compositor),
		teamstamp.WithConfirm(newConfirm(env, flags.yes)),
		teamstamp.WithLogger(logger),
		teamstamp.WithProgress(progress),
		teamstamp.WithHasher(hasher),
		teamstamp.WithGenerator(generator),
		teamstamp.WithClock(env.Now),
	)
	if err != nil {
		return err
	}
	defer func() { _ = orch.Close() }()

	report, err := orch.Run(ctx, teamstamp.Request{
		Teams:             teams,
		CachedCredentials: flags.credentials.cached,
	})
	if flags.common.verbose && report != nil {
		printSummary(env.Stdout, report)
	}
	return err
}

// loadRunConfig loads the config named by the flag, then by
// TEAMSTAMP_CONFIG. Without either, defaults are used.
func loadRunConfig(flagConfig, envConfig string) (*config.Config, error) {
	name := flagConfig
	if name == "" {
		name = envConfig
	}
	if name == "" {
		return config.DefaultConfig(), nil
	}

	cfg, err := config.LoadConfig(name)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(flags *distributeFlags, cfg *config.Config) {
	setString(&cfg.Source.Dir, flags.testDirectory)
	setInt(&cfg.Workers.Documents, flags.workers)
	setInt(&cfg.Workers.Teams, flags.teamWorkers)
	setString(&cfg.Tools.Timeout, flags.timeout)
	setString(&cfg.Assets.BasePath, flags.assetPath)

	setString(&cfg.Overlay.Label, flags.overlay.label)
	setString(&cfg.Overlay.Marker, flags.overlay.marker)

	setInt(&cfg.Raster.Density, flags.raster.density)
	setInt(&cfg.Raster.Quality, flags.raster.quality)

	setString(&cfg.Access.AuthDir, flags.access.authDir)
	setString(&cfg.Access.Hasher, flags.access.hasher)
	setString(&cfg.Credentials.Adjectives, flags.credentials.adjectives)
	setString(&cfg.Credentials.Nouns, flags.credentials.nouns)

	// Boolean flags can only enable.
	if flags.access.createHtaccess {
		cfg.Access.Enabled = true
	}
	if flags.manifest {
		cfg.Manifest = true
	}
}

// resolvePositional parses `<n_teams> <output_directory>`. The output may
// come from config instead; with a replay table n_teams may be 0.
func resolvePositional(args []string, cached string, cfg *config.Config) (int, string, error) {
	var rawTeams, output string
	switch len(args) {
	case 2:
		rawTeams, output = args[0], args[1]
	case 1:
		if cfg.Output.Dir == "" {
			return 0, "", fmt.Errorf("%w: missing output_directory (or set output.dir)", ErrUsage)
		}
		rawTeams, output = args[0], cfg.Output.Dir
	case 0:
		if cached == "" || cfg.Output.Dir == "" {
			return 0, "", fmt.Errorf("%w: expected <n_teams> <output_directory>", ErrUsage)
		}
		return 0, cfg.Output.Dir, nil
	default:
		return 0, "", fmt.Errorf("%w: unexpected arguments %s", ErrUsage, strings.Join(args[2:], " "))
	}

	teams, err := strconv.Atoi(rawTeams)
	if err != nil {
		return 0, "", fmt.Errorf("%w: n_teams %q is not an integer", ErrUsage, rawTeams)
	}
	return teams, output, nil
}

// buildLibraryConfig maps file settings onto the run configuration.
// Zero values are left for the library defaults.
func buildLibraryConfig(cfg *config.Config, outputDir string) teamstamp.Config {
	return teamstamp.Config{
		OutputRoot:       outputDir,
		SourceDir:        cfg.Source.Dir,
		Extension:        cfg.Source.Extension,
		Workers:          cfg.Workers.Documents,
		RecipientWorkers: cfg.Workers.Teams,
		Raster:           buildRasterSettings(cfg.Raster),
		MarkerFormat:     cfg.Overlay.Marker,
		Label:            cfg.Overlay.Label,
		AccessControl:    cfg.Access.Enabled,
		AuthUserDir:      cfg.Access.AuthDir,
		Manifest:         cfg.Manifest,
	}
}

// buildRasterSettings fills unset fields with defaults.
func buildRasterSettings(r config.RasterConfig) teamstamp.RasterSettings {
	s := teamstamp.DefaultRasterSettings()
	if r.Density != 0 {
		s.Density = r.Density
	}
	if r.Quality != 0 {
		s.Quality = r.Quality
	}
	return s
}

// buildOverlayStyle fills unset fields with defaults.
func buildOverlayStyle(o config.OverlayConfig) teamstamp.OverlayStyle {
	s := teamstamp.DefaultOverlayStyle()
	setString(&s.MarkerColor, o.MarkerColor)
	setString(&s.CodeColor, o.CodeColor)
	setFloat(&s.MarkerOpacity, o.MarkerOpacity)
	setFloat(&s.CodeOpacity, o.CodeOpacity)
	setFloat(&s.MarkerFontSize, o.MarkerFontSize)
	setFloat(&s.CodeFontSize, o.CodeFontSize)
	setFloat(&s.CodeOffset, o.CodeOffset)
	return s
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

// buildGenerator loads word lists from explicit paths, falling back to the
// asset resolver (custom asset directory, then embedded lists).
func buildGenerator(c config.CredentialsConfig, resolver assets.AssetLoader) (*teamstamp.Generator, error) {
	adjectives, err := loadWords(c.Adjectives, assets.AdjectivesName, resolver)
	if err != nil {
		return nil, err
	}
	nouns, err := loadWords(c.Nouns, assets.NounsName, resolver)
	if err != nil {
		return nil, err
	}
	return teamstamp.NewGenerator(adjectives, nouns)
}

func loadWords(path, name string, resolver assets.AssetLoader) ([]string, error) {
	if path != "" {
		return teamstamp.LoadWordList(path)
	}
	content, err := resolver.LoadWordList(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", teamstamp.ErrConfiguration, err)
	}
	return teamstamp.ReadWordList(strings.NewReader(content))
}

// buildHasher selects the htpasswd entry writer.
func buildHasher(cfg *config.Config) (teamstamp.Hasher, error) {
	h, err := teamstamp.NewHasher(strings.ToLower(cfg.Access.Hasher))
	if err != nil {
		return nil, err
	}
	if tool, ok := h.(*teamstamp.HtpasswdTool); ok {
		tool.Binary = cfg.Tools.Htpasswd
	}
	return h, nil
}

// buildCompositor configures the pdftk/convert pipeline.
func buildCompositor(t config.ToolsConfig) (*teamstamp.ExecCompositor, error) {
	c := teamstamp.NewExecCompositor()
	setString(&c.Stamper, t.Stamper)
	setString(&c.Rasterizer, t.Rasterizer)

	timeout, err := t.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		c.Timeout = timeout
	}
	return c, nil
}

// buildRenderer creates the browser renderer with the resolved template.
func buildRenderer(style teamstamp.OverlayStyle, resolver assets.AssetLoader) (*teamstamp.RodRenderer, error) {
	tmpl, err := resolver.LoadTemplate(assets.OverlayTemplateName)
	if err != nil {
		return nil, fmt.Errorf("%w: loading overlay template: %v", teamstamp.ErrConfiguration, err)
	}
	return teamstamp.NewRodRenderer(style, teamstamp.WithOverlayTemplate(tmpl))
}

// printSummary prints per-team timing for verbose runs.
func printSummary(w io.Writer, r *teamstamp.Report) {
	fmt.Fprintf(w, "\nRun %s\n", r.RunID)
	for _, res := range r.Results {
		status := "ok"
		if res.Err != nil {
			status = "failed"
		}
		fmt.Fprintf(w, "  team %d: %d documents, %s (%v)\n",
			res.Recipient.ID, len(res.Produced), status, res.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(w, "Elapsed: %v\n", r.Elapsed.Round(time.Millisecond))
}
