package teamstamp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-teamstamp/internal/assets"
	"github.com/alnah/go-teamstamp/internal/fileutil"
)

// Config holds the explicit settings of one distribution run.
// Zero values take the documented defaults.
type Config struct {
	OutputRoot       string
	SourceDir        string // defaults to DefaultSourceDir
	Extension        string // defaults to DefaultExtension
	Workers          int    // documents per team at once; see ResolvePoolSize
	RecipientWorkers int    // teams at once; 0 or 1 processes them in table order
	TempDir          string // overlay directory; defaults to os.TempDir()
	Raster           RasterSettings
	MarkerFormat     string // defaults to DefaultMarkerFormat
	Label            string // printed before the code on every overlay
	AccessControl    bool   // emit .htaccess and .htpasswd files
	AuthUserDir      string // directory of .htpasswd as seen by the web server
	Manifest         bool   // write manifest.csv with document digests
}

// withDefaults fills zero values.
func (c Config) withDefaults() Config {
	if c.SourceDir == "" {
		c.SourceDir = DefaultSourceDir
	}
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	if c.Raster == (RasterSettings{}) {
		c.Raster = DefaultRasterSettings()
	}
	if c.MarkerFormat == "" {
		c.MarkerFormat = DefaultMarkerFormat
	}
	return c
}

// Validate checks the configuration. Defaults must already be applied.
func (c Config) Validate() error {
	if strings.TrimSpace(c.OutputRoot) == "" {
		return fmt.Errorf("%w: %w", ErrConfiguration, ErrNoOutputDir)
	}
	if err := c.Raster.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := ValidateMarkerFormat(c.MarkerFormat); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := fileutil.ValidateExtension(strings.TrimPrefix(c.Extension, ".")); err != nil {
		return fmt.Errorf("%w: extension %q: %v", ErrConfiguration, c.Extension, err)
	}
	if err := checkDisjoint(c.OutputRoot, c.SourceDir); err != nil {
		return err
	}
	return nil
}

// checkDisjoint rejects an output root that would contain the sources,
// since an existing root is removed before the run.
func checkDisjoint(outputRoot, sourceDir string) error {
	out, err := filepath.Abs(outputRoot)
	if err != nil {
		return fmt.Errorf("%w: resolving output directory: %v", ErrConfiguration, err)
	}
	src, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("%w: resolving source directory: %v", ErrConfiguration, err)
	}
	rel, err := filepath.Rel(out, src)
	if err == nil && (rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))) {
		return fmt.Errorf("%w: output directory %s contains source directory %s", ErrConfiguration, outputRoot, sourceDir)
	}
	return nil
}

// Request is one invocation of Run.
type Request struct {
	// Teams is the number of teams to generate. With CachedCredentials it
	// must be zero or equal to the number of replayed rows.
	Teams int

	// CachedCredentials is the path of a credential table to replay
	// instead of generating new credentials.
	CachedCredentials string
}

// Report summarizes a run. It is returned even when the run fails.
type Report struct {
	RunID      string
	OutputRoot string
	Table      CredentialTable
	Sources    []Document
	Results    []RecipientResult // processed teams, in table order
	Documents  int               // documents produced across all teams
	Manifest   string            // manifest path, when written
	Elapsed    time.Duration
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []RecipientResult {
	var failed []RecipientResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// ConfirmFunc decides whether an existing output directory may be removed.
type ConfirmFunc func(path string) bool

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRenderer sets the overlay renderer. The caller keeps ownership.
func WithRenderer(r OverlayRenderer) Option {
	return func(o *Orchestrator) {
		o.renderer = r
	}
}

// WithCompositor sets the compositor. Defaults to NewExecCompositor().
func WithCompositor(c Compositor) Option {
	return func(o *Orchestrator) {
		o.compositor = c
	}
}

// WithConfirm sets the overwrite confirmation. Without it an existing
// output directory is never removed.
func WithConfirm(fn ConfirmFunc) Option {
	return func(o *Orchestrator) {
		o.confirm = fn
	}
}

// WithLogger sets the structured logger. Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithProgress sets where human-readable progress lines are written.
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) {
		o.progress = w
	}
}

// WithHasher sets the htpasswd entry writer. Defaults to BcryptHasher.
func WithHasher(h Hasher) Option {
	return func(o *Orchestrator) {
		o.hasher = h
	}
}

// WithGenerator sets the credential generator. Defaults to one built from
// the embedded word lists.
func WithGenerator(g *Generator) Option {
	return func(o *Orchestrator) {
		o.generator = g
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// Orchestrator runs the whole distribution: credentials, output layout,
// per-team watermarking and access control.
type Orchestrator struct {
	cfg          Config
	renderer     OverlayRenderer
	ownsRenderer bool
	compositor   Compositor
	confirm      ConfirmFunc
	logger       *zap.Logger
	progress     io.Writer
	hasher       Hasher
	generator    *Generator
	now          func() time.Time

	progressMu sync.Mutex
}

// NewOrchestrator validates cfg and wires defaults for every dependency not
// supplied through options. The default renderer starts its browser lazily.
func NewOrchestrator(cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{cfg: cfg}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.progress == nil {
		o.progress = io.Discard
	}
	if o.confirm == nil {
		o.confirm = func(string) bool { return false }
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.compositor == nil {
		o.compositor = NewExecCompositor()
	}
	if o.generator == nil {
		g, err := defaultGenerator()
		if err != nil {
			return nil, err
		}
		o.generator = g
	}
	if o.renderer == nil {
		r, err := NewRodRenderer(DefaultOverlayStyle())
		if err != nil {
			return nil, err
		}
		o.renderer = r
		o.ownsRenderer = true
	}
	return o, nil
}

// defaultGenerator builds a Generator from the embedded word lists.
func defaultGenerator() (*Generator, error) {
	adjectives, err := embeddedWordList(assets.AdjectivesName)
	if err != nil {
		return nil, err
	}
	nouns, err := embeddedWordList(assets.NounsName)
	if err != nil {
		return nil, err
	}
	return NewGenerator(adjectives, nouns)
}

func embeddedWordList(name string) ([]string, error) {
	content, err := assets.LoadWordList(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return ReadWordList(strings.NewReader(content))
}

// Close releases the renderer if the Orchestrator created it.
func (o *Orchestrator) Close() error {
	if o.ownsRenderer {
		return o.renderer.Close()
	}
	return nil
}

// Run executes one distribution. Inputs are validated before anything is
// written, so configuration and format errors leave the filesystem untouched.
// On a team failure the returned Report covers the teams processed so far
// and the error is a *RecipientError.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (o *Orchestrator) Run(ctx context.Context, req Request) (report *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	start := o.now()
	report = &Report{RunID: uuid.NewString(), OutputRoot: o.cfg.OutputRoot}
	defer func() { report.Elapsed = o.now().Sub(start) }()
	log := o.logger.With(zap.String("run", report.RunID))

	table, err := o.resolveTable(log, req)
	if err != nil {
		return report, err
	}
	docs, err := DiscoverDocuments(o.cfg.SourceDir, o.cfg.Extension)
	if err != nil {
		return report, err
	}
	report.Table = table
	report.Sources = docs
	log.Info("inputs resolved", zap.Int("teams", len(table)), zap.Int("documents", len(docs)))

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if err := o.prepareRoot(); err != nil {
		return report, err
	}

	var emitter *AccessEmitter
	if o.cfg.AccessControl {
		emitter = NewAccessEmitter(o.cfg.AuthUserDir, o.hasher)
		if err := emitter.Prepare(o.cfg.OutputRoot); err != nil {
			return report, err
		}
	}

	if err := SaveTable(filepath.Join(o.cfg.OutputRoot, TableFileName), table); err != nil {
		return report, err
	}

	for _, r := range table {
		dir := RecipientDir(o.cfg.OutputRoot, r.ID)
		if err := os.Mkdir(dir, fileutil.DirPerm); err != nil {
			return report, fmt.Errorf("creating team directory: %w", err)
		}
		if emitter != nil {
			if err := emitter.WriteDescriptor(dir, r.ID); err != nil {
				return report, err
			}
		}
	}

	scheduler := NewScheduler(o.renderer, o.compositor, SchedulerConfig{
		OutputRoot:   o.cfg.OutputRoot,
		TempDir:      o.cfg.TempDir,
		RunID:        report.RunID,
		Workers:      o.cfg.Workers,
		Raster:       o.cfg.Raster,
		MarkerFormat: o.cfg.MarkerFormat,
		Label:        o.cfg.Label,
		Logger:       log,
	})

	runErr := o.processTeams(ctx, scheduler, emitter, table, docs, report)
	o.printf("\nCreated a total of %d documents\n", report.Documents)

	if o.cfg.Manifest {
		if err := o.writeManifest(report); err != nil {
			if runErr == nil {
				return report, err
			}
			log.Warn("manifest not written", zap.Error(err))
		}
	}

	if runErr != nil {
		return report, runErr
	}

	o.printf("Watermarked pdfs can be found in %s\n", o.cfg.OutputRoot)
	return report, nil
}

// resolveTable loads the replay table or generates a new one. It writes
// nothing.
func (o *Orchestrator) resolveTable(log *zap.Logger, req Request) (CredentialTable, error) {
	if req.CachedCredentials != "" {
		table, err := LoadTable(req.CachedCredentials)
		if err != nil {
			if errors.Is(err, ErrFormat) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		if req.Teams != 0 && req.Teams != len(table) {
			return nil, fmt.Errorf("%w: %w: %d teams requested but %s has %d",
				ErrConfiguration, ErrInvalidTeamCount, req.Teams, req.CachedCredentials, len(table))
		}
		log.Info("replaying credentials", zap.String("path", req.CachedCredentials), zap.Int("teams", len(table)))
		return table, nil
	}

	if req.Teams < 1 {
		return nil, fmt.Errorf("%w: %w: %d (must be positive)", ErrConfiguration, ErrInvalidTeamCount, req.Teams)
	}
	adjectives, nouns := o.generator.WordCounts()
	log.Info("generating passwords", zap.Int("nouns", nouns), zap.Int("adjectives", adjectives))
	return o.generator.NewTable(req.Teams)
}

// prepareRoot asks before removing an existing output root, then creates it.
func (o *Orchestrator) prepareRoot() error {
	root := o.cfg.OutputRoot
	_, err := os.Lstat(root)
	switch {
	case err == nil:
		if !o.confirm(root) {
			return fmt.Errorf("%w: %s", ErrConfirmationDeclined, root)
		}
		if err := os.RemoveAll(root); err != nil {
			return fmt.Errorf("removing output directory: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("checking output directory: %w", err)
	}

	if err := os.MkdirAll(root, fileutil.DirPerm); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return nil
}

// processTeams runs the scheduler for every team with at most
// RecipientWorkers teams in flight. A team failure stops teams that have not
// started yet. Results are stored in table order.
func (o *Orchestrator) processTeams(ctx context.Context, s *Scheduler, emitter *AccessEmitter, table CredentialTable, docs []Document, report *Report) error {
	results := make([]*RecipientResult, len(table))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ResolveRecipientWorkers(o.cfg.RecipientWorkers))
	for i, r := range table {
		g.Go(func() (err error) {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer func() {
				if p := recover(); p != nil {
					err = &RecipientError{ID: r.ID, Stage: StageComposite, Err: fmt.Errorf("internal error: %v", p)}
					results[i] = &RecipientResult{Recipient: r, Err: err}
				}
			}()

			o.printf("Watermarking team %d\n", r.ID)
			res := s.Run(ctx, r, docs)
			if res.Err == nil && emitter != nil {
				if err := emitter.Grant(ctx, r.ID, r.Secret); err != nil {
					res.Err = &RecipientError{ID: r.ID, Stage: StageGrant, Err: err}
				}
			}
			results[i] = &res

			if res.Err != nil {
				o.printf("FAILED %v\n", res.Err)
				return res.Err
			}
			return nil
		})
	}
	err := g.Wait()

	for _, res := range results {
		if res == nil {
			continue
		}
		report.Results = append(report.Results, *res)
		report.Documents += len(res.Produced)
	}
	return err
}

func (o *Orchestrator) writeManifest(report *Report) error {
	entries, err := BuildManifest(report.Results)
	if err != nil {
		return err
	}
	path := filepath.Join(o.cfg.OutputRoot, ManifestFileName)
	if err := SaveManifest(path, entries); err != nil {
		return err
	}
	report.Manifest = path
	return nil
}

// printf writes one progress line. Lines from concurrent teams never
// interleave.
func (o *Orchestrator) printf(format string, args ...any) {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	fmt.Fprintf(o.progress, format, args...)
}
