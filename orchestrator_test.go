package teamstamp

// Notes:
// - Every test runs the orchestrator with fakeRenderer and fakeCompositor
//   (fanout_test.go); no browser or external tool is needed.
// - Output roots live under t.TempDir(), next to (never inside) the sources.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// runFixture is a source directory, an output root and the fakes.
type runFixture struct {
	base       string
	sourceDir  string
	root       string
	tempDir    string
	renderer   *fakeRenderer
	compositor *fakeCompositor
	progress   *bytes.Buffer
}

func newRunFixture(t *testing.T, sources ...string) *runFixture {
	t.Helper()

	base := t.TempDir()
	fx := &runFixture{
		base:       base,
		sourceDir:  filepath.Join(base, "tests"),
		root:       filepath.Join(base, "2026"),
		tempDir:    filepath.Join(base, "tmp"),
		renderer:   &fakeRenderer{},
		compositor: &fakeCompositor{},
		progress:   &bytes.Buffer{},
	}
	writeSources(t, fx.sourceDir, sources...)
	if err := os.MkdirAll(fx.tempDir, 0o755); err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	return fx
}

func (fx *runFixture) config() Config {
	return Config{
		OutputRoot: fx.root,
		SourceDir:  fx.sourceDir,
		TempDir:    fx.tempDir,
	}
}

func (fx *runFixture) orchestrator(t *testing.T, cfg Config, opts ...Option) *Orchestrator {
	t.Helper()

	base := []Option{
		WithRenderer(fx.renderer),
		WithCompositor(fx.compositor),
		WithGenerator(newTestGenerator(t)),
		WithProgress(fx.progress),
	}
	o, err := NewOrchestrator(cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	t.Cleanup(func() { _ = o.Close() })
	return o
}

// listTree returns every path under root, relative and slash-separated.
func listTree(t *testing.T, root string) []string {
	t.Helper()

	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			rel += "/"
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", root, err)
	}
	return paths
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestOrchestrator_TwoTeamsOneDocument(t *testing.T) {
	t.Parallel()

	fx := newRunFixture(t, "examA.pdf")
	o := fx.orchestrator(t, fx.config())

	report, err := o.Run(context.Background(), Request{Teams: 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"1/", "1/examA.pdf", "2/", "2/examA.pdf", "team_data.csv"}
	if diff := cmp.Diff(want, listTree(t, fx.root)); diff != "" {
		t.Errorf("output tree mismatch (-want +got):\n%s", diff)
	}

	table, err := LoadTable(filepath.Join(fx.root, TableFileName))
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	if len(table) != 2 || table[0].ID != 1 || table[1].ID != 2 {
		t.Errorf("table = %+v, want teams 1 and 2", table)
	}
	if diff := cmp.Diff(report.Table, table); diff != "" {
		t.Errorf("report table differs from saved table (-report +saved):\n%s", diff)
	}

	if report.Documents != 2 {
		t.Errorf("Documents = %d, want 2", report.Documents)
	}
	assertNoOverlays(t, fx.tempDir)

	progress := fx.progress.String()
	for _, line := range []string{
		"Watermarking team 1\n",
		"Watermarking team 2\n",
		"Created a total of 2 documents\n",
		"Watermarked pdfs can be found in " + fx.root + "\n",
	} {
		if !strings.Contains(progress, line) {
			t.Errorf("progress missing %q:\n%s", line, progress)
		}
	}
}

func TestOrchestrator_AccessControlOneTeam(t *testing.T) {
	t.Parallel()

	fx := newRunFixture(t, "examA.pdf")
	cfg := fx.config()
	cfg.AccessControl = true

	// Root files must exist, and the secret file must still be empty,
	// while team 1's documents are produced.
	fx.compositor.before = func(context.Context, CompositeJob) error {
		if _, err := os.Stat(filepath.Join(fx.root, DescriptorFileName)); err != nil {
			return fmt.Errorf("root descriptor missing during compositing: %w", err)
		}
		if _, err := os.Stat(filepath.Join(fx.root, "1", DescriptorFileName)); err != nil {
			return fmt.Errorf("team descriptor missing during compositing: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(fx.root, SharedSecretFileName))
		if err != nil {
			return fmt.Errorf("secret file missing during compositing: %w", err)
		}
		if len(data) != 0 {
			return fmt.Errorf("team granted before its documents exist: %q", data)
		}
		return nil
	}

	o := fx.orchestrator(t, cfg, WithHasher(&recordingHasher{}))
	report, err := o.Run(context.Background(), Request{Teams: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := readLines(t, filepath.Join(fx.root, SharedSecretFileName))
	want := []string{"1:" + report.Table[0].Secret}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("%s mismatch (-want +got):\n%s", SharedSecretFileName, diff)
	}

	rootDescriptor := readLines(t, filepath.Join(fx.root, DescriptorFileName))
	if got := rootDescriptor[len(rootDescriptor)-1]; got != "require all denied" {
		t.Errorf("root descriptor ends with %q", got)
	}
	teamDescriptor := readLines(t, filepath.Join(fx.root, "1", DescriptorFileName))
	if got := teamDescriptor[len(teamDescriptor)-1]; got != "require user 1" {
		t.Errorf("team descriptor ends with %q", got)
	}
}

func TestOrchestrator_ReplayWithoutDocuments(t *testing.T) {
	t.Parallel()

	fx := newRunFixture(t) // empty source set
	replay := filepath.Join(fx.base, "replay.csv")
	table := CredentialTable{
		{ID: 1, Secret: "brave-otter-1111", Code: "aaaa1111"},
		{ID: 2, Secret: "calm-heron-2222", Code: "bbbb2222"},
		{ID: 3, Secret: "swift-badger-3333", Code: "cccc3333"},
	}
	if err := SaveTable(replay, table); err != nil {
		t.Fatalf("SaveTable() error = %v", err)
	}

	o := fx.orchestrator(t, fx.config())
	report, err := o.Run(context.Background(), Request{CachedCredentials: replay})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Documents != 0 {
		t.Errorf("Documents = %d, want 0", report.Documents)
	}
	want := []string{"1/", "2/", "3/", "team_data.csv"}
	if diff := cmp.Diff(want, listTree(t, fx.root)); diff != "" {
		t.Errorf("output tree mismatch (-want +got):\n%s", diff)
	}
	saved, err := LoadTable(filepath.Join(fx.root, TableFileName))
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	if diff := cmp.Diff(table, saved); diff != "" {
		t.Errorf("saved table mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(fx.progress.String(), "Created a total of 0 documents") {
		t.Errorf("progress = %q", fx.progress.String())
	}
}

func TestOrchestrator_ReplayIsIdempotent(t *testing.T) {
	t.Parallel()

	fx := newRunFixture(t, "examA.pdf", "examB.pdf")
	o := fx.orchestrator(t, fx.config(), WithConfirm(func(string) bool { return true }))

	first, err := o.Run(context.Background(), Request{Teams: 3})
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	tablePath := filepath.Join(fx.root, TableFileName)
	firstTable, _ := os.ReadFile(tablePath)
	firstOutput, _ := os.ReadFile(filepath.Join(fx.root, "2", "examB.pdf"))

	// Replaying the table the first run wrote, into the same root.
	second, err := o.Run(context.Background(), Request{CachedCredentials: tablePath})
	if err != nil {
		t.Fatalf("replay Run() error = %v", err)
	}

	secondTable, _ := os.ReadFile(tablePath)
	if string(firstTable) != string(secondTable) {
		t.Errorf("replayed table differs:\n%s\nvs\n%s", firstTable, secondTable)
	}
	secondOutput, _ := os.ReadFile(filepath.Join(fx.root, "2", "examB.pdf"))
	if string(firstOutput) != string(secondOutput) {
		t.Errorf("replayed document differs: %q vs %q", firstOutput, secondOutput)
	}
	if diff := cmp.Diff(first.Table, second.Table); diff != "" {
		t.Errorf("report tables differ (-first +second):\n%s", diff)
	}
	if first.RunID == second.RunID {
		t.Error("runs share a run id")
	}
}

func TestOrchestrator_EveryTeamGetsEveryDocument(t *testing.T) {
	t.Parallel()

	sources := []string{"examA.pdf", "examB.pdf", "examC.pdf", "examD.pdf"}
	fx := newRunFixture(t, sources...)
	cfg := fx.config()
	cfg.Workers = 2
	cfg.RecipientWorkers = 3
	o := fx.orchestrator(t, cfg)

	report, err := o.Run(context.Background(), Request{Teams: 5})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Documents != 20 {
		t.Errorf("Documents = %d, want 20", report.Documents)
	}
	if len(report.Results) != 5 {
		t.Fatalf("Results = %d, want 5", len(report.Results))
	}

	for i, res := range report.Results {
		r := report.Table[i]
		if res.Recipient.ID != r.ID {
			t.Errorf("result %d is team %d, want table order (team %d)", i, res.Recipient.ID, r.ID)
		}
		for _, name := range sources {
			path := filepath.Join(fx.root, fmt.Sprint(r.ID), name)
			data, err := os.ReadFile(path)
			if err != nil {
				t.Errorf("missing %s: %v", path, err)
				continue
			}
			want := "SOURCE " + name + "\nOVERLAY C-" + fmt.Sprint(r.ID) + " " + r.Code + "\n"
			if string(data) != want {
				t.Errorf("%s = %q, want %q", path, data, want)
			}
		}
	}
	assertNoOverlays(t, fx.tempDir)
}

// ---------------------------------------------------------------------------
// Confirmation and validation before mutation
// ---------------------------------------------------------------------------

func TestOrchestrator_DeclinedConfirmation(t *testing.T) {
	t.Parallel()

	fx := newRunFixture(t, "examA.pdf")
	if err := os.MkdirAll(fx.root, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	keep := filepath.Join(fx.root, "keep.txt")
	if err := os.WriteFile(keep, []byte("previous run"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var asked string
	o := fx.orchestrator(t, fx.config(), WithConfirm(func(path string) bool {
		asked = path
		return false
	}))

	_, err := o.Run(context.Background(), Request{Teams: 2})
	if !errors.Is(err, ErrConfirmationDeclined) {
		t.Fatalf("Run() error = %v, want ErrConfirmationDeclined", err)
	}
	if asked != fx.root {
		t.Errorf("confirm asked about %q, want %q", asked, fx.root)
	}
	if diff := cmp.Diff([]string{"keep.txt"}, listTree(t, fx.root)); diff != "" {
		t.Errorf("output root modified (-want +got):\n%s", diff)
	}
	if fx.renderer.callCount() != 0 {
		t.Error("renderer called after declined confirmation")
	}
}

func TestOrchestrator_ConfirmedOverwrite(t *testing.T) {
	t.Parallel()

	fx := newRunFixture(t, "examA.pdf")
	stale := filepath.Join(fx.root, "9", "examA.pdf")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(stale, []byte("stale"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	o := fx.orchestrator(t, fx.config(), WithConfirm(func(string) bool { return true }))
	if _, err := o.Run(context.Background(), Request{Teams: 1}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale output survived overwrite: %v", err)
	}
}

func TestOrchestrator_InputErrorsDoNotMutate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T, fx *runFixture) (Config, Request)
		wantErr error
	}{
		{
			name: "missing source directory",
			setup: func(t *testing.T, fx *runFixture) (Config, Request) {
				cfg := fx.config()
				cfg.SourceDir = filepath.Join(fx.base, "missing")
				return cfg, Request{Teams: 2}
			},
			wantErr: ErrNoSourceDir,
		},
		{
			name: "malformed replay table",
			setup: func(t *testing.T, fx *runFixture) (Config, Request) {
				path := filepath.Join(fx.base, "bad.csv")
				if err := os.WriteFile(path, []byte("TeamNum,Password,Code\nx,y\n"), 0o644); err != nil {
					t.Fatalf("WriteFile() error = %v", err)
				}
				return fx.config(), Request{CachedCredentials: path}
			},
			wantErr: ErrFormat,
		},
		{
			name: "missing replay table",
			setup: func(t *testing.T, fx *runFixture) (Config, Request) {
				return fx.config(), Request{CachedCredentials: filepath.Join(fx.base, "none.csv")}
			},
			wantErr: ErrConfiguration,
		},
		{
			name: "team count mismatch with replay",
			setup: func(t *testing.T, fx *runFixture) (Config, Request) {
				path := filepath.Join(fx.base, "replay.csv")
				if err := SaveTable(path, CredentialTable{{ID: 1, Secret: "s", Code: "c"}}); err != nil {
					t.Fatalf("SaveTable() error = %v", err)
				}
				return fx.config(), Request{Teams: 4, CachedCredentials: path}
			},
			wantErr: ErrInvalidTeamCount,
		},
		{
			name: "zero teams without replay",
			setup: func(t *testing.T, fx *runFixture) (Config, Request) {
				return fx.config(), Request{Teams: 0}
			},
			wantErr: ErrInvalidTeamCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fx := newRunFixture(t, "examA.pdf")
			cfg, req := tt.setup(t, fx)
			confirmCalled := false
			o := fx.orchestrator(t, cfg, WithConfirm(func(string) bool {
				confirmCalled = true
				return true
			}))

			_, err := o.Run(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if _, statErr := os.Stat(fx.root); !os.IsNotExist(statErr) {
				t.Errorf("output root created despite invalid input")
			}
			if confirmCalled {
				t.Error("confirm called despite invalid input")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

func TestOrchestrator_TeamFailureStopsRun(t *testing.T) {
	t.Parallel()

	fx := newRunFixture(t, "examA.pdf", "examB.pdf")
	cfg := fx.config()
	cfg.AccessControl = true
	fx.compositor.before = func(_ context.Context, job CompositeJob) error {
		if filepath.Base(filepath.Dir(job.Output)) == "2" {
			return fmt.Errorf("%w: convert exited with status 1", ErrComposite)
		}
		return nil
	}

	o := fx.orchestrator(t, cfg, WithHasher(&recordingHasher{}))
	report, err := o.Run(context.Background(), Request{Teams: 3})

	var recErr *RecipientError
	if !errors.As(err, &recErr) || recErr.ID != 2 {
		t.Fatalf("Run() error = %v, want RecipientError for team 2", err)
	}
	if !errors.Is(err, ErrComposite) {
		t.Errorf("Run() error = %v, want ErrComposite", err)
	}

	if len(report.Results) != 2 {
		t.Fatalf("Results = %d, want teams 1 and 2 only", len(report.Results))
	}
	if failed := report.Failed(); len(failed) != 1 || failed[0].Recipient.ID != 2 {
		t.Errorf("Failed() = %+v, want team 2", failed)
	}
	if report.Documents != 2 {
		t.Errorf("Documents = %d, want team 1's 2 documents", report.Documents)
	}

	// Team 1 keeps its documents and its grant; team 2 is never granted.
	for _, name := range []string{"examA.pdf", "examB.pdf"} {
		if _, err := os.Stat(filepath.Join(fx.root, "1", name)); err != nil {
			t.Errorf("team 1 lost %s: %v", name, err)
		}
	}
	lines := readLines(t, filepath.Join(fx.root, SharedSecretFileName))
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "1:") {
		t.Errorf("%s = %v, want only team 1", SharedSecretFileName, lines)
	}
	progress := fx.progress.String()
	if !strings.Contains(progress, "FAILED team 2: composite: ") {
		t.Errorf("progress = %q, want FAILED line", progress)
	}
	if strings.Contains(progress, "team 2: team 2") {
		t.Errorf("progress repeats the team prefix: %q", progress)
	}
	if !strings.Contains(progress, "Created a total of 2 documents\n") {
		t.Errorf("progress = %q, want the count of documents created before the failure", progress)
	}
	if strings.Contains(progress, "Watermarked pdfs can be found in") {
		t.Errorf("progress = %q, want no completion line for a failed run", progress)
	}
	if strings.Contains(progress, "Watermarking team 3") {
		t.Error("team 3 started after team 2 failed")
	}
	assertNoOverlays(t, fx.tempDir)
}

func TestOrchestrator_RenderFailure(t *testing.T) {
	t.Parallel()

	fx := newRunFixture(t, "examA.pdf")
	fx.renderer.fail = map[string]error{"C-1": ErrPDFGeneration}

	o := fx.orchestrator(t, fx.config())
	_, err := o.Run(context.Background(), Request{Teams: 2})
	if !errors.Is(err, ErrRender) || !errors.Is(err, ErrPDFGeneration) {
		t.Fatalf("Run() error = %v, want ErrRender and ErrPDFGeneration", err)
	}
	var recErr *RecipientError
	if !errors.As(err, &recErr) || recErr.Stage != StageRender {
		t.Errorf("Run() error = %v, want render stage", err)
	}
}

func TestOrchestrator_CanceledContext(t *testing.T) {
	t.Parallel()

	fx := newRunFixture(t, "examA.pdf")
	o := fx.orchestrator(t, fx.config())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, Request{Teams: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if _, statErr := os.Stat(fx.root); !os.IsNotExist(statErr) {
		t.Error("output root created for a canceled run")
	}
}

// ---------------------------------------------------------------------------
// Options and configuration
// ---------------------------------------------------------------------------

func TestOrchestrator_Manifest(t *testing.T) {
	t.Parallel()

	fx := newRunFixture(t, "examA.pdf")
	cfg := fx.config()
	cfg.Manifest = true
	o := fx.orchestrator(t, cfg)

	report, err := o.Run(context.Background(), Request{Teams: 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Manifest != filepath.Join(fx.root, ManifestFileName) {
		t.Errorf("Manifest = %q", report.Manifest)
	}

	lines := readLines(t, report.Manifest)
	if len(lines) != 3 {
		t.Fatalf("manifest has %d lines, want header + 2", len(lines))
	}
	if !strings.HasPrefix(lines[1], "1,examA.pdf,") || !strings.HasPrefix(lines[2], "2,examA.pdf,") {
		t.Errorf("manifest rows = %v", lines[1:])
	}
}

func TestOrchestrator_Clock(t *testing.T) {
	t.Parallel()

	fx := newRunFixture(t)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	o := fx.orchestrator(t, fx.config(), WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))

	report, err := o.Run(context.Background(), Request{Teams: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Elapsed != time.Second {
		t.Errorf("Elapsed = %v, want 1s", report.Elapsed)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "valid",
			cfg:  Config{OutputRoot: filepath.Join(base, "out"), SourceDir: filepath.Join(base, "tests")},
		},
		{
			name:    "missing output root",
			cfg:     Config{SourceDir: "tests"},
			wantErr: ErrNoOutputDir,
		},
		{
			name:    "output root equals source",
			cfg:     Config{OutputRoot: base, SourceDir: base},
			wantErr: ErrConfiguration,
		},
		{
			name:    "output root contains source",
			cfg:     Config{OutputRoot: base, SourceDir: filepath.Join(base, "tests")},
			wantErr: ErrConfiguration,
		},
		{
			name: "source next to output root",
			cfg:  Config{OutputRoot: filepath.Join(base, "2026"), SourceDir: filepath.Join(base, "2026-tests")},
		},
		{
			name:    "bad raster",
			cfg:     Config{OutputRoot: filepath.Join(base, "out"), Raster: RasterSettings{Density: 5, Quality: 100}},
			wantErr: ErrInvalidRaster,
		},
		{
			name:    "marker without placeholder",
			cfg:     Config{OutputRoot: filepath.Join(base, "out"), MarkerFormat: "TEAM"},
			wantErr: ErrInvalidMarker,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.withDefaults().Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewOrchestrator_Defaults(t *testing.T) {
	t.Parallel()

	fx := newRunFixture(t)
	o, err := NewOrchestrator(fx.config(), WithRenderer(fx.renderer))
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	if _, ok := o.compositor.(*ExecCompositor); !ok {
		t.Errorf("default compositor = %T, want *ExecCompositor", o.compositor)
	}
	if o.generator == nil {
		t.Error("default generator not built from embedded word lists")
	}
	if o.confirm(fx.root) {
		t.Error("default confirm allows overwriting")
	}
	if o.ownsRenderer {
		t.Error("injected renderer marked as owned")
	}
}
