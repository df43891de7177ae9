package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-teamstamp"
)

// stubRenderer writes a text overlay instead of printing with a browser.
type stubRenderer struct {
	err error
}

func (s *stubRenderer) Render(_ context.Context, o teamstamp.Overlay, path string) error {
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(path, []byte(o.Marker+" "+o.CodeLine()+"\n"), 0o600)
}

func (s *stubRenderer) Close() error { return nil }

// stubCompositor concatenates source and overlay into the output.
type stubCompositor struct {
	mu   sync.Mutex
	jobs []teamstamp.CompositeJob
	err  error
}

func (s *stubCompositor) Composite(_ context.Context, job teamstamp.CompositeJob) error {
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	src, err := os.ReadFile(job.Source)
	if err != nil {
		return err
	}
	overlay, err := os.ReadFile(job.Overlay)
	if err != nil {
		return err
	}
	return os.WriteFile(job.Output, append(src, overlay...), 0o644)
}

// testEnv is an Environment with captured output and a fake process
// environment.
type testEnv struct {
	*Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	vars   map[string]string

	renderer   *stubRenderer
	compositor *stubCompositor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	te := &testEnv{
		stdout:     &bytes.Buffer{},
		stderr:     &bytes.Buffer{},
		vars:       map[string]string{"ROD_NO_SANDBOX": "1"},
		renderer:   &stubRenderer{},
		compositor: &stubCompositor{},
	}
	te.Environment = &Environment{
		Now:     func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) },
		Stdin:   strings.NewReader(""),
		Stdout:  te.stdout,
		Stderr:  te.stderr,
		Getenv:  func(k string) string { return te.vars[k] },
		Environ: te.environ,

		StdinIsTerminal:  func() bool { return false },
		StderrIsTerminal: func() bool { return false },

		LookPath: func(name string) (string, error) {
			return "/usr/bin/" + name, nil
		},
		BrowserPath: func() (string, bool) { return "", false },

		Renderer:   te.renderer,
		Compositor: te.compositor,
	}
	return te
}

func (te *testEnv) environ() []string {
	out := make([]string, 0, len(te.vars))
	for k, v := range te.vars {
		out = append(out, k+"="+v)
	}
	return out
}

// runFixture is a source directory and an output path next to it.
type runFixture struct {
	base    string
	sources string
	output  string
}

func newRunFixture(t *testing.T, names ...string) runFixture {
	t.Helper()

	base := t.TempDir()
	fx := runFixture{
		base:    base,
		sources: filepath.Join(base, "tests"),
		output:  filepath.Join(base, "2026"),
	}
	if err := os.MkdirAll(fx.sources, 0o755); err != nil {
		t.Fatalf("creating sources: %v", err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(fx.sources, name), []byte("SOURCE "+name+"\n"), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return fx
}

var errStub = errors.New("stub failure")
