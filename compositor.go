package teamstamp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-teamstamp/internal/process"
)

// Default external binaries.
const (
	DefaultStamper    = "pdftk"
	DefaultRasterizer = "convert"
)

// DefaultCompositeTimeout bounds one compositing task.
const DefaultCompositeTimeout = 2 * time.Minute

// stderrTailSize is how much of a failing tool's stderr is kept in the error.
const stderrTailSize = 512

// waitDelay bounds how long Wait lingers on stderr after a tool exits.
const waitDelay = 5 * time.Second

// CompositeJob describes one (recipient, document) compositing task.
// Source and Overlay are read-only; Output is unique per job.
type CompositeJob struct {
	Source  string
	Overlay string
	Output  string
	Raster  RasterSettings
}

// Compositor stamps an overlay page onto every page of a document and
// rasterizes the result.
type Compositor interface {
	Composite(ctx context.Context, job CompositeJob) error
}

// ExecCompositor pipes `pdftk <src> multistamp <overlay> output -` into
// `convert -density D - -quality Q <out>`.
type ExecCompositor struct {
	Stamper    string        // pdftk binary
	Rasterizer string        // ImageMagick convert (or magick) binary
	Timeout    time.Duration // per job; zero disables
}

// Compile-time interface check.
var _ Compositor = (*ExecCompositor)(nil)

// NewExecCompositor returns an ExecCompositor using pdftk and convert from PATH.
func NewExecCompositor() *ExecCompositor {
	return &ExecCompositor{
		Stamper:    DefaultStamper,
		Rasterizer: DefaultRasterizer,
		Timeout:    DefaultCompositeTimeout,
	}
}

// Composite runs both processes and blocks until they exit.
// A non-zero exit of either one is reported as ErrComposite.
func (c *ExecCompositor) Composite(ctx context.Context, job CompositeJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := job.Raster.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrComposite, err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	// #nosec G204 -- binaries come from configuration
	stamp := exec.CommandContext(ctx, c.stamper(), job.Source, "multistamp", job.Overlay, "output", "-")
	// #nosec G204 -- binaries come from configuration
	raster := exec.CommandContext(ctx, c.rasterizer(),
		"-density", strconv.Itoa(job.Raster.Density),
		"-",
		"-quality", strconv.Itoa(job.Raster.Quality),
		job.Output,
	)
	process.Isolate(stamp)
	process.Isolate(raster)
	stamp.WaitDelay = waitDelay
	raster.WaitDelay = waitDelay

	// The parent must close both pipe ends once the children are started,
	// otherwise the stamper blocks if the rasterizer exits early.
	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("%w: creating pipe: %v", ErrComposite, err)
	}

	var stampErr, rasterErr bytes.Buffer
	stamp.Stdout = pw
	stamp.Stderr = &stampErr
	raster.Stdin = pr
	raster.Stderr = &rasterErr

	if err := raster.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return fmt.Errorf("%w: starting %s: %w", ErrComposite, c.rasterizer(), err)
	}
	if err := stamp.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		_ = raster.Wait()
		return fmt.Errorf("%w: starting %s: %w", ErrComposite, c.stamper(), err)
	}
	_ = pr.Close()
	_ = pw.Close()

	stampWait := stamp.Wait()
	rasterWait := raster.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrComposite, job.Source, ctxErr)
	}
	// A rasterizer that exits early closes the pipe and the stamper dies of
	// SIGPIPE, so the rasterizer's failure is reported first.
	switch {
	case rasterWait != nil && stampWait != nil:
		return fmt.Errorf("%w: %s: %s; %s", ErrComposite, job.Source,
			exitSummary(c.rasterizer(), rasterWait, rasterErr.Bytes()),
			exitSummary(c.stamper(), stampWait, stampErr.Bytes()))
	case rasterWait != nil:
		return toolError(c.rasterizer(), job.Source, rasterWait, rasterErr.Bytes())
	case stampWait != nil:
		return toolError(c.stamper(), job.Source, stampWait, stampErr.Bytes())
	}
	return nil
}

func (c *ExecCompositor) stamper() string {
	if c.Stamper == "" {
		return DefaultStamper
	}
	return c.Stamper
}

func (c *ExecCompositor) rasterizer() string {
	if c.Rasterizer == "" {
		return DefaultRasterizer
	}
	return c.Rasterizer
}

// toolError builds an ErrComposite carrying the exit status and stderr tail.
func toolError(tool, source string, err error, stderr []byte) error {
	return fmt.Errorf("%w: %s: %s", ErrComposite, source, exitSummary(tool, err, stderr))
}

// exitSummary describes how a tool failed, with the tail of its stderr.
func exitSummary(tool string, err error, stderr []byte) string {
	msg := strings.TrimSpace(string(tail(stderr, stderrTailSize)))

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Sprintf("%s: %v", tool, err)
	}
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", tool, exitErr.ExitCode())
	}
	return fmt.Sprintf("%s exited with status %d: %s", tool, exitErr.ExitCode(), msg)
}

func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
