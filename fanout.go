package teamstamp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecipientResult is the outcome of processing one team.
type RecipientResult struct {
	Recipient Recipient
	Produced  []string      // output paths, in source order
	Err       error         // *RecipientError, or nil
	Duration  time.Duration // wall time including overlay rendering
}

// SchedulerConfig holds the per-run settings shared by every team.
type SchedulerConfig struct {
	OutputRoot   string
	TempDir      string // overlay directory; defaults to os.TempDir()
	RunID        string // distinguishes concurrent runs sharing TempDir
	Workers      int    // documents composited at once; see ResolvePoolSize
	Raster       RasterSettings
	MarkerFormat string // defaults to DefaultMarkerFormat
	Label        string
	Logger       *zap.Logger
}

// Scheduler renders one overlay per team and composites it onto every
// source document with a bounded number of workers.
type Scheduler struct {
	renderer   OverlayRenderer
	compositor Compositor
	cfg        SchedulerConfig
	workers    int
	logger     *zap.Logger
}

// NewScheduler creates a Scheduler. Zero-value config fields take their
// defaults.
func NewScheduler(renderer OverlayRenderer, compositor Compositor, cfg SchedulerConfig) *Scheduler {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.MarkerFormat == "" {
		cfg.MarkerFormat = DefaultMarkerFormat
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		renderer:   renderer,
		compositor: compositor,
		cfg:        cfg,
		workers:    ResolvePoolSize(cfg.Workers),
		logger:     logger,
	}
}

// RecipientDir returns the output directory of one team.
func RecipientDir(root string, id int) string {
	return filepath.Join(root, strconv.Itoa(id))
}

// OverlayPath returns the temporary overlay location for one team.
// Paths never collide across teams or runs.
func (s *Scheduler) OverlayPath(id int) string {
	name := fmt.Sprintf("teamstamp-overlay-%s-%d.pdf", s.cfg.RunID, id)
	return filepath.Join(s.cfg.TempDir, name)
}

// Run renders the team's overlay, then composites it onto every document
// into RecipientDir(OutputRoot, r.ID), which must already exist.
//
// The first failing document stops tasks that have not started yet; running
// compositor processes finish and their outputs are kept. The overlay file
// is removed once every task has returned, whatever the outcome.
func (s *Scheduler) Run(ctx context.Context, r Recipient, docs []Document) RecipientResult {
	start := time.Now()
	result := RecipientResult{Recipient: r}
	log := s.logger.With(zap.Int("team", r.ID))

	if len(docs) == 0 {
		log.Debug("no documents to watermark")
		result.Duration = time.Since(start)
		return result
	}

	overlayPath := s.OverlayPath(r.ID)
	defer s.removeOverlay(log, overlayPath)

	overlay := Overlay{
		Marker: FormatMarker(s.cfg.MarkerFormat, r.ID),
		Code:   r.Code,
		Label:  s.cfg.Label,
	}
	if err := s.renderer.Render(ctx, overlay, overlayPath); err != nil {
		result.Err = &RecipientError{ID: r.ID, Stage: StageRender, Err: err}
		result.Duration = time.Since(start)
		return result
	}
	log.Debug("overlay rendered", zap.String("path", overlayPath))

	dir := RecipientDir(s.cfg.OutputRoot, r.ID)
	outputs := make([]string, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, doc := range docs {
		g.Go(func() (err error) {
			// Skip work once another task has failed. Running processes
			// receive ctx, not gctx, and are never interrupted by a sibling.
			if err := gctx.Err(); err != nil {
				return err
			}
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%w: %s: internal error: %v", ErrComposite, doc.Name(), p)
				}
			}()

			out := filepath.Join(dir, doc.Name())
			taskStart := time.Now()
			err = s.compositor.Composite(ctx, CompositeJob{
				Source:  doc.Path,
				Overlay: overlayPath,
				Output:  out,
				Raster:  s.cfg.Raster,
			})
			if err != nil {
				log.Debug("document failed", zap.String("document", doc.Name()), zap.Error(err))
				return err
			}
			log.Debug("document watermarked",
				zap.String("document", doc.Name()),
				zap.Duration("elapsed", time.Since(taskStart)))
			outputs[i] = out
			return nil
		})
	}
	err := g.Wait()

	for _, out := range outputs {
		if out != "" {
			result.Produced = append(result.Produced, out)
		}
	}
	if err != nil {
		result.Err = &RecipientError{ID: r.ID, Stage: StageComposite, Err: err}
	}
	result.Duration = time.Since(start)
	return result
}

// removeOverlay deletes the overlay file. A missing file is not an error:
// the renderer may have failed before creating it.
func (s *Scheduler) removeOverlay(log *zap.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("removing overlay", zap.String("path", path), zap.Error(err))
	}
}
