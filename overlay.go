package teamstamp

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-teamstamp/internal/assets"
	"github.com/alnah/go-teamstamp/internal/fileutil"
	"github.com/alnah/go-teamstamp/internal/process"
)

// OverlayRenderer produces the single translucent overlay page for a team.
type OverlayRenderer interface {
	// Render writes a one-page PDF overlay to path.
	Render(ctx context.Context, overlay Overlay, path string) error
	Close() error
}

// Overlay page dimensions in inches (US Letter, no margins).
const (
	paperWidthInches  = 8.5
	paperHeightInches = 11
)

// DefaultRenderTimeout bounds loading the overlay page in the browser.
const DefaultRenderTimeout = 30 * time.Second

// pdfPage abstracts printing a local HTML file so the renderer can be tested
// without a browser.
type pdfPage interface {
	PrintFile(ctx context.Context, filePath string) ([]byte, error)
	Close() error
}

// RodRenderer renders overlays with headless Chrome via go-rod.
// Rod downloads Chromium on first use if none is installed.
// It is safe for concurrent use; pages share one browser.
type RodRenderer struct {
	style   OverlayStyle
	tmpl    *template.Template
	printer pdfPage
}

// Compile-time interface checks.
var (
	_ OverlayRenderer = (*RodRenderer)(nil)
	_ pdfPage         = (*rodPrinter)(nil)
)

// RendererOption configures a RodRenderer.
type RendererOption func(*rendererConfig)

type rendererConfig struct {
	timeout  time.Duration
	template string
	printer  pdfPage
}

// WithRenderTimeout sets the page load timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithRenderTimeout(d time.Duration) RendererOption {
	if d <= 0 {
		panic("teamstamp: WithRenderTimeout duration must be positive")
	}
	return func(c *rendererConfig) {
		c.timeout = d
	}
}

// WithOverlayTemplate replaces the built-in overlay HTML template.
// The template receives CSS, Marker and CodeLine fields.
func WithOverlayTemplate(content string) RendererOption {
	return func(c *rendererConfig) {
		c.template = content
	}
}

// withPrinter substitutes the browser, for tests.
func withPrinter(p pdfPage) RendererOption {
	return func(c *rendererConfig) {
		c.printer = p
	}
}

// NewRodRenderer validates the style and parses the overlay template.
// The browser is started lazily on the first Render.
func NewRodRenderer(style OverlayStyle, opts ...RendererOption) (*RodRenderer, error) {
	if err := style.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	cfg := rendererConfig{timeout: DefaultRenderTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.template == "" {
		content, err := assets.LoadTemplate(assets.OverlayTemplateName)
		if err != nil {
			return nil, fmt.Errorf("%w: loading overlay template: %v", ErrConfiguration, err)
		}
		cfg.template = content
	}

	tmpl, err := template.New("overlay").Parse(cfg.template)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing overlay template: %v", ErrConfiguration, err)
	}

	printer := cfg.printer
	if printer == nil {
		printer = &rodPrinter{timeout: cfg.timeout}
	}

	return &RodRenderer{style: style, tmpl: tmpl, printer: printer}, nil
}

// Render builds the overlay HTML, prints it to PDF and writes it to path.
// Every failure wraps ErrRender.
func (r *RodRenderer) Render(ctx context.Context, overlay Overlay, path string) error {
	html, err := buildOverlayHTML(r.tmpl, overlay, r.style)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}

	htmlPath, cleanup, err := fileutil.WriteTempFile(html, "html")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	defer cleanup()

	pdf, err := r.printer.PrintFile(ctx, htmlPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}

	if err := os.WriteFile(path, pdf, fileutil.PrivateFilePerm); err != nil {
		return fmt.Errorf("%w: writing overlay: %v", ErrRender, err)
	}
	return nil
}

// Close shuts the browser down.
func (r *RodRenderer) Close() error {
	return r.printer.Close()
}

// rodPrinter prints local HTML files with a lazily launched browser.
type rodPrinter struct {
	timeout time.Duration

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// ensureBrowser lazily launches and connects to the browser.
func (p *rodPrinter) ensureBrowser() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		return p.browser, nil
	}

	l := launcher.New()

	// Pre-installed browser (Docker, CI)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	if os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("CI") == "true" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	p.launcher = l
	p.browser = browser
	return browser, nil
}

// PrintFile opens filePath in a new page and prints it as a transparent,
// margin-less US Letter page.
func (p *rodPrinter) PrintFile(ctx context.Context, filePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := p.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "file://" + filePath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      floatPtr(paperWidthInches),
		PaperHeight:     floatPtr(paperHeightInches),
		MarginTop:       floatPtr(0),
		MarginBottom:    floatPtr(0),
		MarginLeft:      floatPtr(0),
		MarginRight:     floatPtr(0),
		PrintBackground: false, // keeps the page transparent
		PageRanges:      "1",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	buf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return buf, nil
}

// Close releases browser resources and kills the browser process tree.
func (p *rodPrinter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser == nil {
		return nil
	}

	err := p.browser.Close()
	if pid := p.launcher.PID(); pid > 0 {
		process.KillProcessGroup(pid)
	}
	p.launcher.Kill()
	p.browser = nil
	p.launcher = nil
	return err
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
