package teamstamp

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Recipient is one credentialed team.
// Code is only embedded for traceability and never used to authenticate.
type Recipient struct {
	ID     int
	Secret string
	Code   string
}

// CredentialTable is the ordered list of recipients for a run.
type CredentialTable []Recipient

// Validate checks that ids are positive and that no id or code repeats.
func (t CredentialTable) Validate() error {
	ids := make(map[int]bool, len(t))
	codes := make(map[string]bool, len(t))
	for i, r := range t {
		if r.ID < 1 {
			return fmt.Errorf("%w: row %d: team number must be positive, got %d", ErrFormat, i+1, r.ID)
		}
		if ids[r.ID] {
			return fmt.Errorf("%w: row %d: duplicate team number %d", ErrFormat, i+1, r.ID)
		}
		ids[r.ID] = true
		if r.Code != "" {
			if codes[r.Code] {
				return fmt.Errorf("%w: row %d: duplicate code %q", ErrFormat, i+1, r.Code)
			}
			codes[r.Code] = true
		}
	}
	return nil
}

// Document is one source document of the run.
type Document struct {
	Path string
}

// Name returns the base name used for every recipient's copy.
func (d Document) Name() string {
	return filepath.Base(d.Path)
}

// Overlay is the per-recipient content of the watermark page.
type Overlay struct {
	Marker string // large centered text, e.g. "C-12"
	Code   string // anti-collusion code
	Label  string // optional run label printed before the code
}

// CodeLine returns the secondary line printed under the marker.
func (o Overlay) CodeLine() string {
	if o.Label == "" {
		return o.Code
	}
	return o.Label + " " + o.Code
}

// Overlay style defaults.
const (
	DefaultMarkerColor    = "#000000"
	DefaultMarkerOpacity  = 0.15
	DefaultMarkerFontSize = 130.0 // points
	DefaultCodeColor      = "#0000ff"
	DefaultCodeOpacity    = 0.35
	DefaultCodeFontSize   = 12.0 // points
	DefaultCodeOffset     = 0.05 // fraction of page height from the bottom
)

// OverlayStyle controls how the overlay text is drawn.
type OverlayStyle struct {
	MarkerColor    string
	MarkerOpacity  float64
	MarkerFontSize float64
	CodeColor      string
	CodeOpacity    float64
	CodeFontSize   float64
	CodeOffset     float64
}

// DefaultOverlayStyle returns the standard faint marker and code styling.
func DefaultOverlayStyle() OverlayStyle {
	return OverlayStyle{
		MarkerColor:    DefaultMarkerColor,
		MarkerOpacity:  DefaultMarkerOpacity,
		MarkerFontSize: DefaultMarkerFontSize,
		CodeColor:      DefaultCodeColor,
		CodeOpacity:    DefaultCodeOpacity,
		CodeFontSize:   DefaultCodeFontSize,
		CodeOffset:     DefaultCodeOffset,
	}
}

// hexColorPattern matches #rgb and #rrggbb.
var hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate checks colors, opacities and sizes.
// Opacity must stay strictly below 1 so underlying content shows through.
func (s OverlayStyle) Validate() error {
	if !hexColorPattern.MatchString(s.MarkerColor) {
		return fmt.Errorf("%w: marker color %q (must be #rgb or #rrggbb)", ErrInvalidColor, s.MarkerColor)
	}
	if !hexColorPattern.MatchString(s.CodeColor) {
		return fmt.Errorf("%w: code color %q (must be #rgb or #rrggbb)", ErrInvalidColor, s.CodeColor)
	}
	if s.MarkerOpacity <= 0 || s.MarkerOpacity >= 1 {
		return fmt.Errorf("%w: marker opacity %.2f (must be between 0 and 1, exclusive)", ErrInvalidOpacity, s.MarkerOpacity)
	}
	if s.CodeOpacity <= 0 || s.CodeOpacity >= 1 {
		return fmt.Errorf("%w: code opacity %.2f (must be between 0 and 1, exclusive)", ErrInvalidOpacity, s.CodeOpacity)
	}
	if s.MarkerFontSize <= 0 || s.CodeFontSize <= 0 {
		return fmt.Errorf("%w: marker %.1f, code %.1f", ErrInvalidFontSize, s.MarkerFontSize, s.CodeFontSize)
	}
	if s.CodeOffset < 0 || s.CodeOffset >= 1 {
		return fmt.Errorf("%w: code offset %.2f (must be in [0, 1))", ErrInvalidOffset, s.CodeOffset)
	}
	return nil
}

// Raster defaults and bounds.
const (
	DefaultDensity = 150
	DefaultQuality = 100
	MinDensity     = 36
	MaxDensity     = 1200
)

// RasterSettings controls the rasterization step of compositing.
type RasterSettings struct {
	Density int // dots per inch
	Quality int // 1-100
}

// DefaultRasterSettings returns density 150 and quality 100.
func DefaultRasterSettings() RasterSettings {
	return RasterSettings{Density: DefaultDensity, Quality: DefaultQuality}
}

// Validate checks density and quality bounds.
func (r RasterSettings) Validate() error {
	if r.Density < MinDensity || r.Density > MaxDensity {
		return fmt.Errorf("%w: density %d (must be between %d and %d)", ErrInvalidRaster, r.Density, MinDensity, MaxDensity)
	}
	if r.Quality < 1 || r.Quality > 100 {
		return fmt.Errorf("%w: quality %d (must be between 1 and 100)", ErrInvalidRaster, r.Quality)
	}
	return nil
}

// DefaultMarkerFormat renders team 12 as "C-12".
const DefaultMarkerFormat = "C-{id}"

// markerPlaceholder is replaced by the team number in a marker format.
const markerPlaceholder = "{id}"

// ValidateMarkerFormat checks that the format mentions the team number.
func ValidateMarkerFormat(format string) error {
	if !strings.Contains(format, markerPlaceholder) {
		return fmt.Errorf("%w: %q must contain %s", ErrInvalidMarker, format, markerPlaceholder)
	}
	return nil
}

// FormatMarker renders the marker text for one team.
func FormatMarker(format string, id int) string {
	return strings.ReplaceAll(format, markerPlaceholder, fmt.Sprint(id))
}
