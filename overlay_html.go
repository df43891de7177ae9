package teamstamp

import (
	"fmt"
	"html/template"
	"strings"
)

// overlayFontFamily is used for both text layers.
const overlayFontFamily = `Helvetica, Arial, "Liberation Sans", sans-serif`

// overlayData is the data passed to the overlay template.
type overlayData struct {
	CSS      template.CSS
	Marker   string
	CodeLine string
}

// buildOverlayCSS generates the page and text layer styles.
// The style must already be validated: values are inserted verbatim.
func buildOverlayCSS(s OverlayStyle) string {
	return fmt.Sprintf(`
@page { size: %.1fin %.0fin; margin: 0; }
html, body {
  margin: 0;
  padding: 0;
  width: %.1fin;
  height: %.0fin;
  background: transparent;
  overflow: hidden;
}
.marker {
  position: absolute;
  top: 50%%;
  left: 0;
  width: 100%%;
  transform: translateY(-50%%);
  text-align: center;
  white-space: nowrap;
  font-family: %s;
  font-size: %.1fpt;
  color: %s;
  opacity: %.2f;
}
.code {
  position: absolute;
  bottom: %.1f%%;
  left: 0;
  width: 100%%;
  text-align: center;
  white-space: nowrap;
  font-family: %s;
  font-size: %.1fpt;
  color: %s;
  opacity: %.2f;
}
`,
		paperWidthInches, float64(paperHeightInches),
		paperWidthInches, float64(paperHeightInches),
		overlayFontFamily, s.MarkerFontSize, s.MarkerColor, s.MarkerOpacity,
		s.CodeOffset*100,
		overlayFontFamily, s.CodeFontSize, s.CodeColor, s.CodeOpacity,
	)
}

// buildOverlayHTML executes the overlay template. Marker and code are
// escaped by html/template.
func buildOverlayHTML(tmpl *template.Template, o Overlay, s OverlayStyle) (string, error) {
	var b strings.Builder
	data := overlayData{
		CSS:      template.CSS(buildOverlayCSS(s)), // #nosec G203 -- built from validated style
		Marker:   o.Marker,
		CodeLine: o.CodeLine(),
	}
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("executing overlay template: %w", err)
	}
	return b.String(), nil
}
