// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-teamstamp/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}
	hints = append(hints, "run 'teamstamp doctor' to check the setup")

	return formatHints(hints)
}

// ForMissingTool returns install hints for an external binary not on PATH.
func ForMissingTool(tool string) string {
	switch filepath.Base(tool) {
	case "pdftk":
		return format("install pdftk (e.g. apt install pdftk-java) or set tools.stamper")
	case "convert", "magick":
		return format("install ImageMagick or set tools.rasterizer (ImageMagick 7 ships 'magick')")
	case "htpasswd":
		return format("install apache2-utils or use --hasher bcrypt")
	default:
		return format("check that " + tool + " is installed and on PATH")
	}
}

// ForRasterizerPolicy returns a hint for ImageMagick refusing PDF input.
func ForRasterizerPolicy() string {
	return format("ImageMagick may block PDF input; allow it in policy.xml (pattern=\"PDF\")")
}

// ForTimeout returns a hint about increasing timeout for slow operations.
func ForTimeout() string {
	return format("for long documents, use --timeout flag")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-teamstamp/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepath.ToSlash(p), "/go-teamstamp/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputExists returns a hint for a declined overwrite.
func ForOutputExists() string {
	return format("pass --yes to replace it, or choose another output directory")
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForCredentialTable returns a hint for a malformed replay table.
func ForCredentialTable() string {
	return format("expected a header line then TeamNum,Password,Code rows, as written to team_data.csv")
}

// ForSourceDir returns a hint for a missing source directory.
func ForSourceDir() string {
	return format("use --test_directory to point at the documents to distribute")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
