package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/alnah/go-teamstamp"
	"github.com/alnah/go-teamstamp/internal/assets"
	"github.com/alnah/go-teamstamp/internal/config"
	"github.com/alnah/go-teamstamp/internal/hints"
)

// Exit codes for the teamstamp CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess    = 0 // All teams processed
	ExitGeneral    = 1 // General/unexpected error
	ExitUsage      = 2 // Invalid flags, config, or credential table
	ExitIO         = 3 // File not found, permission denied, access files
	ExitRender     = 4 // Browser/overlay rendering errors
	ExitCompositor = 5 // pdftk or convert failed
	ExitDeclined   = 6 // Existing output directory kept
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, teamstamp.ErrConfirmationDeclined) {
		return ExitDeclined
	}

	// Usage/config/format errors are detected before anything is written.
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, teamstamp.ErrConfiguration) ||
		errors.Is(err, teamstamp.ErrFormat) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, assets.ErrInvalidAssetName) {
		return ExitUsage
	}

	if errors.Is(err, teamstamp.ErrRender) ||
		errors.Is(err, teamstamp.ErrBrowserConnect) ||
		errors.Is(err, teamstamp.ErrPageCreate) ||
		errors.Is(err, teamstamp.ErrPageLoad) ||
		errors.Is(err, teamstamp.ErrPDFGeneration) {
		return ExitRender
	}

	if errors.Is(err, teamstamp.ErrComposite) {
		return ExitCompositor
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, teamstamp.ErrAccessControl) {
		return ExitIO
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	var execErr *exec.Error
	switch {
	case errors.As(err, &execErr):
		return hints.ForMissingTool(execErr.Name)
	case errors.Is(err, teamstamp.ErrConfirmationDeclined):
		return hints.ForOutputExists()
	case errors.Is(err, teamstamp.ErrFormat):
		return hints.ForCredentialTable()
	case errors.Is(err, teamstamp.ErrNoSourceDir):
		return hints.ForSourceDir()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(searchedPaths(err))
	case errors.Is(err, teamstamp.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, teamstamp.ErrComposite) && strings.Contains(err.Error(), "not authorized"):
		return hints.ForRasterizerPolicy()
	}
	return ""
}

// searchedPaths extracts the "tried a, b" list from a config lookup error.
func searchedPaths(err error) []string {
	msg := err.Error()
	i := strings.Index(msg, "tried ")
	if i < 0 {
		return nil
	}
	return strings.Split(msg[i+len("tried "):], ", ")
}
