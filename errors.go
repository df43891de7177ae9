package teamstamp

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps one of them.
var (
	ErrConfiguration        = errors.New("configuration error")
	ErrFormat               = errors.New("malformed credential table")
	ErrRender               = errors.New("overlay rendering failed")
	ErrComposite            = errors.New("compositing failed")
	ErrConfirmationDeclined = errors.New("output directory exists and overwrite was declined")
)

// Configuration errors.
var (
	ErrEmptyWordList    = errors.New("word list is empty")
	ErrInvalidTeamCount = errors.New("invalid team count")
	ErrNoSourceDir      = errors.New("source directory not found")
	ErrNoOutputDir      = errors.New("output directory not specified")
	ErrInvalidColor     = errors.New("invalid color")
	ErrInvalidOpacity   = errors.New("invalid opacity")
	ErrInvalidFontSize  = errors.New("invalid font size")
	ErrInvalidOffset    = errors.New("invalid code offset")
	ErrInvalidRaster    = errors.New("invalid raster settings")
	ErrInvalidMarker    = errors.New("invalid marker format")
)

// Browser errors raised while rendering overlays.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
)

// ErrAccessControl reports a failure writing access descriptors or
// password entries.
var ErrAccessControl = errors.New("access control emission failed")

// Recipient processing stages reported by RecipientError.
const (
	StageRender    = "render"
	StageComposite = "composite"
	StageGrant     = "grant"
	StageCleanup   = "cleanup"
)

// RecipientError reports the team whose processing failed.
type RecipientError struct {
	ID    int
	Stage string
	Err   error
}

func (e *RecipientError) Error() string {
	return fmt.Sprintf("team %d: %s: %v", e.ID, e.Stage, e.Err)
}

func (e *RecipientError) Unwrap() error {
	return e.Err
}
