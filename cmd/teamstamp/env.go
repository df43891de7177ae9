package main

import (
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"golang.org/x/term"

	"github.com/alnah/go-teamstamp"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, process environment, and the external tools.
type Environment struct {
	Now     func() time.Time
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string

	StdinIsTerminal  func() bool
	StderrIsTerminal func() bool

	// LookPath and BrowserPath locate binaries for doctor.
	LookPath    func(string) (string, error)
	BrowserPath func() (string, bool)

	// Renderer and Compositor replace the browser and the pdftk/convert
	// pipeline when set. A Renderer set here is not closed by the command.
	Renderer   teamstamp.OverlayRenderer
	Compositor teamstamp.Compositor
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:     time.Now,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
		StdinIsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) // #nosec G115 -- fd fits in int
		},
		StderrIsTerminal: func() bool {
			return term.IsTerminal(int(os.Stderr.Fd())) // #nosec G115 -- fd fits in int
		},
		LookPath:    exec.LookPath,
		BrowserPath: launcher.LookPath,
	}
}
