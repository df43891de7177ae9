package main

import (
	"errors"
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// overlayFlags holds overlay text flags.
type overlayFlags struct {
	label  string
	marker string
}

// rasterFlags holds rasterization flags.
type rasterFlags struct {
	density int
	quality int
}

// accessFlags holds web server access control flags.
type accessFlags struct {
	createHtaccess bool
	authDir        string
	hasher         string
}

// credentialFlags holds credential source flags.
type credentialFlags struct {
	cached     string
	adjectives string
	nouns      string
}

// distributeFlags holds all flags for a distribution run.
// Zero values mean "not set"; config and environment fill them.
type distributeFlags struct {
	common        commonFlags
	testDirectory string
	workers       int
	teamWorkers   int
	timeout       string
	manifest      bool
	yes           bool
	assetPath     string
	overlay       overlayFlags
	raster        rasterFlags
	access        accessFlags
	credentials   credentialFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVar(&f.config, "config", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show diagnostics and timing")
}

// addOverlayFlags adds overlay flags to a FlagSet.
func addOverlayFlags(fs *flag.FlagSet, f *overlayFlags) {
	fs.StringVar(&f.label, "label", "", "text printed before the code on every page")
	fs.StringVar(&f.marker, "marker", "", "team marker format, must contain {id} (default \"C-{id}\")")
}

// addRasterFlags adds rasterization flags to a FlagSet.
func addRasterFlags(fs *flag.FlagSet, f *rasterFlags) {
	fs.IntVar(&f.density, "density", 0, "rasterization density in DPI (default 150)")
	fs.IntVar(&f.quality, "quality", 0, "output quality 1-100 (default 100)")
}

// addAccessFlags adds access control flags to a FlagSet.
func addAccessFlags(fs *flag.FlagSet, f *accessFlags) {
	fs.BoolVarP(&f.createHtaccess, "create_htaccess", "c", false, "create .htaccess files for Apache access control")
	fs.StringVar(&f.authDir, "auth-dir", "", "directory of .htpasswd as seen by the web server")
	fs.StringVar(&f.hasher, "hasher", "", "htpasswd entry writer: bcrypt or htpasswd (default bcrypt)")
}

// addCredentialFlags adds credential flags to a FlagSet.
func addCredentialFlags(fs *flag.FlagSet, f *credentialFlags) {
	fs.StringVar(&f.cached, "cached_credentials", "", "replay a team_data.csv instead of generating credentials")
	fs.StringVar(&f.adjectives, "adjectives", "", "adjective word list file")
	fs.StringVar(&f.nouns, "nouns", "", "noun word list file")
}

// parseDistributeFlags parses run flags and returns positional args.
func parseDistributeFlags(args []string, usage io.Writer) (*distributeFlags, []string, error) {
	fs := flag.NewFlagSet("teamstamp", flag.ContinueOnError)
	fs.SetOutput(usage)
	f := &distributeFlags{}

	fs.StringVar(&f.testDirectory, "test_directory", "", "directory holding the documents to watermark (default \"tests\")")
	fs.IntVarP(&f.workers, "workers", "w", 0, "documents processed at once per team (0 = auto)")
	fs.IntVar(&f.teamWorkers, "team-workers", 0, "teams processed at once (0 = one at a time)")
	fs.StringVar(&f.timeout, "timeout", "", "per-document compositing timeout (e.g., 90s, 2m)")
	fs.BoolVar(&f.manifest, "manifest", false, "write manifest.csv with BLAKE3 digests")
	fs.BoolVarP(&f.yes, "yes", "y", false, "replace an existing output directory without asking")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory (templates/, wordlists/)")

	addCommonFlags(fs, &f.common)
	addOverlayFlags(fs, &f.overlay)
	addRasterFlags(fs, &f.raster)
	addAccessFlags(fs, &f.access)
	addCredentialFlags(fs, &f.credentials)

	fs.Usage = func() { printDistributeUsage(usage) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}

// isHelpRequest reports whether err is pflag's -h/--help signal.
func isHelpRequest(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
