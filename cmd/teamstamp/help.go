package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: teamstamp [flags] <n_teams> <output_directory>")
	fmt.Fprintln(w, "       teamstamp <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Watermark every document in the test directory once per team.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  doctor     Check browser, pdftk, ImageMagick and temp directory")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'teamstamp help run' for all watermarking flags.")
}

// printDistributeUsage prints usage for a watermarking run.
func printDistributeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: teamstamp [flags] <n_teams> <output_directory>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate team credentials and a watermarked copy of every document per team.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  n_teams              Number of teams (0 allowed with --cached_credentials)")
	fmt.Fprintln(w, "  output_directory     Output root, generally the year of the tournament")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "      --test_directory <dir>    Documents to watermark (default \"tests\")")
	fmt.Fprintln(w, "      --config <name>           Config file name or path")
	fmt.Fprintln(w, "  -y, --yes                     Replace an existing output directory")
	fmt.Fprintln(w, "      --manifest                Write manifest.csv with BLAKE3 digests")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Credentials:")
	fmt.Fprintln(w, "      --cached_credentials <f>  Replay a team_data.csv")
	fmt.Fprintln(w, "      --adjectives <file>       Adjective word list")
	fmt.Fprintln(w, "      --nouns <file>            Noun word list")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Access control:")
	fmt.Fprintln(w, "  -c, --create_htaccess         Create .htaccess and .htpasswd files")
	fmt.Fprintln(w, "      --auth-dir <dir>          .htpasswd directory as seen by the server")
	fmt.Fprintln(w, "      --hasher <name>           bcrypt (default) or htpasswd")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Overlay:")
	fmt.Fprintln(w, "      --marker <fmt>            Team marker, must contain {id} (default \"C-{id}\")")
	fmt.Fprintln(w, "      --label <s>               Text printed before the code")
	fmt.Fprintln(w, "      --asset-path <dir>        Custom templates/ and wordlists/")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rasterization:")
	fmt.Fprintln(w, "      --density <n>             DPI (default 150)")
	fmt.Fprintln(w, "      --quality <n>             1-100 (default 100)")
	fmt.Fprintln(w, "      --timeout <dur>           Per-document timeout (default 2m)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Concurrency:")
	fmt.Fprintln(w, "  -w, --workers <n>             Documents at once per team (0 = auto)")
	fmt.Fprintln(w, "      --team-workers <n>        Teams at once (default 1)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet                   Only show errors")
	fmt.Fprintln(w, "  -v, --verbose                 Show diagnostics and timing")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: teamstamp doctor [--json] [--config <name>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that the browser, external tools and temp directory are usable.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "run":
		printDistributeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: teamstamp version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: teamstamp help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
