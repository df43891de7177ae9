// Package teamstamp distributes exam documents to competing teams, one
// individually watermarked copy per team.
//
// # Quick Start
//
// Create an orchestrator for an output root and run it:
//
//	orch, err := teamstamp.NewOrchestrator(teamstamp.Config{
//	    OutputRoot: "2026",
//	    SourceDir:  "tests",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer orch.Close()
//
//	report, err := orch.Run(ctx, teamstamp.Request{Teams: 12})
//
// Every team gets a directory named after its number holding a copy of
// every source document. Each page carries a faint team marker ("C-12")
// and an eight character anti-collusion code. The credential table is
// written to team_data.csv at the output root and can be replayed later
// with Request.CachedCredentials to rebuild the same distribution.
//
// # Pipeline
//
// For each team the run:
//
//  1. renders one translucent overlay page with headless Chrome (go-rod)
//  2. stamps it onto every page of every document (pdftk multistamp)
//  3. rasterizes the stamped document (ImageMagick convert)
//  4. grants the team access in .htpasswd once all its documents exist
//
// Documents of one team are composited concurrently; see Config.Workers.
// A failing team stops the teams that have not started yet.
//
// # Access Control
//
// With Config.AccessControl, the output root receives a .htaccess that
// denies every request and an empty .htpasswd. Each team directory gets a
// .htaccess requiring that team's user. Entries are bcrypt hashed in
// process, or written by the Apache htpasswd tool (see NewHasher).
//
// # Browser Requirements
//
// Overlay rendering requires Chrome/Chromium. go-rod downloads a managed
// Chromium on first run (~/.cache/rod/browser/). For containers and CI,
// set ROD_NO_SANDBOX=1; use ROD_BROWSER_BIN to pick a specific binary.
package teamstamp
