package hints

// Notes:
// - ForBrowserConnect tests cannot use t.Parallel() because they:
//   1. Use t.Setenv() which modifies process environment
//   2. Modify the package-level IsInContainer variable

import (
	"strings"
	"testing"
)

func stubContainer(t *testing.T, inside bool) {
	t.Helper()

	orig := IsInContainer
	t.Cleanup(func() { IsInContainer = orig })
	IsInContainer = func() bool { return inside }
}

func clearCIEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "ROD_NO_SANDBOX", "ROD_BROWSER_BIN"} {
		t.Setenv(name, "")
	}
}

// ---------------------------------------------------------------------------
// TestForBrowserConnect - Environment-dependent suggestions
// ---------------------------------------------------------------------------

func TestForBrowserConnect_InCI(t *testing.T) {
	stubContainer(t, false)
	clearCIEnv(t)
	t.Setenv("CI", "true")

	hint := ForBrowserConnect()

	if !strings.HasPrefix(hint, "\n  hint: ") {
		t.Errorf("hint = %q, want hint prefix", hint)
	}
	for _, want := range []string{"ROD_NO_SANDBOX", "ROD_BROWSER_BIN", "teamstamp doctor"} {
		if !strings.Contains(hint, want) {
			t.Errorf("hint %q missing %q", hint, want)
		}
	}
}

func TestForBrowserConnect_InDocker(t *testing.T) {
	stubContainer(t, true)
	clearCIEnv(t)

	if hint := ForBrowserConnect(); !strings.Contains(hint, "ROD_NO_SANDBOX") {
		t.Errorf("hint %q, want ROD_NO_SANDBOX suggestion in Docker", hint)
	}
}

func TestForBrowserConnect_SandboxAndBinarySet(t *testing.T) {
	stubContainer(t, true)
	clearCIEnv(t)
	t.Setenv("ROD_NO_SANDBOX", "1")
	t.Setenv("ROD_BROWSER_BIN", "/usr/bin/chromium")

	hint := ForBrowserConnect()
	if strings.Contains(hint, "ROD_NO_SANDBOX") || strings.Contains(hint, "ROD_BROWSER_BIN") {
		t.Errorf("hint %q repeats settings already in place", hint)
	}
	if !strings.Contains(hint, "teamstamp doctor") {
		t.Errorf("hint %q, want doctor suggestion", hint)
	}
}

func TestForBrowserConnect_Desktop(t *testing.T) {
	stubContainer(t, false)
	clearCIEnv(t)

	if hint := ForBrowserConnect(); strings.Contains(hint, "ROD_NO_SANDBOX") {
		t.Errorf("hint %q suggests sandbox flag outside CI/Docker", hint)
	}
}

// ---------------------------------------------------------------------------
// Static hints
// ---------------------------------------------------------------------------

func TestForMissingTool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tool string
		want string
	}{
		{"pdftk", "pdftk-java"},
		{"/usr/local/bin/pdftk", "pdftk-java"},
		{"convert", "ImageMagick"},
		{"magick", "ImageMagick"},
		{"htpasswd", "--hasher bcrypt"},
		{"qpdf", "qpdf is installed"},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			t.Parallel()

			hint := ForMissingTool(tt.tool)
			if !strings.Contains(hint, tt.want) {
				t.Errorf("ForMissingTool(%q) = %q, want it to contain %q", tt.tool, hint, tt.want)
			}
		})
	}
}

func TestForConfigNotFound(t *testing.T) {
	t.Parallel()

	t.Run("suggests user config path", func(t *testing.T) {
		t.Parallel()

		hint := ForConfigNotFound([]string{"finals.yaml", "/home/u/.config/go-teamstamp/finals.yaml"})
		if !strings.Contains(hint, "create /home/u/.config/go-teamstamp/finals.yaml") {
			t.Errorf("hint = %q", hint)
		}
	})

	t.Run("falls back to --config", func(t *testing.T) {
		t.Parallel()

		hint := ForConfigNotFound([]string{"finals.yaml"})
		if !strings.Contains(hint, "--config") || strings.Contains(hint, "create") {
			t.Errorf("hint = %q", hint)
		}
	})
}

func TestStaticHints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hint string
		want string
	}{
		{"timeout", ForTimeout(), "--timeout"},
		{"output exists", ForOutputExists(), "--yes"},
		{"output directory", ForOutputDirectory(), "writable"},
		{"credential table", ForCredentialTable(), "TeamNum,Password,Code"},
		{"source dir", ForSourceDir(), "--test_directory"},
		{"rasterizer policy", ForRasterizerPolicy(), "policy.xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if !strings.HasPrefix(tt.hint, "\n  hint: ") {
				t.Errorf("hint %q lacks prefix", tt.hint)
			}
			if !strings.Contains(tt.hint, tt.want) {
				t.Errorf("hint %q missing %q", tt.hint, tt.want)
			}
		})
	}
}

func TestFormatHelpers(t *testing.T) {
	t.Parallel()

	if got := format(""); got != "" {
		t.Errorf("format(\"\") = %q, want empty", got)
	}
	if got := formatHints(nil); got != "" {
		t.Errorf("formatHints(nil) = %q, want empty", got)
	}
	if got := formatHints([]string{"a", "b"}); got != "\n  hint: a; b" {
		t.Errorf("formatHints = %q", got)
	}
}
