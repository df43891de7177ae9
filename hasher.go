package teamstamp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/alnah/go-teamstamp/internal/process"
)

// Hasher adds one user entry to an htpasswd file.
// Callers serialize calls for the same file.
type Hasher interface {
	AddEntry(ctx context.Context, file, user, secret string) error
}

// Compile-time interface checks.
var (
	_ Hasher = (*BcryptHasher)(nil)
	_ Hasher = (*HtpasswdTool)(nil)
)

// Hasher names accepted by NewHasher.
const (
	HasherBcrypt   = "bcrypt"
	HasherHtpasswd = "htpasswd"
)

// DefaultHtpasswdBinary is the Apache utility used by HtpasswdTool.
const DefaultHtpasswdBinary = "htpasswd"

// NewHasher returns the hasher registered under name.
func NewHasher(name string) (Hasher, error) {
	switch name {
	case "", HasherBcrypt:
		return &BcryptHasher{}, nil
	case HasherHtpasswd:
		return &HtpasswdTool{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown hasher %q (use %s or %s)", ErrConfiguration, name, HasherBcrypt, HasherHtpasswd)
	}
}

// BcryptHasher hashes in-process and appends "user:$2y$..." lines, the
// format written by `htpasswd -B`.
type BcryptHasher struct {
	Cost int // zero means bcrypt.DefaultCost
}

// AddEntry appends one bcrypt entry to file.
func (h *BcryptHasher) AddEntry(ctx context.Context, file, user, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(user, ":\n") {
		return fmt.Errorf("%w: user %q contains ':' or newline", ErrAccessControl, user)
	}

	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return fmt.Errorf("%w: hashing secret for %s: %v", ErrAccessControl, user, err)
	}
	// Apache documents the $2y$ variant; the hashes are otherwise identical.
	entry := user + ":" + strings.Replace(string(hash), "$2a$", "$2y$", 1) + "\n"

	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0) // #nosec G304 -- file created by Prepare
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccessControl, err)
	}
	if _, err := f.WriteString(entry); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: writing %s: %v", ErrAccessControl, file, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrAccessControl, file, err)
	}
	return nil
}

// HtpasswdTool delegates to the Apache htpasswd utility
// (`htpasswd -b -B <file> <user> <secret>`).
type HtpasswdTool struct {
	Binary string // defaults to DefaultHtpasswdBinary
}

// AddEntry runs htpasswd once for user.
func (h *HtpasswdTool) AddEntry(ctx context.Context, file, user, secret string) error {
	bin := h.Binary
	if bin == "" {
		bin = DefaultHtpasswdBinary
	}

	cmd := exec.CommandContext(ctx, bin, "-b", "-B", file, user, secret) // #nosec G204 -- binary from configuration
	process.Isolate(cmd)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(tail(out, stderrTailSize)))
		if msg == "" {
			return fmt.Errorf("%w: %s: %w", ErrAccessControl, bin, err)
		}
		return fmt.Errorf("%w: %s: %w: %s", ErrAccessControl, bin, err, msg)
	}
	return nil
}
