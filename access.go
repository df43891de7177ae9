package teamstamp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/alnah/go-teamstamp/internal/fileutil"
)

// Access control file names.
const (
	DescriptorFileName   = ".htaccess"
	SharedSecretFileName = ".htpasswd"
)

// authRealm is the prompt shown by the browser's login dialog.
const authRealm = "Enter team number and password"

// descriptorTemplate is an Apache 2.4 basic-auth block. The arguments are
// the shared secret file and the require clause.
const descriptorTemplate = `AuthName "%s"
AuthUserFile %s
AuthType Basic
require %s
`

// Require clauses.
const (
	requireDenyAll = "all denied"
	requireUser    = "user "
)

// AccessEmitter writes Apache access descriptors and the shared secret file.
// Grant may be called from several goroutines.
type AccessEmitter struct {
	authUserDir string
	hasher      Hasher

	mu          sync.Mutex
	secretsPath string
	userFile    string
}

// NewAccessEmitter creates an emitter. authUserDir is the directory the web
// server sees the shared secret file in; empty means the absolute output root.
// A nil hasher selects BcryptHasher.
func NewAccessEmitter(authUserDir string, hasher Hasher) *AccessEmitter {
	if hasher == nil {
		hasher = &BcryptHasher{}
	}
	return &AccessEmitter{authUserDir: authUserDir, hasher: hasher}
}

// Prepare creates an empty shared secret file and a root descriptor that
// denies every request. It must run before any team directory exists.
func (a *AccessEmitter) Prepare(root string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	authDir := a.authUserDir
	if authDir == "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("%w: resolving output root: %v", ErrAccessControl, err)
		}
		authDir = abs
	}

	secretsPath := filepath.Join(root, SharedSecretFileName)
	if err := os.WriteFile(secretsPath, nil, fileutil.FilePerm); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrAccessControl, SharedSecretFileName, err)
	}

	a.secretsPath = secretsPath
	a.userFile = filepath.ToSlash(filepath.Join(authDir, SharedSecretFileName))

	if err := a.writeDescriptor(root, requireDenyAll); err != nil {
		return err
	}
	return nil
}

// WriteDescriptor writes dir/.htaccess allowing only team id.
func (a *AccessEmitter) WriteDescriptor(dir string, id int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.secretsPath == "" {
		return fmt.Errorf("%w: descriptor for team %d written before Prepare", ErrAccessControl, id)
	}
	return a.writeDescriptor(dir, requireUser+strconv.Itoa(id))
}

// Grant adds team id to the shared secret file. Call it only once the
// team's documents exist.
func (a *AccessEmitter) Grant(ctx context.Context, id int, secret string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.secretsPath == "" {
		return fmt.Errorf("%w: grant for team %d before Prepare", ErrAccessControl, id)
	}
	if err := a.hasher.AddEntry(ctx, a.secretsPath, strconv.Itoa(id), secret); err != nil {
		return fmt.Errorf("%w: team %d: %w", ErrAccessControl, id, err)
	}
	return nil
}

// descriptor returns the descriptor content for a require clause.
func (a *AccessEmitter) descriptor(require string) string {
	return fmt.Sprintf(descriptorTemplate, authRealm, a.userFile, require)
}

// writeDescriptor writes dir/.htaccess. Caller holds a.mu.
func (a *AccessEmitter) writeDescriptor(dir, require string) error {
	path := filepath.Join(dir, DescriptorFileName)
	if err := os.WriteFile(path, []byte(a.descriptor(require)), fileutil.FilePerm); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrAccessControl, path, err)
	}
	return nil
}
