package teamstamp

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/alnah/go-teamstamp/internal/fileutil"
)

// ManifestFileName is the optional digest listing written at the output root.
const ManifestFileName = "manifest.csv"

// manifestHeader is the first line of the manifest.
var manifestHeader = []string{"TeamNum", "Document", "BLAKE3"}

// ManifestEntry records the digest of one produced document.
// A leaked copy can be matched against it byte for byte.
type ManifestEntry struct {
	ID       int
	Document string // base name
	Digest   string // hex BLAKE3-256
}

// DigestFile returns the hex BLAKE3-256 digest of a file.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- produced output path
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BuildManifest digests every produced document, in team order.
func BuildManifest(results []RecipientResult) ([]ManifestEntry, error) {
	var entries []ManifestEntry
	for _, res := range results {
		for _, out := range res.Produced {
			digest, err := DigestFile(out)
			if err != nil {
				return nil, err
			}
			entries = append(entries, ManifestEntry{
				ID:       res.Recipient.ID,
				Document: filepath.Base(out),
				Digest:   digest,
			})
		}
	}
	return entries, nil
}

// WriteManifest writes the header and one row per entry.
func WriteManifest(w io.Writer, entries []ManifestEntry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(manifestHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writer.Write([]string{strconv.Itoa(e.ID), e.Document, e.Digest}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveManifest writes the manifest atomically.
func SaveManifest(path string, entries []ManifestEntry) error {
	var b strings.Builder
	if err := WriteManifest(&b, entries); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte(b.String()), fileutil.PrivateFilePerm); err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}
	return nil
}
