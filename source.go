package teamstamp

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/alnah/go-teamstamp/internal/fileutil"
)

// Source set defaults.
const (
	DefaultSourceDir = "tests"
	DefaultExtension = ".pdf"
)

// DiscoverDocuments lists the regular files directly inside dir whose
// extension matches ext, sorted by name. An empty directory is a valid,
// empty source set; a missing one is a configuration error.
func DiscoverDocuments(dir, ext string) ([]Document, error) {
	if ext == "" {
		ext = DefaultExtension
	}

	files, err := fileutil.ListFiles(dir, ext)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fileutil.ErrNotDirectory) {
			return nil, fmt.Errorf("%w: %w: %s", ErrConfiguration, ErrNoSourceDir, dir)
		}
		return nil, fmt.Errorf("%w: listing %s: %v", ErrConfiguration, dir, err)
	}

	docs := make([]Document, len(files))
	for i, f := range files {
		docs[i] = Document{Path: f}
	}
	return docs, nil
}
