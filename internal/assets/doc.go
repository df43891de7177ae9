// Package assets provides the overlay HTML template and the word lists used
// to build team passwords. Assets can be loaded from embedded files or a
// custom directory on disk.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (defaults)
//	    ├── FilesystemLoader  - loads from custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// AssetResolver tries the custom FilesystemLoader first and falls back to
// EmbeddedLoader when the asset is not found there, so a deployment can
// override the overlay template alone and keep the default word lists.
//
// # Directory Structure
//
//	{basePath}/
//	├── templates/
//	│   └── {name}.html          # overlay page template
//	└── wordlists/
//	    └── {name}.txt           # one word per line (adjectives, nouns)
//
// # Security
//
// Asset names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
