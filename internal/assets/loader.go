package assets

// AssetLoader defines the contract for loading templates and word lists.
type AssetLoader interface {
	// LoadTemplate loads an HTML template by name (without .html extension).
	// Returns ErrTemplateNotFound if the template doesn't exist.
	// Returns ErrInvalidAssetName if the name contains invalid characters.
	LoadTemplate(name string) (string, error)

	// LoadWordList loads a word list by name (without .txt extension).
	// Returns ErrWordListNotFound if the list doesn't exist.
	// Returns ErrInvalidAssetName if the name contains invalid characters.
	LoadWordList(name string) (string, error)
}
