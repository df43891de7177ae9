package assets

// Built-in asset names.
const (
	OverlayTemplateName = "overlay"
	AdjectivesName      = "adjectives"
	NounsName           = "nouns"
)

// defaultLoader is the package-level embedded loader.
var defaultLoader = NewEmbeddedLoader()

// LoadTemplate loads an HTML template by name using the embedded loader.
// Returns ErrTemplateNotFound if the template does not exist.
// Returns ErrInvalidAssetName if the name contains path separators or traversal.
func LoadTemplate(name string) (string, error) {
	return defaultLoader.LoadTemplate(name)
}

// LoadWordList loads a word list by name using the embedded loader.
func LoadWordList(name string) (string, error) {
	return defaultLoader.LoadWordList(name)
}
