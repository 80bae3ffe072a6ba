package model

// RenderedName is a sanitized candidate filename.
type RenderedName struct {
	// Name is the full file name including the extension.
	Name string
	// Base is Name without the extension.
	Base      string
	Extension string
	// Suffixed is set when a collision disambiguator such as " (2)" was appended.
	Suffixed  bool
	Truncated bool
}
