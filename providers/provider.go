package providers

// Metadata is the normalized bibliographic record produced by a registry
// lookup. Absent text fields are empty strings; an absent year is nil.
type Metadata struct {
	Title    string
	Authors  string
	Journal  string
	Year     *int
	Volume   string
	Issue    string
	Pages    string
	Citation string
}

// Registry is implemented by every bibliographic registry that can resolve a
// DOI to structured metadata.
type Registry interface {
	// Lookup resolves a DOI. A nil result with a nil error means the DOI is
	// unknown to the registry.
	Lookup(doi string) (*Metadata, error)

	// Name returns the unique name of the registry (e.g. "crossref").
	Name() string
}

// CitationFormatter is implemented by services that render a DOI into a
// formatted plain-text citation.
type CitationFormatter interface {
	// FormatCitation returns a formatted citation string, or "" when the
	// service cannot format the DOI. It never fails hard.
	FormatCitation(doi string) string
}
