package services

import (
	"go.uber.org/zap"

	"cvbuilder/models"
	"cvbuilder/providers"
)

// MetadataService resolves DOIs to bibliographic metadata. It combines a
// registry lookup with a citation-formatting call and degrades gracefully:
// it never returns an error, only nil.
type MetadataService struct {
	Registry  providers.Registry
	Formatter providers.CitationFormatter
	Logger    *zap.Logger
}

// NewMetadataService creates a new metadata service.
func NewMetadataService(registry providers.Registry, formatter providers.CitationFormatter, logger *zap.Logger) *MetadataService {
	return &MetadataService{
		Registry:  registry,
		Formatter: formatter,
		Logger:    logger,
	}
}

// Fetch resolves a DOI to normalized metadata plus a formatted citation.
// Every failure mode (transport error, non-200, parse error) yields nil so
// callers can treat enrichment as strictly best-effort.
func (m *MetadataService) Fetch(doi string) *providers.Metadata {
	if doi == "" {
		return nil
	}
	log := m.Logger.With(zap.String("doi", doi), zap.String("registry", m.Registry.Name()))

	meta, err := m.Registry.Lookup(doi)
	if err != nil {
		log.Warn("DOI metadata lookup failed", zap.Error(err))
		return nil
	}
	if meta == nil {
		log.Debug("DOI unknown to registry")
		return nil
	}

	// The citation call is independent: its failure leaves Citation empty
	// but never discards the registry result.
	meta.Citation = m.Formatter.FormatCitation(doi)

	return meta
}

// Enrich fills empty bibliographic fields of a publication from its DOI.
// Existing data is never overwritten. Returns true when at least one field
// was filled; the caller decides whether to persist.
func (m *MetadataService) Enrich(pub *models.Publication) bool {
	if pub.DOI == "" {
		return false
	}
	meta := m.Fetch(pub.DOI)
	if meta == nil {
		return false
	}

	changed := false
	if meta.Title != "" && pub.Title == "" {
		pub.Title = meta.Title
		changed = true
	}
	if meta.Authors != "" && pub.Authors == "" {
		pub.Authors = meta.Authors
		changed = true
	}
	if meta.Journal != "" && pub.Journal == "" {
		pub.Journal = meta.Journal
		changed = true
	}
	if meta.Year != nil && pub.Year == nil {
		pub.Year = meta.Year
		changed = true
	}
	if meta.Volume != "" && pub.Volume == "" {
		pub.Volume = meta.Volume
		changed = true
	}
	if meta.Issue != "" && pub.Issue == "" {
		pub.Issue = meta.Issue
		changed = true
	}
	if meta.Pages != "" && pub.Pages == "" {
		pub.Pages = meta.Pages
		changed = true
	}
	if meta.Citation != "" && pub.Citation == "" {
		pub.Citation = meta.Citation
		changed = true
	}
	return changed
}
