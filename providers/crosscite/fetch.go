package crosscite

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"cvbuilder/config"
)

// Fetcher implements the CitationFormatter interface against the DOI
// citation-formatting service (crosscite content negotiation).
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	client *http.Client
}

// NewFetcher creates a new citation-formatting fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		client: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// FormatCitation returns a formatted plain-text citation for the DOI in the
// configured style and locale. Formatting is best-effort: every failure
// degrades to "" so a registry hit is never discarded over a missing
// citation string.
func (f *Fetcher) FormatCitation(doi string) string {
	formatURL := fmt.Sprintf("%s/format?doi=%s&style=%s&lang=%s",
		f.Config.CitationBaseURL,
		url.QueryEscape(doi),
		url.QueryEscape(f.Config.CitationStyle),
		url.QueryEscape(f.Config.CitationLocale),
	)
	log := f.Logger.With(zap.String("doi", doi))

	resp, err := f.client.Get(formatURL)
	if err != nil {
		log.Debug("Citation service unreachable", zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug("Citation service returned non-success status", zap.Int("status", resp.StatusCode))
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Debug("Failed to read citation response", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(string(body))
}
