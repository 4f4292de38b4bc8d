package crossref

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"cvbuilder/config"
	"cvbuilder/providers"
)

// Fetcher implements the Registry interface for the Crossref works API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	client *http.Client
}

// NewFetcher creates a new Crossref fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		client: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// Name returns the name of the registry.
func (f *Fetcher) Name() string {
	return "crossref"
}

// Lookup resolves a DOI against the works API and maps the response into the
// normalized metadata record. A non-200 response yields (nil, error); the
// caller decides how to degrade.
func (f *Fetcher) Lookup(doi string) (*providers.Metadata, error) {
	lookupURL := fmt.Sprintf("%s/works/%s", f.Config.CrossrefBaseURL, url.PathEscape(normalizeDOI(doi)))
	log := f.Logger.With(zap.String("doi", doi))
	log.Debug("Querying Crossref works API", zap.String("url", lookupURL))

	req, err := http.NewRequest(http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, err
	}
	// Crossref asks polite clients to identify themselves with a mailto.
	userAgent := "cvbuilder/1.0"
	if f.Config.CrossrefMailto != "" {
		userAgent = fmt.Sprintf("cvbuilder/1.0 (mailto:%s)", f.Config.CrossrefMailto)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crossref request failed with status: %d", resp.StatusCode)
	}

	var works worksResponse
	if err := json.NewDecoder(resp.Body).Decode(&works); err != nil {
		return nil, err
	}

	return mapWorksToMetadata(&works), nil
}

// mapWorksToMetadata converts a Crossref works envelope into the normalized
// metadata record.
func mapWorksToMetadata(works *worksResponse) *providers.Metadata {
	msg := &works.Message
	meta := &providers.Metadata{
		Volume: msg.Volume,
		Issue:  msg.Issue,
		Pages:  msg.Page,
	}

	if len(msg.Title) > 0 {
		meta.Title = msg.Title[0]
	}
	if len(msg.ContainerTitle) > 0 {
		meta.Journal = msg.ContainerTitle[0]
	}

	names := make([]string, 0, len(msg.Author))
	for _, a := range msg.Author {
		name := a.Family
		if a.Given != "" {
			name = a.Given + " " + name
		}
		if name != "" {
			names = append(names, name)
		}
	}
	meta.Authors = strings.Join(names, ", ")

	meta.Year = earliestYear(msg.PublishedPrint.DateParts, msg.PublishedOnline.DateParts)

	return meta
}

// earliestYear picks the earliest 4-digit year present in the print and
// online publication dates.
func earliestYear(parts ...[][]int) *int {
	var year *int
	for _, p := range parts {
		if len(p) == 0 || len(p[0]) == 0 {
			continue
		}
		y := p[0][0]
		if y < 1000 || y > 9999 {
			continue
		}
		if year == nil || y < *year {
			v := y
			year = &v
		}
	}
	return year
}

// normalizeDOI strips URL prefixes so a pasted doi.org link resolves too.
func normalizeDOI(doi string) string {
	s := strings.TrimSpace(doi)
	s = strings.TrimPrefix(s, "https://doi.org/")
	s = strings.TrimPrefix(s, "http://doi.org/")
	s = strings.TrimPrefix(s, "doi:")
	return strings.TrimSpace(s)
}
