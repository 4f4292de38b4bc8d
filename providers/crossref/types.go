package crossref

// worksResponse mirrors the relevant subset of the Crossref works API
// envelope (https://api.crossref.org/works/<doi>).
type worksResponse struct {
	Status  string `json:"status"`
	Message struct {
		Title  []string `json:"title"`
		Author []struct {
			Given  string `json:"given"`
			Family string `json:"family"`
		} `json:"author"`
		ContainerTitle []string `json:"container-title"`
		Volume         string   `json:"volume"`
		Issue          string   `json:"issue"`
		Page           string   `json:"page"`
		PublishedPrint struct {
			DateParts [][]int `json:"date-parts"`
		} `json:"published-print"`
		PublishedOnline struct {
			DateParts [][]int `json:"date-parts"`
		} `json:"published-online"`
	} `json:"message"`
}
