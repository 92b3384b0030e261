// Package crossref provides a client for the Crossref REST API works search.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// SearchResponse is the envelope returned by the works endpoint.
type SearchResponse struct {
	Status  string  `json:"status"`
	Message Message `json:"message"`
}

// Message holds the result page.
type Message struct {
	TotalResults int    `json:"total-results"`
	Items        []Item `json:"items"`
}

// Item is a single work record.
type Item struct {
	DOI            string   `json:"DOI"`
	URL            string   `json:"URL"`
	Title          []string `json:"title"`
	ContainerTitle []string `json:"container-title"`
	Author         []Author `json:"author"`
	Issued         DateInfo `json:"issued"`
}

// Author is a contributor name split into given and family parts.
type Author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

// DateInfo carries Crossref's nested date-parts array, e.g. [[2021, 5, 3]].
type DateInfo struct {
	DateParts [][]*int `json:"date-parts"`
}
