// Package semanticscholar provides a client for the Semantic Scholar Graph API.
//
// The client implements papersources.Searcher on top of the paper search
// endpoint and requests only the fields needed to build a domain.PaperBrief.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// SearchResponse represents the response from the paper search endpoint.
type SearchResponse struct {
	// Total is the total number of papers matching the query.
	Total int `json:"total"`

	// Offset is the current offset in the result set.
	Offset int `json:"offset"`

	// Data contains the papers returned by the search.
	Data []PaperResult `json:"data"`
}

// PaperResult represents a single paper in the search response.
// Every field except the title may be null in practice.
type PaperResult struct {
	PaperID     string       `json:"paperId"`
	Title       string       `json:"title"`
	Year        *int         `json:"year"`
	Venue       string       `json:"venue"`
	URL         string       `json:"url"`
	Authors     []Author     `json:"authors"`
	ExternalIDs *ExternalIDs `json:"externalIds,omitempty"`
}

// ExternalIDs contains external identifiers for a paper.
type ExternalIDs struct {
	// DOI is the Digital Object Identifier.
	DOI string `json:"DOI,omitempty"`

	// ArXiv is the ArXiv identifier.
	ArXiv string `json:"ArXiv,omitempty"`
}

// Author represents a paper author.
type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}
