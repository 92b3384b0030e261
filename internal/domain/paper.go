package domain

import (
	"regexp"
	"strings"
)

// Provider names. They are persisted in the sources table and returned to clients.
const (
	ProviderSemanticScholar = "semantic_scholar"
	ProviderOpenAlex        = "openalex"
	ProviderCrossref        = "crossref"
	ProviderUnpaywall       = "unpaywall"
)

// UnknownAuthor is used when a provider returns no author list.
const UnknownAuthor = "Unknown"

// PaperBrief is the normalized bibliographic record produced by every search provider.
// Optional fields degrade to empty strings, never to nil.
type PaperBrief struct {
	Title       string `json:"title"`
	FirstAuthor string `json:"first_author"`
	Year        string `json:"year"`
	Venue       string `json:"venue"`
	DOI         string `json:"doi"`
	URL         string `json:"url"`
	Provider    string `json:"provider"`
}

// IdentityKey returns the deduplication key: the DOI when present, else the URL, else the title.
func (p PaperBrief) IdentityKey() string {
	if p.DOI != "" {
		return p.DOI
	}
	if p.URL != "" {
		return p.URL
	}
	return p.Title
}

// Link returns the best link to the paper: its URL, else a doi.org link, else "".
func (p PaperBrief) Link() string {
	if p.URL != "" {
		return p.URL
	}
	if p.DOI != "" {
		return "https://doi.org/" + p.DOI
	}
	return ""
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeQuery collapses runs of whitespace and trims the result.
func NormalizeQuery(q string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(q, " "))
}
