// Package papersources provides the bibliographic provider clients and the
// multi-source aggregation used by the literature survey.
//
// Every search provider (Semantic Scholar, OpenAlex, Crossref) implements
// Searcher and maps its own JSON shape into domain.PaperBrief. The open-access
// lookup (Unpaywall) implements Enricher. The Aggregator queries searchers
// sequentially in priority order, deduplicates, and enriches the result:
//
//	agg := papersources.NewAggregator([]papersources.Searcher{s2, openAlex, crossref}, unpaywall, logger, metrics)
//	result, err := agg.Aggregate(ctx, papersources.AggregateRequest{
//		Query:        "graph neural networks",
//		DesiredCount: 20,
//	})
package papersources

import (
	"context"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// SearchParams defines the parameters of a single provider search.
type SearchParams struct {
	// Query is the free-text search query (required).
	Query string

	// Limit is the maximum number of records requested from the provider.
	Limit int

	// YearFrom restricts results to publications from this year on, when supported.
	YearFrom *int

	// YearTo restricts results to publications up to this year, when supported.
	YearTo *int
}

// Searcher is a bibliographic search provider.
//
// Implementations must never fail on missing optional fields: absent authors map to
// domain.UnknownAuthor and absent year, venue, DOI or URL map to empty strings.
type Searcher interface {
	// Search runs a query and returns the provider's records in provider order.
	Search(ctx context.Context, params SearchParams) ([]domain.PaperBrief, error)

	// Name returns the provider identifier, e.g. domain.ProviderOpenAlex.
	Name() string
}

// OpenAccess holds the open-access locations of a paper.
type OpenAccess struct {
	OAURL   string `json:"oa_url"`
	OAPDF   string `json:"oa_pdf"`
	License string `json:"license"`
}

// Enricher looks up open-access metadata by DOI.
// It reports false when nothing is known or the lookup failed; it never returns an error.
type Enricher interface {
	Enrich(ctx context.Context, doi string) (*OpenAccess, bool)
}
