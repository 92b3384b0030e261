package semanticscholar

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit in requests per second.
	// Unauthenticated clients share a much lower pool; configure an API key in production.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default per-attempt HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields requested from the API.
	paperFields = "title,year,venue,externalIds,url,authors"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is sent in the x-api-key header when set. An HTTP client passed
	// to NewClient carries its own key.
	APIKey string

	// Timeout defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit defaults to DefaultRateLimit if zero.
	RateLimit float64

	// BurstSize defaults to DefaultBurstSize if zero.
	BurstSize int
}

// Client searches Semantic Scholar.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

// Compile-time check that Client implements papersources.Searcher.
var _ papersources.Searcher = (*Client)(nil)

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, one is created from the configuration.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:       domain.ProviderSemanticScholar,
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return domain.ProviderSemanticScholar
}

// Search queries the paper search endpoint. The year range is not forwarded.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) ([]domain.PaperBrief, error) {
	query := url.Values{}
	query.Set("query", params.Query)
	query.Set("limit", strconv.Itoa(params.Limit))
	query.Set("fields", paperFields)

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, c.config.BaseURL+"/paper/search", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("semantic scholar search: %w", err)
	}

	papers := make([]domain.PaperBrief, 0, len(resp.Data))
	for _, r := range resp.Data {
		papers = append(papers, convertToBrief(r))
	}
	return papers, nil
}

// convertToBrief maps a search result into a PaperBrief.
func convertToBrief(r PaperResult) domain.PaperBrief {
	brief := domain.PaperBrief{
		Title:       r.Title,
		FirstAuthor: domain.UnknownAuthor,
		Venue:       r.Venue,
		URL:         r.URL,
		Provider:    domain.ProviderSemanticScholar,
	}
	if len(r.Authors) > 0 && r.Authors[0].Name != "" {
		brief.FirstAuthor = r.Authors[0].Name
	}
	if r.Year != nil {
		brief.Year = strconv.Itoa(*r.Year)
	}
	if r.ExternalIDs != nil {
		brief.DOI = r.ExternalIDs.DOI
	}
	if brief.URL == "" && brief.DOI != "" {
		brief.URL = "https://doi.org/" + brief.DOI
	}
	return brief
}
