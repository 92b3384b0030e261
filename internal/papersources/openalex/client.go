package openalex

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
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit (requests per second).
	// The polite pool allows 10 req/s.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default per-attempt HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultEmail is the polite-pool contact used when none is configured.
	DefaultEmail = "research-assistant@example.com"

	// doiPrefix is stripped from the DOI URLs OpenAlex returns.
	doiPrefix = "https://doi.org/"

	// Year bounds used when only one side of a range is given.
	minYear = 1900
	maxYear = 2100
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the API base URL. Defaults to https://api.openalex.org.
	BaseURL string

	// Email is the contact email sent as mailto for the polite pool.
	Email string

	// Timeout defaults to 20 seconds.
	Timeout time.Duration

	// RateLimit defaults to 10 requests per second.
	RateLimit float64

	// BurstSize defaults to 10.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Email == "" {
		c.Email = DefaultEmail
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client searches OpenAlex works.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements Searcher.
var _ papersources.Searcher = (*Client)(nil)

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    domain.ProviderOpenAlex,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "Helixir-ResearchAssistant/1.0 (mailto:" + cfg.Email + ")",
	})

	return NewWithHTTPClient(cfg, httpClient)
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return domain.ProviderOpenAlex
}

// Search queries the works endpoint.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) ([]domain.PaperBrief, error) {
	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, c.config.BaseURL+"/works", c.buildQuery(params), nil, &resp); err != nil {
		return nil, fmt.Errorf("openalex search: %w", err)
	}

	papers := make([]domain.PaperBrief, 0, len(resp.Results))
	for _, w := range resp.Results {
		papers = append(papers, convertWork(w))
	}
	return papers, nil
}

func (c *Client) buildQuery(params papersources.SearchParams) url.Values {
	query := url.Values{}
	query.Set("search", params.Query)
	query.Set("per_page", strconv.Itoa(params.Limit))
	query.Set("mailto", c.config.Email)

	if params.YearFrom != nil || params.YearTo != nil {
		from, to := minYear, maxYear
		if params.YearFrom != nil {
			from = *params.YearFrom
		}
		if params.YearTo != nil {
			to = *params.YearTo
		}
		query.Set("from_publication_date", fmt.Sprintf("%d-01-01", from))
		query.Set("to_publication_date", fmt.Sprintf("%d-12-31", to))
	}
	return query
}

// convertWork maps an OpenAlex work into a PaperBrief.
func convertWork(w Work) domain.PaperBrief {
	brief := domain.PaperBrief{
		Title:       w.Title,
		FirstAuthor: domain.UnknownAuthor,
		DOI:         strings.TrimPrefix(w.DOI, doiPrefix),
		Provider:    domain.ProviderOpenAlex,
	}
	if brief.Title == "" {
		brief.Title = w.DisplayName
	}
	if len(w.Authorships) > 0 && w.Authorships[0].Author.DisplayName != "" {
		brief.FirstAuthor = w.Authorships[0].Author.DisplayName
	}
	if w.PublicationYear != nil {
		brief.Year = strconv.Itoa(*w.PublicationYear)
	}

	switch {
	case w.HostVenue != nil && w.HostVenue.DisplayName != "":
		brief.Venue = w.HostVenue.DisplayName
	case w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil:
		brief.Venue = w.PrimaryLocation.Source.DisplayName
	}

	if loc := w.PrimaryLocation; loc != nil {
		brief.URL = loc.LandingPageURL
		if brief.URL == "" {
			brief.URL = loc.PDFURL
		}
	}
	return brief
}
