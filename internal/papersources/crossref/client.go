package crossref

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
	// DefaultBaseURL is the default Crossref API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the polite-pool rate in requests per second.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default per-attempt HTTP timeout.
	DefaultTimeout = 20 * time.Second
)

// Config holds configuration for the Crossref client.
type Config struct {
	BaseURL   string
	Email     string
	Timeout   time.Duration
	RateLimit float64
	BurstSize int
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
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

// Client searches Crossref works.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.Searcher = (*Client)(nil)

// New creates a Crossref client.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	ua := "Helixir-ResearchAssistant/1.0"
	if cfg.Email != "" {
		ua += " (mailto:" + cfg.Email + ")"
	}
	return NewWithHTTPClient(cfg, papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    domain.ProviderCrossref,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: ua,
	}))
}

// NewWithHTTPClient creates a Crossref client that uses httpClient for requests.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return domain.ProviderCrossref
}

// Search queries the works endpoint. The year range is not forwarded.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) ([]domain.PaperBrief, error) {
	query := url.Values{}
	query.Set("query", params.Query)
	query.Set("rows", strconv.Itoa(params.Limit))
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, c.config.BaseURL+"/works", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("crossref search: %w", err)
	}

	papers := make([]domain.PaperBrief, 0, len(resp.Message.Items))
	for _, item := range resp.Message.Items {
		papers = append(papers, convertItem(item))
	}
	return papers, nil
}

func convertItem(item Item) domain.PaperBrief {
	brief := domain.PaperBrief{
		Title:       first(item.Title),
		FirstAuthor: domain.UnknownAuthor,
		Venue:       first(item.ContainerTitle),
		DOI:         item.DOI,
		URL:         item.URL,
		Provider:    domain.ProviderCrossref,
	}
	if len(item.Author) > 0 {
		if name := strings.TrimSpace(item.Author[0].Given + " " + item.Author[0].Family); name != "" {
			brief.FirstAuthor = name
		}
	}
	if parts := item.Issued.DateParts; len(parts) > 0 && len(parts[0]) > 0 && parts[0][0] != nil {
		brief.Year = strconv.Itoa(*parts[0][0])
	}
	return brief
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
