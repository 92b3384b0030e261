// Package unpaywall looks up open-access locations of papers by DOI.
//
// API Documentation: https://unpaywall.org/products/api
package unpaywall

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default Unpaywall API base URL.
	DefaultBaseURL = "https://api.unpaywall.org"

	// DefaultEmail is sent when none is configured; Unpaywall rejects requests without one.
	DefaultEmail = "research-assistant@example.com"

	// DefaultRateLimit is the default rate limit in requests per second.
	DefaultRateLimit = 10.0

	// DefaultTimeout is the default per-attempt HTTP timeout.
	DefaultTimeout = 20 * time.Second
)

// Response is the subset of the Unpaywall DOI object the service reads.
type Response struct {
	DOI            string    `json:"doi"`
	IsOA           bool      `json:"is_oa"`
	BestOALocation *Location `json:"best_oa_location"`
}

// Location is an open-access copy of a work.
type Location struct {
	URL       string `json:"url"`
	URLForPDF string `json:"url_for_pdf"`
	License   string `json:"license"`
}

// Config holds configuration for the Unpaywall client.
type Config struct {
	BaseURL   string
	Email     string
	Timeout   time.Duration
	RateLimit float64
}

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
}

// Client implements papersources.Enricher.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	logger     zerolog.Logger
}

var _ papersources.Enricher = (*Client)(nil)

// New creates an Unpaywall client.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()
	return NewWithHTTPClient(cfg, papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    domain.ProviderUnpaywall,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: int(cfg.RateLimit),
	}), logger)
}

// NewWithHTTPClient creates an Unpaywall client that uses httpClient for requests.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("source", domain.ProviderUnpaywall).Logger(),
	}
}

// Enrich returns the best open-access location for doi. An empty DOI, a failed
// lookup, or a work without an open-access copy all report false.
func (c *Client) Enrich(ctx context.Context, doi string) (*papersources.OpenAccess, bool) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return nil, false
	}

	query := url.Values{}
	query.Set("email", c.config.Email)

	var resp Response
	if err := c.httpClient.GetJSON(ctx, c.config.BaseURL+"/v2/"+doi, query, nil, &resp); err != nil {
		c.logger.Debug().Err(err).Str("doi", doi).Msg("open-access lookup failed")
		return nil, false
	}
	if resp.BestOALocation == nil {
		return nil, false
	}

	return &papersources.OpenAccess{
		OAURL:   resp.BestOALocation.URL,
		OAPDF:   resp.BestOALocation.URLForPDF,
		License: resp.BestOALocation.License,
	}, true
}
