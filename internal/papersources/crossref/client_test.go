package crossref

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/papersources"
)

func TestClient_Search(t *testing.T) {
	var gotQuery, gotRows, gotMailto string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		gotRows = r.URL.Query().Get("rows")
		gotMailto = r.URL.Query().Get("mailto")
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"message": {
				"total-results": 2,
				"items": [
					{
						"DOI": "10.1145/3065386",
						"URL": "http://dx.doi.org/10.1145/3065386",
						"title": ["ImageNet classification with deep convolutional neural networks"],
						"container-title": ["Communications of the ACM"],
						"author": [{"given": "Alex", "family": "Krizhevsky"}, {"given": "Ilya", "family": "Sutskever"}],
						"issued": {"date-parts": [[2017, 5, 24]]}
					},
					{
						"DOI": "10.1/untitled",
						"title": [],
						"author": [{"family": "Consortium"}],
						"issued": {"date-parts": [[null]]}
					}
				]
			}
		}`))
	}))
	defer server.Close()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    domain.ProviderCrossref,
		RateLimit: 1000,
		BurstSize: 100,
		Retry:     papersources.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})
	client := NewWithHTTPClient(Config{BaseURL: server.URL, Email: "team@example.org"}, httpClient)

	papers, err := client.Search(context.Background(), papersources.SearchParams{Query: "imagenet", Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, "imagenet", gotQuery)
	assert.Equal(t, "2", gotRows)
	assert.Equal(t, "team@example.org", gotMailto)

	require.Len(t, papers, 2)
	assert.Equal(t, domain.PaperBrief{
		Title:       "ImageNet classification with deep convolutional neural networks",
		FirstAuthor: "Alex Krizhevsky",
		Year:        "2017",
		Venue:       "Communications of the ACM",
		DOI:         "10.1145/3065386",
		URL:         "http://dx.doi.org/10.1145/3065386",
		Provider:    domain.ProviderCrossref,
	}, papers[0])

	assert.Equal(t, "", papers[1].Title)
	assert.Equal(t, "Consortium", papers[1].FirstAuthor)
	assert.Equal(t, "", papers[1].Year)
	assert.Equal(t, "", papers[1].Venue)
}

func TestConvertItem_NoAuthors(t *testing.T) {
	brief := convertItem(Item{Title: []string{"Anonymous"}})

	assert.Equal(t, domain.UnknownAuthor, brief.FirstAuthor)
	assert.Equal(t, "", brief.Year)
}

func TestNew_Defaults(t *testing.T) {
	client := New(Config{})

	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.Equal(t, domain.ProviderCrossref, client.Name())
	assert.NotNil(t, client.httpClient)
}
