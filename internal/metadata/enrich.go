package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// EnrichedFields are the attributes an external lookup may fill in beyond
// what path-convention derivation can produce. Zero values mean "unknown"
// and must not overwrite an already-populated field.
type EnrichedFields struct {
	Description     string
	PageCount       int
	Publisher       string
	PublicationDate string
}

// Enricher looks up supplementary metadata for an ISBN. Implementations
// must treat failures as non-fatal: the caller persists the ISBN
// regardless of lookup outcome.
type Enricher interface {
	Lookup(ctx context.Context, isbn string) (EnrichedFields, error)
}

// NullEnricher performs no lookup. It is the default when no enrichment
// service is configured.
type NullEnricher struct{}

// Lookup always returns a zero value and no error.
func (NullEnricher) Lookup(_ context.Context, _ string) (EnrichedFields, error) {
	return EnrichedFields{}, nil
}

// GoogleBooksClient enriches metadata via the Google Books volumes API.
// The API key is optional; unauthenticated requests are rate-limited more
// aggressively by Google but otherwise work.
type GoogleBooksClient struct {
	HTTPClient *http.Client
	APIKey     string
	UserAgent  string
}

// NewGoogleBooksClient builds a client with sane request timeouts.
func NewGoogleBooksClient(apiKey, userAgent string) *GoogleBooksClient {
	return &GoogleBooksClient{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		APIKey:     apiKey,
		UserAgent:  userAgent,
	}
}

type googleBooksResponse struct {
	Items []struct {
		VolumeInfo struct {
			Description   string   `json:"description"`
			PageCount     int      `json:"pageCount"`
			Publisher     string   `json:"publisher"`
			PublishedDate string   `json:"publishedDate"`
			Categories    []string `json:"categories"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Lookup queries the Google Books API for the given ISBN.
func (c *GoogleBooksClient) Lookup(ctx context.Context, isbn string) (EnrichedFields, error) {
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	if c.APIKey != "" {
		q.Set("key", c.APIKey)
	}
	reqURL := "https://www.googleapis.com/books/v1/volumes?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return EnrichedFields{}, fmt.Errorf("build request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return EnrichedFields{}, fmt.Errorf("request volumes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return EnrichedFields{}, fmt.Errorf("volumes lookup returned status %d", resp.StatusCode)
	}

	var parsed googleBooksResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return EnrichedFields{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Items) == 0 {
		return EnrichedFields{}, nil
	}

	info := parsed.Items[0].VolumeInfo
	return EnrichedFields{
		Description:     info.Description,
		PageCount:       info.PageCount,
		Publisher:       info.Publisher,
		PublicationDate: info.PublishedDate,
	}, nil
}
