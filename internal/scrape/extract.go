package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/k3a/html2text"
	gocache "github.com/patrickmn/go-cache"
)

// FetchError marks a failure to retrieve or decode a source page.
type FetchError struct {
	URL    string
	Reason string
}

func (err *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch '%s': %s", err.URL, err.Reason)
}

// PageExtractor fetches a source page and strips it down to plain text,
// discarding scripts, styles and markup. Extracted text is cached per URL
// so that forced re-syncs within the cache TTL do not hit the network.
type PageExtractor struct {
	client *http.Client
	cache  *gocache.Cache
}

func NewPageExtractor(fetchTimeout time.Duration, cacheTTL time.Duration) *PageExtractor {
	return &PageExtractor{
		client: &http.Client{Timeout: fetchTimeout},
		cache:  gocache.New(cacheTTL, cacheTTL*2),
	}
}

// Extract returns the readable text content of the page at the given URL.
func (extractor *PageExtractor) Extract(ctx context.Context, url string) (string, error) {
	if cached, found := extractor.cache.Get(url); found {
		return cached.(string), nil
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Reason: err.Error()}
	}
	request.Header.Set("User-Agent", "fabrica/1.0 (+educational content pipeline)")

	response, err := extractor.client.Do(request)
	if err != nil {
		return "", &FetchError{URL: url, Reason: err.Error()}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", &FetchError{URL: url, Reason: fmt.Sprintf("unexpected status %d", response.StatusCode)}
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", &FetchError{URL: url, Reason: err.Error()}
	}

	text := strings.TrimSpace(html2text.HTML2Text(string(body)))
	if text == "" {
		return "", &FetchError{URL: url, Reason: "page contained no readable text"}
	}

	extractor.cache.SetDefault(url, text)
	return text, nil
}
