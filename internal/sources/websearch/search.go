// internal/sources/websearch/search.go
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"agribot/internal/common/errors"
	commonhttp "agribot/internal/common/http"
	"agribot/internal/common/logger"
	"agribot/internal/common/metrics"
)

// priceMarkers mark a snippet as carrying actual pricing content. Checked
// case-insensitively.
var priceMarkers = []string{"rs", "inr", "rupees", "per kg", "per quintal"}

type Config struct {
	BaseURL    string
	APIKey     string
	MaxResults int
}

// Client queries an external search provider for answer snippets. Any
// provider fault degrades to "no data".
type Client struct {
	config Config
	http   *commonhttp.Client
	logger logger.Logger
}

type searchResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
}

type organicResult struct {
	Snippet string `json:"snippet"`
}

func New(cfg Config, httpClient *commonhttp.Client, log logger.Logger) *Client {
	if cfg.MaxResults == 0 {
		cfg.MaxResults = 5
	}
	return &Client{
		config: cfg,
		http:   httpClient,
		logger: log.With(map[string]interface{}{
			"component": "websearch",
		}),
	}
}

// Search returns the best snippet for the query. Price-intent queries are
// reframed to bias the provider toward pricing pages. Snippets containing a
// currency or unit marker are preferred over the first result.
func (c *Client) Search(ctx context.Context, query string, isPriceIntent bool) (string, bool) {
	searchQuery := query
	if isPriceIntent {
		searchQuery = fmt.Sprintf("current price of %s today", query)
	}

	results, err := c.fetch(ctx, searchQuery)
	if err != nil {
		metrics.SourceFailures.WithLabelValues("web_search", string(errors.ErrCodeWebSearchFailed)).Inc()
		c.logger.WithError(errors.NewWebSearchFailedError(err)).Error("web search failed", map[string]interface{}{
			"query": searchQuery,
		})
		return "", false
	}
	if len(results) == 0 {
		c.logger.Debug("web search returned no results", map[string]interface{}{
			"query": searchQuery,
		})
		return "", false
	}

	for _, result := range results {
		if result.Snippet == "" {
			continue
		}
		snippetLower := strings.ToLower(result.Snippet)
		for _, marker := range priceMarkers {
			if strings.Contains(snippetLower, marker) {
				return result.Snippet, true
			}
		}
	}

	for _, result := range results {
		if result.Snippet != "" {
			return result.Snippet, true
		}
	}
	return "", false
}

func (c *Client) fetch(ctx context.Context, searchQuery string) ([]organicResult, error) {
	params := url.Values{}
	params.Set("q", searchQuery)
	params.Set("api_key", c.config.APIKey)
	params.Set("num", strconv.Itoa(c.config.MaxResults))

	resp, err := c.http.Get(ctx, c.config.BaseURL+"/search.json?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("search provider returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return parsed.OrganicResults, nil
}
