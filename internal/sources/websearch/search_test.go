// internal/sources/websearch/search_test.go
package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	commonhttp "agribot/internal/common/http"
	"agribot/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(
		Config{BaseURL: server.URL, APIKey: "test-key", MaxResults: 5},
		commonhttp.NewClient(2*time.Second),
		logger.NewTestLogger(t),
	)
}

func serveResults(t *testing.T, snippets ...string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		results := make([]map[string]string, len(snippets))
		for i, s := range snippets {
			results[i] = map[string]string{"snippet": s}
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"organic_results": results,
		}))
	}
}

func TestSearchPrefersPriceMarkerSnippet(t *testing.T) {
	client := newTestClient(t, serveResults(t,
		"Mango is a tropical fruit grown across India.",
		"Mango sells at 60 Rs per kg in local mandis.",
		"Another generic result.",
	))

	snippet, ok := client.Search(context.Background(), "mango", true)

	require.True(t, ok)
	assert.Equal(t, "Mango sells at 60 Rs per kg in local mandis.", snippet)
}

func TestSearchFallsBackToFirstSnippet(t *testing.T) {
	client := newTestClient(t, serveResults(t,
		"Drip irrigation saves water in dry regions.",
		"Sprinkler systems are an alternative.",
	))

	snippet, ok := client.Search(context.Background(), "irrigation methods", false)

	require.True(t, ok)
	assert.Equal(t, "Drip irrigation saves water in dry regions.", snippet)
}

func TestSearchAppliesPriceFraming(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		serveResults(t, "Tomato at 30 rs per kg.")(w, r)
	})

	_, ok := client.Search(context.Background(), "tomato", true)

	require.True(t, ok)
	assert.Equal(t, "current price of tomato today", gotQuery)
}

func TestSearchNoFramingForNonPriceQueries(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		serveResults(t, "Crop rotation improves soil health.")(w, r)
	})

	_, ok := client.Search(context.Background(), "crop rotation", false)

	require.True(t, ok)
	assert.Equal(t, "crop rotation", gotQuery)
}

func TestSearchEmptyResults(t *testing.T) {
	client := newTestClient(t, serveResults(t))

	_, ok := client.Search(context.Background(), "anything", false)

	assert.False(t, ok)
}

func TestSearchProviderErrorDegradesToNoData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, ok := client.Search(context.Background(), "anything", true)

	assert.False(t, ok)
}

func TestSearchUnreachableProviderDegradesToNoData(t *testing.T) {
	client := New(
		Config{BaseURL: "http://127.0.0.1:1", APIKey: "k"},
		commonhttp.NewClient(200*time.Millisecond),
		logger.NewTestLogger(t),
	)

	_, ok := client.Search(context.Background(), "anything", false)

	assert.False(t, ok)
}
