// internal/sources/genai/generate_test.go
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agribot/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		BaseURL:     server.URL,
		Model:       "llama3.2",
		MaxTokens:   150,
		Temperature: 0.7,
		TopP:        0.9,
		Timeout:     2 * time.Second,
	}, logger.NewTestLogger(t))
}

func streamFragments(fragments ...generateFragment) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, f := range fragments {
			line, _ := json.Marshal(f)
			fmt.Fprintf(w, "%s\n", line)
		}
	}
}

func TestGenerateConcatenatesStream(t *testing.T) {
	client := newTestGenClient(t, streamFragments(
		generateFragment{Response: "Rotate crops and "},
		generateFragment{Response: "use neem-based sprays."},
		generateFragment{Done: true},
	))

	text, ok := client.Generate(context.Background(), "how do I protect my crop from pests")

	require.True(t, ok)
	assert.Equal(t, "Rotate crops and use neem-based sprays.", text)
}

func TestGenerateStopsAtDone(t *testing.T) {
	client := newTestGenClient(t, streamFragments(
		generateFragment{Response: "Use certified seeds."},
		generateFragment{Done: true},
		generateFragment{Response: "TRAILING JUNK"},
	))

	text, ok := client.Generate(context.Background(), "seed advice")

	require.True(t, ok)
	assert.Equal(t, "Use certified seeds.", text)
}

func TestGenerateExtractsAfterResponseMarker(t *testing.T) {
	client := newTestGenClient(t, streamFragments(
		generateFragment{Response: "You are a helpful chatbot. Response: Water early in the morning."},
		generateFragment{Done: true},
	))

	text, ok := client.Generate(context.Background(), "when to water")

	require.True(t, ok)
	assert.Equal(t, "Water early in the morning.", text)
}

func TestGenerateSendsBoundedSamplingParams(t *testing.T) {
	var got generateRequest
	client := newTestGenClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		streamFragments(generateFragment{Response: "ok", Done: true})(w, r)
	})

	_, ok := client.Generate(context.Background(), "soil health")

	require.True(t, ok)
	assert.Equal(t, "llama3.2", got.Model)
	assert.Equal(t, 150, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.InDelta(t, 0.9, got.TopP, 1e-9)
	assert.True(t, strings.Contains(got.Prompt, `The user asked: "soil health"`))
}

func TestGenerateEmptyStreamIsNoData(t *testing.T) {
	client := newTestGenClient(t, streamFragments(generateFragment{Done: true}))

	_, ok := client.Generate(context.Background(), "anything")

	assert.False(t, ok)
}

func TestGenerateHTTPErrorDegradesToNoData(t *testing.T) {
	client := newTestGenClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})

	_, ok := client.Generate(context.Background(), "anything")

	assert.False(t, ok)
}

func TestGenerateUnreachableProviderDegradesToNoData(t *testing.T) {
	client := New(Config{
		BaseURL: "http://127.0.0.1:1",
		Model:   "llama3.2",
		Timeout: 200 * time.Millisecond,
	}, logger.NewTestLogger(t))

	_, ok := client.Generate(context.Background(), "anything")

	assert.False(t, ok)
}
