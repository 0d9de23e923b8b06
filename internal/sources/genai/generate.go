// internal/sources/genai/generate.go
package genai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agribot/internal/common/errors"
	"agribot/internal/common/logger"
	"agribot/internal/common/metrics"
)

// promptTemplate pins the assistant to the agricultural domain. The model
// echoes the template, so the answer is taken after the final "Response:"
// marker.
const promptTemplate = `
You are a helpful chatbot focused on agriculture, farming, and agricultural equipment. The user asked: "%s"
- Understand the user's intent.
- Provide a concise, accurate response related to agriculture, farming, or agricultural equipment.
- For price queries, suggest checking local markets or government sources if specific data is unavailable.
- If the query is unclear or outside this scope, politely inform the user that you can only answer agricultural questions.
Response:
`

type Config struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

// Client calls a streaming completion endpoint. Any provider fault degrades
// to "no data"; the quality gate on the returned text is the caller's.
type Client struct {
	config Config
	http   *http.Client
	logger logger.Logger
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type generateFragment struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func New(cfg Config, log logger.Logger) *Client {
	return &Client{
		config: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log.With(map[string]interface{}{
			"component": "genai",
		}),
	}
}

// Generate returns the model's answer for the query. The endpoint streams
// newline-delimited JSON fragments; they are concatenated until the done
// marker.
func (c *Client) Generate(ctx context.Context, query string) (string, bool) {
	prompt := fmt.Sprintf(promptTemplate, query)

	body, _ := json.Marshal(generateRequest{
		Model:       c.config.Model,
		Prompt:      prompt,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		TopP:        c.config.TopP,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewBuffer(body))
	if err != nil {
		c.fail(errors.NewLLMGenerationFailedError(err), "building generate request failed")
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.fail(errors.NewLLMGenerationFailedError(err), "completion call failed")
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("completion provider returned status %d", resp.StatusCode)
		c.fail(errors.NewLLMGenerationFailedError(err), "completion call failed")
		return "", false
	}

	text, err := drainFragments(resp.Body)
	if err != nil {
		c.fail(errors.NewLLMGenerationFailedError(err), "reading completion stream failed")
		return "", false
	}

	answer := extractAnswer(text)
	if answer == "" {
		return "", false
	}
	return answer, true
}

func (c *Client) fail(err *errors.StandardError, msg string) {
	metrics.SourceFailures.WithLabelValues("generative", string(err.Code)).Inc()
	c.logger.WithError(err).Error(msg, nil)
}

func drainFragments(body io.Reader) (string, error) {
	var full strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var fragment generateFragment
		if err := json.Unmarshal([]byte(line), &fragment); err != nil {
			return "", fmt.Errorf("decode stream fragment: %w", err)
		}
		full.WriteString(fragment.Response)
		if fragment.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return full.String(), nil
}

// extractAnswer keeps only the text after the final "Response:" marker, in
// case the model replays the prompt.
func extractAnswer(text string) string {
	parts := strings.Split(text, "Response:")
	return strings.TrimSpace(parts[len(parts)-1])
}
