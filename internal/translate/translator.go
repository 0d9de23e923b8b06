// internal/translate/translator.go
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"agribot/internal/common/errors"
	commonhttp "agribot/internal/common/http"
	"agribot/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	BaseURL  string
	CacheTTL time.Duration
}

// Translator converts text between the canonical language and the user's
// language through an HTTP provider, with a Redis cache in front. Cache
// faults are ignored; provider faults surface as errors that callers treat
// as "use the untranslated text".
type Translator struct {
	config Config
	cache  *redis.Client
	http   *commonhttp.Client
	logger logger.Logger
}

type translateRequest struct {
	Text   string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

func New(cfg Config, cache *redis.Client, httpClient *commonhttp.Client, log logger.Logger) *Translator {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &Translator{
		config: cfg,
		cache:  cache,
		http:   httpClient,
		logger: log.With(map[string]interface{}{
			"component": "translate",
		}),
	}
}

// Translate converts text from sourceLang to destLang. Identical languages
// short-circuit without a remote call.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, destLang string) (string, error) {
	if sourceLang == destLang || text == "" {
		return text, nil
	}

	key := cacheKey(sourceLang, destLang, text)
	if t.cache != nil {
		if cached, err := t.cache.Get(ctx, key).Result(); err == nil {
			return cached, nil
		}
	}

	translated, err := t.callProvider(ctx, text, sourceLang, destLang)
	if err != nil {
		stdErr := errors.NewTranslationFailedError(sourceLang, destLang, err)
		t.logger.WithError(stdErr).Error("translation failed", nil)
		return "", stdErr
	}

	if t.cache != nil {
		if err := t.cache.Set(ctx, key, translated, t.config.CacheTTL).Err(); err != nil {
			t.logger.WithError(err).Warn("translation cache write failed", nil)
		}
	}
	return translated, nil
}

func (t *Translator) callProvider(ctx context.Context, text, sourceLang, destLang string) (string, error) {
	body, _ := json.Marshal(translateRequest{
		Text:   text,
		Source: sourceLang,
		Target: destLang,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.BaseURL+"/translate", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation provider returned status %d", resp.StatusCode)
	}

	var parsed translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode translation response: %w", err)
	}
	if parsed.TranslatedText == "" {
		return "", fmt.Errorf("translation provider returned empty text")
	}
	return parsed.TranslatedText, nil
}

func cacheKey(sourceLang, destLang, text string) string {
	return fmt.Sprintf("translate:%s:%s:%s", sourceLang, destLang, text)
}
