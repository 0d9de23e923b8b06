// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agribot/internal/common/logger"
	"agribot/internal/common/metrics"
	"agribot/internal/common/observability"
	"agribot/internal/models"
)

// Answer source labels for metrics.
const (
	sourceEmpty      = "empty"
	sourceRefused    = "refused"
	sourcePriceStore = "price_store"
	sourceWebSearch  = "web_search"
	sourceGenerative = "generative"
	sourceNoAnswer   = "no_answer"
)

// Extractor produces the resolved entities for a canonical-language query.
type Extractor interface {
	Extract(query string) models.ResolvedQuery
}

// PriceSource answers from the structured price store.
type PriceSource interface {
	Lookup(ctx context.Context, resolved models.ResolvedQuery) (string, bool)
}

// WebSource answers with a provider snippet.
type WebSource interface {
	Search(ctx context.Context, query string, isPriceIntent bool) (string, bool)
}

// GenerativeSource answers from the completion provider.
type GenerativeSource interface {
	Generate(ctx context.Context, query string) (string, bool)
}

// Translator crosses the language boundary. Errors mean "use the
// untranslated text".
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, destLang string) (string, error)
}

// ConversationSink receives the finished turn. Failures are logged, never
// surfaced.
type ConversationSink interface {
	Append(ctx context.Context, turn models.ConversationTurn) error
}

// Pipeline is the query resolution state machine: relevance gate, entity
// extraction, then the ordered fallback chain across answer sources, with
// translation at both boundaries. Stages run strictly in order and
// short-circuit on the first answer; there is no retrying or backtracking.
type Pipeline struct {
	extractor     Extractor
	price         PriceSource
	web           WebSource
	generative    GenerativeSource
	translator    Translator
	sink          ConversationSink
	canonicalLang string
	obs           *observability.Observability
	logger        logger.Logger
}

type Options struct {
	Extractor     Extractor
	Price         PriceSource
	Web           WebSource
	Generative    GenerativeSource
	Translator    Translator
	Sink          ConversationSink
	CanonicalLang string
	Observability *observability.Observability
	Logger        logger.Logger
}

func New(opts Options) *Pipeline {
	if opts.CanonicalLang == "" {
		opts.CanonicalLang = "en"
	}
	return &Pipeline{
		extractor:     opts.Extractor,
		price:         opts.Price,
		web:           opts.Web,
		generative:    opts.Generative,
		translator:    opts.Translator,
		sink:          opts.Sink,
		canonicalLang: opts.CanonicalLang,
		obs:           opts.Observability,
		logger: opts.Logger.With(map[string]interface{}{
			"component": "pipeline",
		}),
	}
}

// Process resolves one user query and returns the answer in the user's
// language. It never returns an error; every failure mode ends in a polite
// message.
func (p *Pipeline) Process(ctx context.Context, userID, rawQuery, inputLang string) string {
	start := time.Now()

	answer, source := p.resolve(ctx, rawQuery, inputLang)

	p.recordOutcome(ctx, source, time.Since(start))
	p.emitTurn(ctx, userID, rawQuery, answer, inputLang)

	return answer
}

func (p *Pipeline) resolve(ctx context.Context, rawQuery, inputLang string) (string, string) {
	query := strings.TrimSpace(rawQuery)
	if query == "" {
		return p.translateOut(ctx, msgEmptyQuery, inputLang), sourceEmpty
	}

	p.logger.Info("processing query", map[string]interface{}{
		"language": inputLang,
	})

	// Relevance may only be legible after translation, so the gate checks
	// both the original text and its canonical rendition.
	relevant := matchesKeywords(query, p.keywordsFor(inputLang))

	canonicalQuery := query
	if inputLang != p.canonicalLang {
		translated, err := p.translator.Translate(ctx, query, inputLang, p.canonicalLang)
		if err != nil {
			metrics.TranslationFallbacks.WithLabelValues("in").Inc()
			p.logger.Warn("inbound translation failed, using original text", map[string]interface{}{
				"language": inputLang,
			})
		} else {
			canonicalQuery = translated
			if matchesKeywords(canonicalQuery, relevanceKeywords[p.canonicalLang]) {
				relevant = true
			}
		}
	}

	if !relevant {
		return p.translateOut(ctx, msgNotAgriculture, inputLang), sourceRefused
	}

	resolved := p.extractor.Extract(canonicalQuery)

	if resolved.IsPriceIntent {
		if sentence, ok := p.price.Lookup(ctx, resolved); ok {
			return p.translateOut(ctx, sentence, inputLang), sourcePriceStore
		}

		// Price questions never reach the generative source.
		if snippet, ok := p.web.Search(ctx, canonicalQuery, true); ok {
			return p.translateOut(ctx, webAttributionPrefix+snippet, inputLang), sourceWebSearch
		}
		return p.translateOut(ctx, fmt.Sprintf(msgNoPriceData, canonicalQuery), inputLang), sourceNoAnswer
	}

	if text, ok := p.generative.Generate(ctx, canonicalQuery); ok && !strings.Contains(strings.ToLower(text), "sorry") {
		return p.translateOut(ctx, text, inputLang), sourceGenerative
	}

	if snippet, ok := p.web.Search(ctx, canonicalQuery, false); ok {
		return p.translateOut(ctx, webAttributionPrefix+snippet, inputLang), sourceWebSearch
	}

	return p.translateOut(ctx, msgNoAnswer, inputLang), sourceNoAnswer
}

// keywordsFor returns the relevance list for a language, defaulting to the
// canonical-language list.
func (p *Pipeline) keywordsFor(lang string) []string {
	if list, ok := relevanceKeywords[lang]; ok {
		return list
	}
	return relevanceKeywords[p.canonicalLang]
}

func matchesKeywords(text string, keywords []string) bool {
	textLower := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(textLower, keyword) {
			return true
		}
	}
	return false
}

// translateOut renders the canonical answer in the user's language. A
// translation fault passes the canonical text through unmodified.
func (p *Pipeline) translateOut(ctx context.Context, text, destLang string) string {
	if destLang == p.canonicalLang {
		return text
	}
	translated, err := p.translator.Translate(ctx, text, p.canonicalLang, destLang)
	if err != nil {
		metrics.TranslationFallbacks.WithLabelValues("out").Inc()
		p.logger.Warn("outbound translation failed, returning canonical text", map[string]interface{}{
			"language": destLang,
		})
		return text
	}
	return translated
}

func (p *Pipeline) recordOutcome(ctx context.Context, source string, elapsed time.Duration) {
	metrics.QueriesResolved.WithLabelValues(source).Inc()
	metrics.QueryDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if p.obs != nil {
		p.obs.RecordQueryProcessed(ctx, source)
		p.obs.RecordQueryDuration(ctx, elapsed, source)
	}
}

// emitTurn appends the finished turn to the conversation log. Sink faults
// never affect the response.
func (p *Pipeline) emitTurn(ctx context.Context, userID, rawQuery, answer, inputLang string) {
	if p.sink == nil {
		return
	}
	err := p.sink.Append(ctx, models.ConversationTurn{
		UserID:        userID,
		UserMessage:   rawQuery,
		BotResponse:   answer,
		InputLanguage: inputLang,
	})
	if err != nil {
		p.logger.WithError(err).Error("conversation log append failed", map[string]interface{}{
			"user_id": userID,
		})
	}
}
