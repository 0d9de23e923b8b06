// internal/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"fmt"
	"testing"

	"agribot/internal/catalog"
	"agribot/internal/common/logger"
	"agribot/internal/extract"
	"agribot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakePrice struct {
	sentence string
	ok       bool
	calls    int
}

func (f *fakePrice) Lookup(_ context.Context, _ models.ResolvedQuery) (string, bool) {
	f.calls++
	return f.sentence, f.ok
}

type fakeWeb struct {
	snippet    string
	ok         bool
	calls      int
	lastQuery  string
	lastFramed bool
}

func (f *fakeWeb) Search(_ context.Context, query string, isPriceIntent bool) (string, bool) {
	f.calls++
	f.lastQuery = query
	f.lastFramed = isPriceIntent
	return f.snippet, f.ok
}

type fakeGen struct {
	text  string
	ok    bool
	calls int
}

func (f *fakeGen) Generate(_ context.Context, _ string) (string, bool) {
	f.calls++
	return f.text, f.ok
}

// fakeTranslator translates into the canonical language via a fixed result
// and out of it by tagging the text with the destination language.
type fakeTranslator struct {
	toCanonical string
	inErr       error
	outErr      error
}

func (f *fakeTranslator) Translate(_ context.Context, text, sourceLang, destLang string) (string, error) {
	if sourceLang == destLang {
		return text, nil
	}
	if destLang == "en" {
		if f.inErr != nil {
			return "", f.inErr
		}
		return f.toCanonical, nil
	}
	if f.outErr != nil {
		return "", f.outErr
	}
	return "[" + destLang + "]" + text, nil
}

type fakeSink struct {
	turns []models.ConversationTurn
	err   error
}

func (f *fakeSink) Append(_ context.Context, turn models.ConversationTurn) error {
	f.turns = append(f.turns, turn)
	return f.err
}

type fixture struct {
	pipeline   *Pipeline
	price      *fakePrice
	web        *fakeWeb
	generative *fakeGen
	translator *fakeTranslator
	sink       *fakeSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		price:      &fakePrice{},
		web:        &fakeWeb{},
		generative: &fakeGen{},
		translator: &fakeTranslator{},
		sink:       &fakeSink{},
	}
	log := logger.NewTestLogger(t)
	f.pipeline = New(Options{
		Extractor:     extract.New(catalog.Default(), log),
		Price:         f.price,
		Web:           f.web,
		Generative:    f.generative,
		Translator:    f.translator,
		Sink:          f.sink,
		CanonicalLang: "en",
		Logger:        log,
	})
	return f
}

// ---- tests ----

func TestStructuredHitShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.price.sentence = "The price of bhindi in Balasore Mkt, Baleswar, Odisha is 2000 Rs/Quintal as of 2024-05-01."
	f.price.ok = true

	answer := f.pipeline.Process(context.Background(), "farmer-1", "price of bhindi in balasore", "en")

	assert.Equal(t, f.price.sentence, answer)
	assert.Equal(t, 1, f.price.calls)
	assert.Zero(t, f.web.calls)
	assert.Zero(t, f.generative.calls)
}

func TestPricePathFallsBackToWebWithFraming(t *testing.T) {
	f := newFixture(t)
	f.web.snippet = "Mango sells at 60 Rs per kg in local mandis."
	f.web.ok = true

	answer := f.pipeline.Process(context.Background(), "farmer-1", "price of mango", "en")

	assert.Equal(t, "From the web: Mango sells at 60 Rs per kg in local mandis.", answer)
	assert.True(t, f.web.lastFramed, "price path must use price framing")
	assert.Zero(t, f.generative.calls, "generative source is never reached on the price path")
}

func TestPricePathExhaustedMessage(t *testing.T) {
	f := newFixture(t)

	answer := f.pipeline.Process(context.Background(), "farmer-1", "price of mango", "en")

	assert.Equal(t, fmt.Sprintf(msgNoPriceData, "price of mango"), answer)
	assert.Zero(t, f.generative.calls)
}

func TestNonPriceUsesGenerativeFirst(t *testing.T) {
	f := newFixture(t)
	f.generative.text = "Rotate crops and use neem-based sprays."
	f.generative.ok = true

	answer := f.pipeline.Process(context.Background(), "farmer-1", "how do I protect my crop from pests", "en")

	assert.Equal(t, "Rotate crops and use neem-based sprays.", answer)
	assert.Zero(t, f.web.calls, "no web search when the generative answer is accepted")
	assert.Zero(t, f.price.calls, "no structured lookup without price intent")
}

func TestQualityGateRejectsSorryAnswers(t *testing.T) {
	f := newFixture(t)
	f.generative.text = "Sorry, I can only answer agricultural questions."
	f.generative.ok = true
	f.web.snippet = "Neem oil controls aphids on most crops."
	f.web.ok = true

	answer := f.pipeline.Process(context.Background(), "farmer-1", "how to handle crop pests", "en")

	assert.Equal(t, "From the web: Neem oil controls aphids on most crops.", answer)
	assert.False(t, f.web.lastFramed, "non-price fallback searches without price framing")
}

func TestAllSourcesExhausted(t *testing.T) {
	f := newFixture(t)

	answer := f.pipeline.Process(context.Background(), "farmer-1", "unusual question about soil biology", "en")

	assert.Equal(t, msgNoAnswer, answer)
	assert.Equal(t, 1, f.generative.calls)
	assert.Equal(t, 1, f.web.calls)
}

func TestEmptyQueryTerminal(t *testing.T) {
	f := newFixture(t)

	answer := f.pipeline.Process(context.Background(), "farmer-1", "   ", "en")

	assert.Equal(t, msgEmptyQuery, answer)
	assert.Zero(t, f.price.calls)
	assert.Zero(t, f.web.calls)
	assert.Zero(t, f.generative.calls)
}

func TestIrrelevantQueryRefused(t *testing.T) {
	f := newFixture(t)

	answer := f.pipeline.Process(context.Background(), "farmer-1", "tell me a joke about dinosaurs", "en")

	assert.Equal(t, msgNotAgriculture, answer)
	assert.Zero(t, f.price.calls)
	assert.Zero(t, f.web.calls)
	assert.Zero(t, f.generative.calls)
}

func TestHindiRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.translator.toCanonical = "price of bhindi in balasore"
	f.price.sentence = "The price of bhindi in Balasore Mkt, Baleswar, Odisha is 2000 Rs/Quintal as of 2024-05-01."
	f.price.ok = true

	answer := f.pipeline.Process(context.Background(), "farmer-1", "बालासोर में भिंडी की कीमत", "hi")

	assert.Equal(t, "[hi]"+f.price.sentence, answer)
}

func TestUnlistedLanguageUsesCanonicalGate(t *testing.T) {
	f := newFixture(t)
	f.translator.toCanonical = "price of bhindi"
	f.price.sentence = "The price of bhindi in Balasore Mkt, Baleswar, Odisha is 2000 Rs/Quintal as of 2024-05-01."
	f.price.ok = true

	// Tamil has no dedicated keyword list; relevance comes from the
	// canonical translation.
	answer := f.pipeline.Process(context.Background(), "farmer-1", "வெண்டைக்காய் விலை", "ta")

	assert.Equal(t, "[ta]"+f.price.sentence, answer)
}

func TestInboundTranslationFailureContinuesWithOriginal(t *testing.T) {
	f := newFixture(t)
	f.translator.inErr = assert.AnError
	f.translator.outErr = assert.AnError

	// The Hindi keyword and price keyword survive untranslated, so the gate
	// and intent detection still work on the original text.
	query := "भिंडी की कीमत बताओ"
	answer := f.pipeline.Process(context.Background(), "farmer-1", query, "hi")

	// Both boundaries are down, so the canonical-language message passes
	// through unmodified, referencing the untranslated query.
	assert.Equal(t, fmt.Sprintf(msgNoPriceData, query), answer)
}

func TestOutboundTranslationFailurePassesThrough(t *testing.T) {
	f := newFixture(t)
	f.translator.toCanonical = "price of bhindi"
	f.translator.outErr = assert.AnError
	f.price.sentence = "The price of bhindi in Balasore Mkt, Baleswar, Odisha is 2000 Rs/Quintal as of 2024-05-01."
	f.price.ok = true

	answer := f.pipeline.Process(context.Background(), "farmer-1", "भिंडी की कीमत", "hi")

	assert.Equal(t, f.price.sentence, answer)
}

func TestTurnEmittedForEveryOutcome(t *testing.T) {
	f := newFixture(t)
	f.generative.text = "Use drip irrigation."
	f.generative.ok = true

	f.pipeline.Process(context.Background(), "farmer-1", "irrigation advice for wheat", "en")
	f.pipeline.Process(context.Background(), "farmer-1", "", "en")
	f.pipeline.Process(context.Background(), "farmer-1", "tell me a joke", "en")

	require.Len(t, f.sink.turns, 3)
	assert.Equal(t, "irrigation advice for wheat", f.sink.turns[0].UserMessage)
	assert.Equal(t, "Use drip irrigation.", f.sink.turns[0].BotResponse)
	assert.Equal(t, "en", f.sink.turns[0].InputLanguage)
	assert.Equal(t, msgEmptyQuery, f.sink.turns[1].BotResponse)
	assert.Equal(t, msgNotAgriculture, f.sink.turns[2].BotResponse)
}

func TestSinkFailureDoesNotAffectAnswer(t *testing.T) {
	f := newFixture(t)
	f.sink.err = assert.AnError
	f.generative.text = "Compost improves soil structure."
	f.generative.ok = true

	answer := f.pipeline.Process(context.Background(), "farmer-1", "soil improvement on my farm", "en")

	assert.Equal(t, "Compost improves soil structure.", answer)
}
