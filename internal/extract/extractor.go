// internal/extract/extractor.go
package extract

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"agribot/internal/catalog"
	"agribot/internal/common/logger"
	"agribot/internal/models"

	"github.com/agnivade/levenshtein"
)

const (
	priceIntentThreshold = 80
	commodityThreshold   = 85
)

// priceKeywords trigger the structured price path. "prie" catches a common
// misspelling; the Hindi keyword covers untranslated input.
var priceKeywords = []string{"price", "cost", "rate", "value", "prie", "कीमत"}

// Extractor classifies price intent and pulls commodity/location entities
// out of a canonical-language query. Pure over the catalog and gazetteer;
// safe for concurrent use.
type Extractor struct {
	catalog *catalog.Catalog
	logger  logger.Logger
}

func New(cat *catalog.Catalog, log logger.Logger) *Extractor {
	return &Extractor{
		catalog: cat,
		logger: log.With(map[string]interface{}{
			"component": "extractor",
		}),
	}
}

// Extract produces the ResolvedQuery for one request. Commodity matching is
// skipped entirely when no price intent is detected.
func (e *Extractor) Extract(query string) models.ResolvedQuery {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	tokens := strings.Fields(queryLower)

	resolved := models.ResolvedQuery{
		NormalizedText: queryLower,
		IsPriceIntent:  e.detectPriceIntent(tokens),
	}

	if !resolved.IsPriceIntent {
		return resolved
	}

	resolved.Commodity = e.matchCommodity(queryLower, commodityCandidates(tokens))
	resolved.LocationFilters = matchLocations(queryLower)

	e.logger.Debug("extracted entities", map[string]interface{}{
		"commodity":        resolved.Commodity,
		"location_filters": resolved.LocationFilters,
	})
	return resolved
}

func (e *Extractor) detectPriceIntent(tokens []string) bool {
	for _, token := range tokens {
		for _, keyword := range priceKeywords {
			if similarity(token, keyword) > priceIntentThreshold {
				return true
			}
		}
	}
	return false
}

// matchCommodity scans the catalog in its defined order; the first name that
// appears verbatim in the query or fuzzily matches a token wins, then
// resolves through the synonym table. Verbatim hits require word boundaries,
// otherwise "rice" would match inside every query containing "price".
func (e *Extractor) matchCommodity(queryLower string, tokens []string) string {
	for _, name := range e.catalog.Commodities() {
		if containsTerm(queryLower, name) {
			return e.catalog.Resolve(name)
		}
		for _, token := range tokens {
			if similarity(token, name) > commodityThreshold {
				return e.catalog.Resolve(name)
			}
		}
	}
	return ""
}

// commodityCandidates drops tokens that themselves read as price keywords.
// Without this, "price" fuzzily matches the commodity "rice" (ratio 89) and
// every price query would resolve to it.
func commodityCandidates(tokens []string) []string {
	out := tokens[:0:0]
	for _, token := range tokens {
		isKeyword := false
		for _, keyword := range priceKeywords {
			if similarity(token, keyword) > priceIntentThreshold {
				isKeyword = true
				break
			}
		}
		if !isKeyword {
			out = append(out, token)
		}
	}
	return out
}

// containsTerm reports whether term occurs in text delimited by word
// boundaries. term may span multiple words ("ladies finger").
func containsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	for start := 0; start <= len(text)-len(term); {
		i := strings.Index(text[start:], term)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(term)
		if boundaryBefore(text, i) && boundaryAfter(text, end) {
			return true
		}
		start = i + 1
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func matchLocations(queryLower string) map[string]string {
	var filters map[string]string
	for _, entry := range gazetteer {
		if strings.Contains(queryLower, entry.trigger) {
			if filters == nil {
				filters = make(map[string]string)
			}
			filters[entry.field] = entry.pattern
		}
	}
	return filters
}

// similarity is the 0-100 Levenshtein ratio between two strings:
// 100*(len(a)+len(b)-distance)/(len(a)+len(b)), rounded. Lengths and
// distance are measured in runes.
func similarity(a, b string) int {
	if a == b {
		return 100
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	if la+lb == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * float64(la+lb-dist) / float64(la+lb)))
}
