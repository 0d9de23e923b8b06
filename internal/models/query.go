// internal/models/query.go
package models

// ResolvedQuery is the immutable output of entity extraction for one request.
type ResolvedQuery struct {
	NormalizedText  string            `json:"normalized_text"`
	IsPriceIntent   bool              `json:"is_price_intent"`
	Commodity       string            `json:"commodity,omitempty"`
	LocationFilters map[string]string `json:"location_filters,omitempty"`
}

// HasCommodity reports whether a catalog commodity was matched.
func (q ResolvedQuery) HasCommodity() bool {
	return q.Commodity != ""
}
