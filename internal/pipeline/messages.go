// internal/pipeline/messages.go
package pipeline

// Canned user-facing messages, written in the canonical language and
// translated out at the boundary.
const (
	msgEmptyQuery     = "Please enter a valid query."
	msgNotAgriculture = "Sorry, I can only answer questions about agriculture and farming related questions."
	msgNoPriceData    = "Sorry, I couldn't find recent price data for %s. Try checking local markets or government sources."
	msgNoAnswer       = "Sorry, I couldn't find an answer. Please try rephrasing your query or check local agricultural sources."

	webAttributionPrefix = "From the web: "
)

// relevanceKeywords gates queries to the agricultural domain. Matching is
// exact substring membership, never fuzzy. Languages without their own list
// fall back to the canonical-language list against the translated text.
var relevanceKeywords = map[string][]string{
	"en": {
		"agriculture", "farming", "crop", "commodity", "price", "rate", "cost", "equipment",
		"tractor", "harvest", "irrigation", "lady finger", "bhindi", "rice", "wheat", "potato",
		"pests", "insects", "disease", "weeds", "crop protection", "fertilizer", "soil", "seeds",
		"banana", "beans", "beetroot", "cucumber", "fish", "garlic", "ginger", "chilli", "maize",
		"onion", "paddy", "papaya", "lemon", "corn", "broccoli", "peas", "bugs", "vermin",
		"crop damage",
	},
	"hi": {
		"कृषि", "खेती", "फसल", "कीट", "रोग", "खरपतवार", "उर्वरक", "मिट्टी", "बीज",
		"प्याज", "आलू", "चावल", "गेहूं", "नींबू", "चुकंदर", "कीमत",
	},
}
