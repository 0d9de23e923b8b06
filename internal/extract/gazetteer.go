// internal/extract/gazetteer.go
package extract

// gazetteerEntry maps a trigger phrase in the query to a location filter.
// Pattern carries spelling variants as case-insensitive regex alternation
// matching how the price store records the names.
type gazetteerEntry struct {
	trigger string
	field   string
	pattern string
}

// gazetteer is scanned in order; entries for the same field overwrite
// earlier hits, so more specific triggers come last.
var gazetteer = []gazetteerEntry{
	{trigger: "balasore", field: "district_name", pattern: "Balasore|Baleswar|Baleshwar"},
	{trigger: "baleswar", field: "district_name", pattern: "Balasore|Baleswar|Baleshwar"},
	{trigger: "baleshwar", field: "district_name", pattern: "Balasore|Baleswar|Baleshwar"},
	{trigger: "odisha", field: "state_name", pattern: "Odisha|Orissa"},
	{trigger: "orissa", field: "state_name", pattern: "Odisha|Orissa"},
	{trigger: "hindol", field: "market", pattern: "Hindol"},
	{trigger: "rayagada", field: "district_name", pattern: "Rayagada"},
}
