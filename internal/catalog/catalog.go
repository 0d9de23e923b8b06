// internal/catalog/catalog.go
package catalog

import (
	"bufio"
	"os"
	"strings"

	"agribot/internal/common/errors"
	"agribot/internal/common/logger"
)

// defaultCommodities is the built-in fallback used when the catalog file
// cannot be read. Order matters: commodity matching scans in this order and
// the first hit wins.
var defaultCommodities = []string{
	"banana - green", "beans", "beetroot", "betal leaves", "bhindi", "ladies finger",
	"bitter gourd", "bottle gourd", "brinjal", "cabbage", "capsicum", "carrot",
	"cauliflower", "cucumber", "kheera", "fish", "garlic", "ginger(dry)",
	"ginger(green)", "green chilli", "guar", "little gourd", "kundru", "maize",
	"onion", "paddy", "dhan", "papaya (raw)", "pointed gourd", "parval", "potato",
	"aloo", "pumpkin", "rice", "chawla", "ridgeguard", "tori", "tomato",
	"water melon", "yam", "ratalu", "jack fruit", "lemon", "nimbu", "corn",
	"broccoli", "colacasia", "cluster beans", "raddish", "green peas", "drumstick",
	"wheat",
}

// synonyms maps trade and regional names onto the canonical store names.
var synonyms = map[string]string{
	"okra":          "bhindi",
	"ladies finger": "bhindi",
	"lemon":         "nimbu",
	"cucumber":      "kheera",
	"paddy":         "dhan",
	"rice":          "chawla",
	"pointed gourd": "parval",
	"potato":        "aloo",
	"ridgeguard":    "tori",
	"yam":           "ratalu",
	"brocoli":       "broccoli",
	"ginger":        "ginger(green)",
	"dry ginger":    "ginger(dry)",
	"chilli":        "green chilli",
	"papaya":        "papaya (raw)",
	"sugar beet":    "beetroot",
	"chukandar":     "beetroot",
}

// Catalog is the loaded commodity list plus synonym resolution. Immutable
// after Load; safe for unsynchronized concurrent reads.
type Catalog struct {
	commodities []string
	synonyms    map[string]string
}

// Load reads the newline-delimited commodity file at path. Lines are case
// folded; blank lines, comment lines and entries containing a denylisted
// substring are skipped; duplicates keep their first-seen position. An
// unreadable file falls back to the built-in default list and is never an
// error to the caller.
func Load(path string, denylist []string, log logger.Logger) *Catalog {
	file, err := os.Open(path)
	if err != nil {
		log.WithError(errors.NewCatalogLoadFailedError(path, err)).Warn("Falling back to built-in commodity list", map[string]interface{}{
			"path": path,
		})
		return &Catalog{commodities: defaultCommodities, synonyms: synonyms}
	}
	defer file.Close()

	seen := make(map[string]bool)
	var commodities []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if containsAny(line, denylist) {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		commodities = append(commodities, line)
	}

	if err := scanner.Err(); err != nil || len(commodities) == 0 {
		if err != nil {
			log.WithError(errors.NewCatalogLoadFailedError(path, err)).Warn("Falling back to built-in commodity list", map[string]interface{}{
				"path": path,
			})
		} else {
			log.Warn("Catalog file empty, falling back to built-in commodity list", map[string]interface{}{
				"path": path,
			})
		}
		return &Catalog{commodities: defaultCommodities, synonyms: synonyms}
	}

	log.Info("Loaded commodity catalog", map[string]interface{}{
		"path":  path,
		"count": len(commodities),
	})
	return &Catalog{commodities: commodities, synonyms: synonyms}
}

// Default returns a catalog backed by the built-in commodity list.
func Default() *Catalog {
	return &Catalog{commodities: defaultCommodities, synonyms: synonyms}
}

// Commodities returns the ordered canonical commodity names. Callers must
// not modify the returned slice.
func (c *Catalog) Commodities() []string {
	return c.commodities
}

// Resolve maps a matched name through the synonym table. Names without a
// synonym entry resolve to themselves, so Resolve is idempotent.
func (c *Catalog) Resolve(name string) string {
	if canonical, ok := c.synonyms[name]; ok {
		return canonical
	}
	return name
}

func containsAny(line string, substrings []string) bool {
	for _, s := range substrings {
		if s != "" && strings.Contains(line, s) {
			return true
		}
	}
	return false
}
