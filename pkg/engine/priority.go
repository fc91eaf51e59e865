package engine

import "strings"

// criticalColumns maps normalized key fragments to priority tiers.
// Lower is more important; anything not listed is optional (99) and never
// worth embedding compute. Reference comes first: a catalog without its
// reference column is unusable downstream.
var criticalColumns = []struct {
	key      string
	priority int
}{
	{"reference", 1},
	{"designation", 2},
	{"description", 2},
	{"libelle", 2},
	{"label", 2},
	{"prix", 3},
	{"price", 3},
	{"quantite", 4},
	{"quantity", 4},
}

// optionalPriority is the tier for everything not in the critical table.
const optionalPriority = 99

// criticalThreshold separates critical from optional tiers.
const criticalThreshold = 10

// priorityOf returns the tier for an already-normalized target field.
func priorityOf(normalizedTarget string) int {
	for _, c := range criticalColumns {
		if strings.Contains(normalizedTarget, c.key) {
			return c.priority
		}
	}
	return optionalPriority
}
