package normalize

import (
	"regexp"
	"strings"

	"github.com/finsolve/knowledge-gateway/models"
)

var numericHint = regexp.MustCompile(`\d`)

var quantitativeTerms = []string{
	"how much", "how many", "revenue", "cost", "expense", "profit",
	"margin", "percent", "total", "average", "count", "number",
	"budget", "salary", "headcount",
}

var comparativeTerms = []string{
	"versus", "compare", "comparison", "difference", "better", "worse",
	"higher", "lower", "more than", "less than",
}

var definitionalTerms = []string{
	"what is", "what are", "define", "definition", "meaning", "explain",
	"describe", "overview",
}

var proceduralTerms = []string{
	"how do", "how to", "steps", "process", "procedure", "apply",
	"request", "submit",
}

// ClassifyIntent tags a normalized query with a coarse intent. Comparative
// beats quantitative beats definitional beats procedural when several match,
// so classification stays deterministic.
func ClassifyIntent(normalized string) models.Intent {
	q := " " + normalized + " "

	if containsAny(q, comparativeTerms) {
		return models.IntentComparative
	}
	if containsAny(q, quantitativeTerms) || numericHint.MatchString(normalized) {
		return models.IntentQuantitative
	}
	if containsAny(q, definitionalTerms) {
		return models.IntentDefinitional
	}
	if containsAny(q, proceduralTerms) {
		return models.IntentProcedural
	}
	return models.IntentGeneral
}

func containsAny(q string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(q, t) {
			return true
		}
	}
	return false
}
