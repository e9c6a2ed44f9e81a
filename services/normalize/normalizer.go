package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/finsolve/knowledge-gateway/models"
)

// Result is the output of normalizing one raw query.
type Result struct {
	NormalizedText string
	Variants       []string
	Intent         models.Intent
}

// Normalizer performs deterministic text cleanup, abbreviation and range
// expansion, synonym variant generation and intent tagging. It never touches
// authorization.
type Normalizer struct {
	abbreviations map[string]string
	abbrPatterns  map[string]*regexp.Regexp
	stopWords     map[string]bool
	keyTerms      map[string]bool
	synonyms      map[string]string
}

var (
	// Hyphens survive cleaning so range expansion can still see "q1-q3";
	// they are squashed to spaces afterwards.
	punctRe      = regexp.MustCompile(`[^\w\s-]`)
	spaceRe      = regexp.MustCompile(`\s+`)
	quarterRange = regexp.MustCompile(`q(\d)\s*(?:to|-)\s*q(\d)`)
)

// DefaultAbbreviations is the static expansion table for internal jargon.
func DefaultAbbreviations() map[string]string {
	return map[string]string{
		"q4":   "q4 fourth quarter",
		"q3":   "q3 third quarter",
		"q2":   "q2 second quarter",
		"q1":   "q1 first quarter",
		"hr":   "hr human resources",
		"yoy":  "year over year",
		"roi":  "return on investment",
		"kpi":  "key performance indicator",
		"fy":   "fiscal year",
		"pto":  "paid time off",
		"eng":  "engineering",
		"mktg": "marketing",
	}
}

// NewNormalizer creates a normalizer with the given abbreviation table.
func NewNormalizer(abbreviations map[string]string) *Normalizer {
	patterns := make(map[string]*regexp.Regexp, len(abbreviations))
	for abbr := range abbreviations {
		patterns[abbr] = regexp.MustCompile(`\b` + regexp.QuoteMeta(abbr) + `\b`)
	}

	return &Normalizer{
		abbreviations: abbreviations,
		abbrPatterns:  patterns,
		stopWords: map[string]bool{
			"the": true, "a": true, "an": true, "and": true, "or": true,
			"but": true, "in": true, "on": true, "at": true, "to": true,
			"for": true, "of": true, "is": true, "are": true, "was": true,
			"were": true, "what": true, "how": true, "which": true,
		},
		keyTerms: map[string]bool{
			"revenue": true, "profit": true, "expense": true, "cost": true,
			"margin": true, "growth": true, "employee": true, "salary": true,
			"intern": true, "leave": true, "policy": true, "finance": true,
			"hr": true, "engineering": true, "marketing": true,
			"quarter": true, "annual": true, "monthly": true, "year": true,
			"performance": true, "compliance": true, "procedure": true,
			"guideline": true, "budget": true, "headcount": true,
		},
		synonyms: map[string]string{
			"revenue":  "revenue income earnings",
			"profit":   "profit earnings margin",
			"cost":     "cost expense expenditure",
			"employee": "employee staff personnel",
			"intern":   "intern trainee apprentice",
			"customer": "customer client user",
			"growth":   "growth increase expansion",
		},
	}
}

// NewDefaultNormalizer creates a normalizer with the default table.
func NewDefaultNormalizer() *Normalizer {
	return NewNormalizer(DefaultAbbreviations())
}

// Normalize cleans the raw query and produces one or more variants, each of
// which is embedded separately and unioned at retrieval. Identical inputs
// always produce identical output.
func (n *Normalizer) Normalize(raw string) Result {
	q := n.cleanText(raw)
	q = n.expandRanges(q)
	q = n.stripHyphens(q)
	q = n.expandAbbreviations(q)

	variants := []string{
		q,
		n.removeStopwords(q),
		n.extractKeyTerms(q),
		n.expandSynonyms(q),
	}

	seen := make(map[string]bool, len(variants))
	deduped := make([]string, 0, len(variants))
	for _, v := range variants {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		deduped = append(deduped, v)
	}

	return Result{
		NormalizedText: q,
		Variants:       deduped,
		Intent:         ClassifyIntent(q),
	}
}

func (n *Normalizer) cleanText(q string) string {
	q = strings.ToLower(q)
	q = strings.ReplaceAll(q, "&", " and ")
	q = strings.ReplaceAll(q, "%", " percent ")
	q = strings.ReplaceAll(q, "/", " or ")
	q = strings.ReplaceAll(q, "vs.", " versus ")
	q = punctRe.ReplaceAllString(q, " ")
	q = spaceRe.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}

// expandRanges turns "q1-q3" into "q1 q2 q3" before abbreviation expansion.
func (n *Normalizer) expandRanges(q string) string {
	return quarterRange.ReplaceAllStringFunc(q, func(m string) string {
		sub := quarterRange.FindStringSubmatch(m)
		lo, _ := strconv.Atoi(sub[1])
		hi, _ := strconv.Atoi(sub[2])
		if lo > hi || hi-lo > 3 {
			return m
		}
		parts := make([]string, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			parts = append(parts, "q"+strconv.Itoa(i))
		}
		return strings.Join(parts, " ")
	})
}

// stripHyphens squashes the hyphens cleanText kept for range expansion.
func (n *Normalizer) stripHyphens(q string) string {
	q = strings.ReplaceAll(q, "-", " ")
	q = spaceRe.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}

func (n *Normalizer) expandAbbreviations(q string) string {
	for abbr, pattern := range n.abbrPatterns {
		q = pattern.ReplaceAllString(q, n.abbreviations[abbr])
	}
	return spaceRe.ReplaceAllString(q, " ")
}

func (n *Normalizer) removeStopwords(q string) string {
	words := strings.Fields(q)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !n.stopWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func (n *Normalizer) extractKeyTerms(q string) string {
	words := strings.Fields(q)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if n.keyTerms[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func (n *Normalizer) expandSynonyms(q string) string {
	words := strings.Fields(q)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if exp, ok := n.synonyms[w]; ok {
			out = append(out, exp)
		} else {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}
