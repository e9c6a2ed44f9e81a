package rerank

import "strings"

// shingleSize is the word-shingle width used for near-duplicate detection.
const shingleSize = 3

// shingles returns the set of overlapping word n-grams in the text. Texts
// shorter than the shingle width collapse to a single shingle.
func shingles(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	out := make(map[string]bool)
	if len(words) == 0 {
		return out
	}
	if len(words) < shingleSize {
		out[strings.Join(words, " ")] = true
		return out
	}
	for i := 0; i+shingleSize <= len(words); i++ {
		out[strings.Join(words[i:i+shingleSize], " ")] = true
	}
	return out
}

// jaccard computes |A∩B| / |A∪B| over two shingle sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for s := range a {
		if b[s] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
