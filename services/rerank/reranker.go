package rerank

import (
	"regexp"
	"sort"
	"strings"

	"github.com/finsolve/knowledge-gateway/models"
)

// TieBreak selects the representative when a near-duplicate cluster's
// highest-similarity member and most-recent member disagree.
type TieBreak string

const (
	// TieBreakSimilarity keeps the best-scoring member (default).
	TieBreakSimilarity TieBreak = "similarity"
	// TieBreakRecency keeps the most recently ingested member.
	TieBreakRecency TieBreak = "recency"
)

// Config tunes the re-ranker.
type Config struct {
	// DedupThreshold is the shingled-Jaccard similarity at or above which
	// two chunks count as near-duplicates.
	DedupThreshold float64
	// IntentBonus is the additive score bonus for intent-matching content.
	IntentBonus float64
	// TieBreak picks the dedup-cluster representative.
	TieBreak TieBreak
}

// DefaultConfig returns the default re-ranker configuration.
func DefaultConfig() Config {
	return Config{
		DedupThreshold: 0.9,
		IntentBonus:    0.05,
		TieBreak:       TieBreakSimilarity,
	}
}

// Reranker merges multi-variant candidates, collapses near-duplicates and
// reorders. Identical inputs always produce identical output order.
type Reranker struct {
	cfg Config
}

// NewReranker creates a re-ranker with the given configuration.
func NewReranker(cfg Config) *Reranker {
	if cfg.DedupThreshold <= 0 {
		cfg.DedupThreshold = 0.9
	}
	if cfg.TieBreak == "" {
		cfg.TieBreak = TieBreakSimilarity
	}
	return &Reranker{cfg: cfg}
}

type mergedCandidate struct {
	chunk      *models.DocumentChunk
	similarity float64
}

// Rerank takes the flat candidate union across query variants plus the full
// chunks they refer to, and returns at most k ranked results. Candidates
// whose chunk is missing from the lookup are dropped.
func (r *Reranker) Rerank(candidates []models.Candidate, chunks map[string]*models.DocumentChunk, intent models.Intent, k int) []models.RankedResult {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}

	// Merge across variants by chunk ID, keeping the max similarity.
	bestByID := make(map[string]float64)
	for _, c := range candidates {
		if s, ok := bestByID[c.ChunkID]; !ok || c.Similarity > s {
			bestByID[c.ChunkID] = c.Similarity
		}
	}

	merged := make([]mergedCandidate, 0, len(bestByID))
	for id, sim := range bestByID {
		chunk, ok := chunks[id]
		if !ok {
			continue
		}
		merged = append(merged, mergedCandidate{chunk: chunk, similarity: sim})
	}

	// Deterministic clustering order: similarity desc, chunk ID asc.
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].similarity != merged[j].similarity {
			return merged[i].similarity > merged[j].similarity
		}
		return merged[i].chunk.ChunkID < merged[j].chunk.ChunkID
	})

	clusters := r.cluster(merged)

	results := make([]models.RankedResult, 0, len(clusters))
	for _, cl := range clusters {
		rep := r.representative(cl)
		score := rep.similarity
		if matchesIntent(rep.chunk.Text, intent) {
			score += r.cfg.IntentBonus
		}
		results = append(results, models.RankedResult{
			ChunkID:      rep.chunk.ChunkID,
			Similarity:   rep.similarity,
			FinalScore:   score,
			DedupGroupID: cl[0].chunk.ChunkID,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// cluster greedily groups near-duplicates. Each candidate is compared to
// the first member of every existing cluster; the first match at or above
// the threshold wins.
func (r *Reranker) cluster(merged []mergedCandidate) [][]mergedCandidate {
	var clusters [][]mergedCandidate
	sets := make([]map[string]bool, 0)

	for _, mc := range merged {
		sh := shingles(mc.chunk.Text)
		placed := false
		for i := range clusters {
			if jaccard(sh, sets[i]) >= r.cfg.DedupThreshold {
				clusters[i] = append(clusters[i], mc)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []mergedCandidate{mc})
			sets = append(sets, sh)
		}
	}
	return clusters
}

// representative collapses a cluster to one member per the configured
// tie-break. Clusters arrive ordered by similarity desc, so the first
// member is the similarity winner.
func (r *Reranker) representative(cluster []mergedCandidate) mergedCandidate {
	if r.cfg.TieBreak != TieBreakRecency || len(cluster) == 1 {
		return cluster[0]
	}
	best := cluster[0]
	for _, mc := range cluster[1:] {
		if mc.chunk.CreatedAt.After(best.chunk.CreatedAt) {
			best = mc
		}
	}
	return best
}

var numberRe = regexp.MustCompile(`\d`)

// matchesIntent reports whether the chunk text carries the entity types the
// intent calls for. Quantitative and comparative intents want numeric
// content; other intents take no bonus.
func matchesIntent(text string, intent models.Intent) bool {
	switch intent {
	case models.IntentQuantitative:
		return numberRe.MatchString(text)
	case models.IntentComparative:
		return numberRe.MatchString(text) || strings.Contains(strings.ToLower(text), "than")
	default:
		return false
	}
}
