package confidence

import (
	"regexp"

	"github.com/finsolve/knowledge-gateway/models"
)

// Config tunes the confidence scorer.
type Config struct {
	// SimilarityFloor is the minimum top-1 score an authorized candidate
	// must clear; below it, confidence is forced to the minimum band and
	// the synthesizer answers "insufficient authorized information".
	SimilarityFloor float64
	// MinimumBand is the confidence value reported when nothing clears
	// the floor.
	MinimumBand float64
}

// DefaultConfig returns the default scorer configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityFloor: 0.25,
		MinimumBand:     5,
	}
}

// Scorer derives an advisory confidence number in [0,100] from retrieval
// statistics. It never gates access.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer with the given configuration.
func NewScorer(cfg Config) *Scorer {
	if cfg.SimilarityFloor <= 0 {
		cfg.SimilarityFloor = DefaultConfig().SimilarityFloor
	}
	return &Scorer{cfg: cfg}
}

var (
	numberRe   = regexp.MustCompile(`\d`)
	currencyRe = regexp.MustCompile(`[$€£₹]|\b(usd|eur|inr|dollars?|euros?)\b`)
	dateRe     = regexp.MustCompile(`\b(19|20)\d{2}\b|\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b|\bq[1-4]\b`)
)

// BelowFloor reports whether no ranked result clears the similarity floor.
// The check uses raw similarity; the intent bonus in FinalScore must not
// lift a weak match over the floor.
func (s *Scorer) BelowFloor(ranked []models.RankedResult) bool {
	for _, r := range ranked {
		if r.Similarity >= s.cfg.SimilarityFloor {
			return false
		}
	}
	return true
}

// MinimumBand returns the forced-minimum confidence value.
func (s *Scorer) MinimumBand() float64 {
	return s.cfg.MinimumBand
}

// Compute combines top-1 similarity, top-k spread, department diversity and
// intent-required entity presence into a [0,100] confidence value. The
// chunks map supplies text and department for the ranked results.
func (s *Scorer) Compute(ranked []models.RankedResult, chunks map[string]*models.DocumentChunk, query models.Query) float64 {
	if s.BelowFloor(ranked) {
		return s.cfg.MinimumBand
	}

	top1 := ranked[0].FinalScore
	if top1 > 1 {
		top1 = 1
	}

	// Up to 50 points for raw top-1 similarity.
	score := top1 * 50

	// Up to 20 points for a clear leader. A tight cluster at the top means
	// the index could not distinguish candidates, which lowers confidence.
	if len(ranked) > 1 {
		lead := ranked[0].FinalScore - ranked[1].FinalScore
		spread := lead * 200
		if spread > 20 {
			spread = 20
		}
		score += spread
	} else {
		score += 10
	}

	// Up to 15 points for corroboration across departments and documents.
	depts := make(map[models.DepartmentID]bool)
	docs := make(map[string]bool)
	for _, r := range ranked {
		if c, ok := chunks[r.ChunkID]; ok {
			depts[c.DepartmentTag] = true
			docs[c.SourceDocumentID] = true
		}
	}
	diversity := float64(len(depts)-1)*5 + float64(len(docs)-1)*2.5
	if diversity > 15 {
		diversity = 15
	}
	if diversity > 0 {
		score += diversity
	}

	// Up to 15 points when the top results carry the entity types the
	// intent requires.
	score += s.entityScore(ranked, chunks, query.Intent)

	if score > 100 {
		score = 100
	}
	if score < s.cfg.MinimumBand {
		score = s.cfg.MinimumBand
	}
	return score
}

func (s *Scorer) entityScore(ranked []models.RankedResult, chunks map[string]*models.DocumentChunk, intent models.Intent) float64 {
	if intent != models.IntentQuantitative && intent != models.IntentComparative {
		// No specific entity requirement; grant a neutral half score.
		return 7.5
	}

	limit := len(ranked)
	if limit > 3 {
		limit = 3
	}
	for _, r := range ranked[:limit] {
		c, ok := chunks[r.ChunkID]
		if !ok {
			continue
		}
		if numberRe.MatchString(c.Text) || currencyRe.MatchString(c.Text) || dateRe.MatchString(c.Text) {
			return 15
		}
	}
	return 0
}
