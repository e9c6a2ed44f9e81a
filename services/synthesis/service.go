package synthesis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/services"
	"github.com/finsolve/knowledge-gateway/services/generation"
	"go.uber.org/zap"
)

// Fixed responses. These are the last defense against fabrication: the
// generation service is never consulted when there is nothing authorized to
// ground an answer in.
const (
	NoAuthorizedContentAnswer = "No authorized content was found for this question."
	InsufficientAnswer        = "There is insufficient authorized information to answer this question."
	citationOnlyPreamble      = "The answer service is currently unavailable. The following authorized sources matched your question:"
)

const systemPrompt = `You are a secure internal knowledge assistant.
Answer ONLY from the numbered context passages provided.
Do not guess, calculate, or use outside knowledge.
Cite the passages you use with bracketed numbers like [1].
If the context does not contain the answer, say so.`

// Citation points at one chunk the answer referenced.
type Citation struct {
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id"`
}

// Result is a synthesized answer with its citations.
type Result struct {
	AnswerText   string
	Citations    []Citation
	NoContent    bool
	CitationOnly bool
}

// Config tunes context assembly.
type Config struct {
	// MaxContextChars bounds the context block sent to the generator.
	// Chunks are included whole in rank order until the budget runs out.
	MaxContextChars int
}

// DefaultConfig returns the default synthesis configuration.
func DefaultConfig() Config {
	return Config{MaxContextChars: 6000}
}

// Synthesizer builds a bounded context block from ranked results, issues one
// generation call, and attaches one citation per chunk actually referenced.
type Synthesizer struct {
	generator generation.Generator
	cfg       Config
	logger    *zap.Logger
}

// NewSynthesizer creates a synthesizer over the generation service.
func NewSynthesizer(generator generation.Generator, cfg Config, logger *zap.Logger) *Synthesizer {
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultConfig().MaxContextChars
	}
	return &Synthesizer{
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// NoContentResult returns the fixed authorized-content-not-found response.
func NoContentResult() *Result {
	return &Result{AnswerText: NoAuthorizedContentAnswer, NoContent: true}
}

// InsufficientResult returns the fixed below-floor response.
func InsufficientResult() *Result {
	return &Result{AnswerText: InsufficientAnswer, NoContent: true}
}

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// Synthesize answers the query from the ranked results. An empty result set
// short-circuits without calling the generation service. When generation
// times out or is unavailable, the answer degrades to an explicitly labeled
// citation-only response rather than failing the request.
func (s *Synthesizer) Synthesize(ctx context.Context, query models.Query, ranked []models.RankedResult, chunks map[string]*models.DocumentChunk) (*Result, error) {
	if len(ranked) == 0 {
		return NoContentResult(), nil
	}

	included := s.buildContext(ranked, chunks)
	if len(included) == 0 {
		return NoContentResult(), nil
	}

	answer, err := s.generator.Complete(ctx, systemPrompt, s.userPrompt(query, included))
	if err != nil {
		if errors.Is(err, services.ErrGenerationTimeout) || services.GetErrorType(err) == services.ErrorTypeExternal {
			s.logger.Warn("generation unavailable, returning citation-only response",
				zap.Error(err))
			return s.citationOnly(included), nil
		}
		return nil, err
	}

	return &Result{
		AnswerText: answer,
		Citations:  s.referencedCitations(answer, included),
	}, nil
}

// buildContext selects chunks in rank order until the character budget is
// exhausted. Chunks are included whole; a chunk that would overflow the
// budget is skipped and selection continues with smaller ones.
func (s *Synthesizer) buildContext(ranked []models.RankedResult, chunks map[string]*models.DocumentChunk) []*models.DocumentChunk {
	var included []*models.DocumentChunk
	used := 0
	for _, r := range ranked {
		c, ok := chunks[r.ChunkID]
		if !ok {
			continue
		}
		if used+len(c.Text) > s.cfg.MaxContextChars {
			continue
		}
		included = append(included, c)
		used += len(c.Text)
	}
	return included
}

func (s *Synthesizer) userPrompt(query models.Query, included []*models.DocumentChunk) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, c := range included {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, c.Text)
	}
	b.WriteString("Question:\n")
	b.WriteString(query.RawText)
	return b.String()
}

// referencedCitations maps bracketed markers in the answer back to chunks.
// When the generator cites nothing explicitly, every context chunk is
// cited, since all of them informed the answer.
func (s *Synthesizer) referencedCitations(answer string, included []*models.DocumentChunk) []Citation {
	referenced := make(map[int]bool)
	for _, m := range citationMarker.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= len(included) {
			referenced[n-1] = true
		}
	}

	var citations []Citation
	if len(referenced) == 0 {
		for _, c := range included {
			citations = append(citations, Citation{DocumentID: c.SourceDocumentID, ChunkID: c.ChunkID})
		}
		return citations
	}
	for i, c := range included {
		if referenced[i] {
			citations = append(citations, Citation{DocumentID: c.SourceDocumentID, ChunkID: c.ChunkID})
		}
	}
	return citations
}

func (s *Synthesizer) citationOnly(included []*models.DocumentChunk) *Result {
	var b strings.Builder
	b.WriteString(citationOnlyPreamble)
	citations := make([]Citation, 0, len(included))
	for _, c := range included {
		fmt.Fprintf(&b, "\n- %s (%s)", c.SourceDocumentID, c.ChunkID)
		citations = append(citations, Citation{DocumentID: c.SourceDocumentID, ChunkID: c.ChunkID})
	}
	return &Result{
		AnswerText:   b.String(),
		Citations:    citations,
		CitationOnly: true,
	}
}
