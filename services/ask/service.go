package ask

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/repositories"
	"github.com/finsolve/knowledge-gateway/services"
	"github.com/finsolve/knowledge-gateway/services/audit"
	"github.com/finsolve/knowledge-gateway/services/confidence"
	"github.com/finsolve/knowledge-gateway/services/embedding"
	"github.com/finsolve/knowledge-gateway/services/normalize"
	"github.com/finsolve/knowledge-gateway/services/permissions"
	"github.com/finsolve/knowledge-gateway/services/rerank"
	"github.com/finsolve/knowledge-gateway/services/retrieval"
	"github.com/finsolve/knowledge-gateway/services/synthesis"
	"go.uber.org/zap"
)

// Config tunes the ask pipeline.
type Config struct {
	// TopK is the number of ranked results kept for synthesis.
	TopK int
	// RetrievalTimeout bounds the index search. On expiry the request
	// fails explicitly; it never returns partial or unfiltered content.
	RetrievalTimeout time.Duration
	// GenerationTimeout bounds the generation call.
	GenerationTimeout time.Duration
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		TopK:              5,
		RetrievalTimeout:  10 * time.Second,
		GenerationTimeout: 30 * time.Second,
	}
}

// Service orchestrates one request through normalize -> resolve -> embed ->
// retrieve -> rerank -> {score, synthesize} -> audit. All per-request state
// is private to the request; the only shared mutable state it touches is
// the resolver's snapshot (read-only) and the audit channel.
type Service struct {
	normalizer  *normalize.Normalizer
	resolver    *permissions.Resolver
	embedder    embedding.Embedder
	index       retrieval.Index
	chunks      repositories.ChunkRepository
	reranker    *rerank.Reranker
	scorer      *confidence.Scorer
	synthesizer *synthesis.Synthesizer
	recorder    *audit.Recorder
	cfg         Config
	logger      *zap.Logger
}

// NewService creates the ask pipeline with all dependencies.
func NewService(
	normalizer *normalize.Normalizer,
	resolver *permissions.Resolver,
	embedder embedding.Embedder,
	index retrieval.Index,
	chunks repositories.ChunkRepository,
	reranker *rerank.Reranker,
	scorer *confidence.Scorer,
	synthesizer *synthesis.Synthesizer,
	recorder *audit.Recorder,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.RetrievalTimeout <= 0 {
		cfg.RetrievalTimeout = DefaultConfig().RetrievalTimeout
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultConfig().GenerationTimeout
	}
	return &Service{
		normalizer:  normalizer,
		resolver:    resolver,
		embedder:    embedder,
		index:       index,
		chunks:      chunks,
		reranker:    reranker,
		scorer:      scorer,
		synthesizer: synthesizer,
		recorder:    recorder,
		cfg:         cfg,
		logger:      logger,
	}
}

// Ask answers one question with content the caller's role is entitled to
// see. Authorization failures deny; availability failures surface as
// retryable errors rather than silently widening access.
func (s *Service) Ask(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.QueryText) == "" {
		return nil, services.ErrEmptyQuery
	}

	s.logger.Info("starting ask pipeline",
		zap.String("request_id", req.RequestID),
		zap.String("role", string(req.Role)))

	// Step 1: normalize. Deterministic, never touches authorization.
	norm := s.normalizer.Normalize(req.QueryText)
	query := models.Query{
		RawText:        req.QueryText,
		NormalizedText: norm.NormalizedText,
		Variants:       norm.Variants,
		Intent:         norm.Intent,
		RequesterRole:  req.Role,
		Timestamp:      time.Now(),
	}

	// Step 2: resolve the role into its access set. Unknown roles deny.
	accessSet, err := s.resolver.ResolveOrdered(req.Role)
	if err != nil {
		s.record(req, nil, models.DecisionDenied)
		return nil, err
	}
	denied := s.deniedDepartments(accessSet)

	if len(accessSet) == 0 {
		s.record(req, nil, models.DecisionNoAuthorizedContent)
		return s.noContentResponse(denied), nil
	}

	// Step 3: embed every query variant.
	vectors, err := s.embedder.Embed(ctx, query.Variants)
	if err != nil {
		s.record(req, nil, models.DecisionFailed)
		return nil, err
	}

	// Step 4: filtered nearest-neighbor search, time-bounded.
	searchCtx, cancelSearch := context.WithTimeout(ctx, s.cfg.RetrievalTimeout)
	candidates, err := s.index.Search(searchCtx, vectors, accessSet, s.cfg.TopK)
	cancelSearch()
	if err != nil {
		s.record(req, nil, models.DecisionFailed)
		return nil, err
	}

	if len(candidates) == 0 {
		s.record(req, nil, models.DecisionNoAuthorizedContent)
		return s.noContentResponse(denied), nil
	}

	// Step 5: fetch candidate chunks for dedup, scoring and synthesis.
	chunkMap, err := s.fetchChunks(ctx, candidates)
	if err != nil {
		s.record(req, nil, models.DecisionFailed)
		return nil, err
	}

	// Step 6: merge, dedup and rerank.
	ranked := s.reranker.Rerank(candidates, chunkMap, query.Intent, s.cfg.TopK)

	// Step 7: confidence floor. Below it the answer is fixed and the
	// generation service is never consulted.
	if s.scorer.BelowFloor(ranked) {
		s.record(req, nil, models.DecisionNoAuthorizedContent)
		resp := s.noContentResponse(denied)
		resp.AnswerText = synthesis.InsufficientAnswer
		return resp, nil
	}

	conf := s.scorer.Compute(ranked, chunkMap, query)

	// Step 8: synthesize, time-bounded.
	genCtx, cancelGen := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	result, err := s.synthesizer.Synthesize(genCtx, query, ranked, chunkMap)
	cancelGen()
	if err != nil {
		s.record(req, nil, models.DecisionFailed)
		return nil, err
	}

	// Step 9: fire-and-forget audit.
	cited := make([]string, 0, len(result.Citations))
	for _, c := range result.Citations {
		cited = append(cited, c.ChunkID)
	}
	decision := models.DecisionAnswered
	if result.NoContent {
		decision = models.DecisionNoAuthorizedContent
	}
	s.record(req, cited, decision)

	s.logger.Info("ask pipeline completed",
		zap.String("request_id", req.RequestID),
		zap.Int("ranked", len(ranked)),
		zap.Float64("confidence", conf),
		zap.Bool("citation_only", result.CitationOnly))

	return &Response{
		AnswerText:              result.AnswerText,
		Citations:               result.Citations,
		Confidence:              conf,
		AccessDeniedDepartments: denied,
		NoAuthorizedContent:     result.NoContent,
		CitationOnly:            result.CitationOnly,
	}, nil
}

// ValidateAccess is the pre-flight check for UI decisions.
func (s *Service) ValidateAccess(roleID models.RoleID, department models.DepartmentID) bool {
	return s.resolver.ValidateAccess(roleID, department)
}

// AccessibleDepartments lists the departments the role may read.
func (s *Service) AccessibleDepartments(roleID models.RoleID) ([]models.DepartmentID, error) {
	return s.resolver.ResolveOrdered(roleID)
}

func (s *Service) fetchChunks(ctx context.Context, candidates []models.Candidate) (map[string]*models.DocumentChunk, error) {
	ids := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if !seen[c.ChunkID] {
			seen[c.ChunkID] = true
			ids = append(ids, c.ChunkID)
		}
	}

	chunks, err := s.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, services.WrapExternal("failed to fetch candidate chunks", err)
	}

	out := make(map[string]*models.DocumentChunk, len(chunks))
	for _, c := range chunks {
		out[c.ChunkID] = c
	}
	return out, nil
}

func (s *Service) deniedDepartments(accessSet []models.DepartmentID) []models.DepartmentID {
	allowed := make(map[models.DepartmentID]bool, len(accessSet))
	for _, d := range accessSet {
		allowed[d] = true
	}
	var denied []models.DepartmentID
	for _, d := range s.resolver.KnownDepartments() {
		if !allowed[d] {
			denied = append(denied, d)
		}
	}
	sort.Slice(denied, func(i, j int) bool { return denied[i] < denied[j] })
	return denied
}

func (s *Service) noContentResponse(denied []models.DepartmentID) *Response {
	return &Response{
		AnswerText:              synthesis.NoAuthorizedContentAnswer,
		Citations:               []synthesis.Citation{},
		Confidence:              s.scorer.MinimumBand(),
		AccessDeniedDepartments: denied,
		NoAuthorizedContent:     true,
	}
}

func (s *Service) record(req Request, chunkIDs []string, decision models.AccessDecision) {
	record := models.NewAuditRecord(req.Identity, req.Role, req.QueryText, decision).
		WithChunks(chunkIDs).
		WithRequestID(req.RequestID)
	s.recorder.Record(record)
}
