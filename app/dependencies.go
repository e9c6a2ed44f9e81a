package app

import (
	"fmt"
	"time"

	"github.com/finsolve/knowledge-gateway/claims"
	"github.com/finsolve/knowledge-gateway/config"
	"github.com/finsolve/knowledge-gateway/middleware"
	"github.com/finsolve/knowledge-gateway/repositories"
	"github.com/finsolve/knowledge-gateway/repositories/postgres"
	"github.com/finsolve/knowledge-gateway/services/ask"
	"github.com/finsolve/knowledge-gateway/services/audit"
	"github.com/finsolve/knowledge-gateway/services/confidence"
	"github.com/finsolve/knowledge-gateway/services/embedding"
	"github.com/finsolve/knowledge-gateway/services/generation"
	"github.com/finsolve/knowledge-gateway/services/normalize"
	"github.com/finsolve/knowledge-gateway/services/permissions"
	"github.com/finsolve/knowledge-gateway/services/rerank"
	"github.com/finsolve/knowledge-gateway/services/retrieval"
	"github.com/finsolve/knowledge-gateway/services/synthesis"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	AuditRecords repositories.AuditRepository
	Chunks       repositories.ChunkRepository

	// Services
	Resolver *permissions.Resolver
	Recorder *audit.Recorder
	Ask      *ask.Service

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	db, err := postgres.NewDB(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.DB = db

	deps.AuditRecords = postgres.NewAuditRepository(db, logger)
	deps.Chunks = postgres.NewChunkRepository(db, logger)

	graph, err := permissions.LoadGraphFile(cfg.RoleGraph.Path, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to load role graph: %w", err)
	}
	deps.Resolver = permissions.NewResolver(graph, logger)

	deps.Recorder = audit.NewRecorder(deps.AuditRecords, logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})

	deps.Ask = buildAskService(cfg, deps, logger)

	validator := claims.NewValidator([]byte(cfg.Auth.SigningKey))
	deps.AuthMiddleware = middleware.NewAuthMiddleware(validator, logger)

	logger.Info("all dependencies initialized successfully",
		zap.Uint64("role_graph_generation", deps.Resolver.Generation()))
	return deps, nil
}

func buildAskService(cfg *config.Config, deps *Dependencies, logger *zap.Logger) *ask.Service {
	embedder := embedding.NewHTTPClient(embedding.Config{
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	}, logger)

	generator := generation.NewHTTPClient(generation.Config{
		BaseURL:     cfg.Generation.BaseURL,
		APIKey:      cfg.Generation.APIKey,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Timeout:     cfg.Generation.Timeout,
	}, logger)

	index := retrieval.NewStoreIndex(deps.Chunks, cfg.Retrieval.OverFetch, logger)

	rerankCfg := rerank.DefaultConfig()
	rerankCfg.DedupThreshold = cfg.Retrieval.DedupThreshold
	if cfg.Retrieval.DedupTieBreak == "recency" {
		rerankCfg.TieBreak = rerank.TieBreakRecency
	}

	scorerCfg := confidence.DefaultConfig()
	scorerCfg.SimilarityFloor = cfg.Retrieval.SimilarityFloor

	synthesizer := synthesis.NewSynthesizer(generator, synthesis.DefaultConfig(), logger)

	return ask.NewService(
		normalize.NewDefaultNormalizer(),
		deps.Resolver,
		embedder,
		index,
		deps.Chunks,
		rerank.NewReranker(rerankCfg),
		confidence.NewScorer(scorerCfg),
		synthesizer,
		deps.Recorder,
		ask.Config{
			TopK:              cfg.Retrieval.TopK,
			RetrievalTimeout:  cfg.Retrieval.RetrievalTimeout,
			GenerationTimeout: cfg.Generation.Timeout,
		},
		logger,
	)
}

// Start launches background workers.
func (d *Dependencies) Start() error {
	return d.Recorder.Start()
}

// Shutdown gracefully closes all dependencies.
func (d *Dependencies) Shutdown(timeout time.Duration) error {
	var firstErr error

	if err := d.Recorder.Stop(timeout); err != nil {
		d.Logger.Error("audit recorder shutdown failed", zap.Error(err))
		firstErr = err
	}

	if err := d.DB.Close(); err != nil {
		d.Logger.Error("database close failed", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
