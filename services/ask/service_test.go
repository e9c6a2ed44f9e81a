package ask

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/services"
	"github.com/finsolve/knowledge-gateway/services/audit"
	"github.com/finsolve/knowledge-gateway/services/confidence"
	"github.com/finsolve/knowledge-gateway/services/normalize"
	"github.com/finsolve/knowledge-gateway/services/permissions"
	"github.com/finsolve/knowledge-gateway/services/rerank"
	"github.com/finsolve/knowledge-gateway/services/retrieval"
	"github.com/finsolve/knowledge-gateway/services/synthesis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fixedEmbedder embeds every text to the same vector.
type fixedEmbedder struct {
	vector []float32
	err    error
}

func (f *fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fixedEmbedder) Dimension() int { return len(f.vector) }

// failingIndex always errors.
type failingIndex struct{}

func (failingIndex) Search(ctx context.Context, vectors [][]float32, accessSet []models.DepartmentID, k int) ([]models.Candidate, error) {
	return nil, services.ErrRetrievalUnavailable
}

// chunkStore backs ChunkRepository with a fixed chunk set.
type chunkStore struct {
	chunks map[string]*models.DocumentChunk
}

func (s *chunkStore) SearchDepartment(ctx context.Context, vector []float32, department models.DepartmentID, limit int) ([]models.Candidate, error) {
	return nil, errors.New("not used in tests")
}

func (s *chunkStore) GetByIDs(ctx context.Context, chunkIDs []string) ([]*models.DocumentChunk, error) {
	var out []*models.DocumentChunk
	for _, id := range chunkIDs {
		if c, ok := s.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// cannedGenerator returns a fixed answer.
type cannedGenerator struct {
	answer string
	err    error
	calls  int
	mu     sync.Mutex
}

func (g *cannedGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

// sinkRepo is an in-memory audit sink.
type sinkRepo struct {
	mu      sync.Mutex
	records []*models.AuditRecord
}

func (s *sinkRepo) Insert(ctx context.Context, record *models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *sinkRepo) List(ctx context.Context, limit, offset int) ([]*models.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.AuditRecord(nil), s.records...), nil
}

func (s *sinkRepo) lastDecision() models.AccessDecision {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return ""
	}
	return s.records[len(s.records)-1].Decision
}

type fixture struct {
	service  *Service
	sink     *sinkRepo
	recorder *audit.Recorder
	gen      *cannedGenerator
}

func testChunks() []*models.DocumentChunk {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*models.DocumentChunk{
		{
			ChunkID:          "fin-1",
			Text:             "quarterly revenue reached 4.2 million dollars with a margin of 18 percent",
			Embedding:        []float32{1, 0},
			DepartmentTag:    models.DepartmentFinance,
			SourceDocumentID: "doc-finance",
			CreatedAt:        base,
		},
		{
			ChunkID:          "fin-2",
			Text:             "operating expenses declined across the second half of the fiscal year",
			Embedding:        []float32{0.9, 0.1},
			DepartmentTag:    models.DepartmentFinance,
			SourceDocumentID: "doc-finance",
			CreatedAt:        base,
		},
		{
			ChunkID:          "gen-1",
			Text:             "the cafeteria menu rotates weekly and is published every monday morning",
			Embedding:        []float32{0, 1},
			DepartmentTag:    models.DepartmentGeneral,
			SourceDocumentID: "doc-handbook",
			CreatedAt:        base,
		},
	}
}

func newFixture(t *testing.T, index retrieval.Index, gen *cannedGenerator) *fixture {
	t.Helper()
	logger := zap.NewNop()

	graph, err := permissions.BuildGraph(permissions.GraphConfig{
		RootRole: "admin",
		Departments: []models.DepartmentID{
			models.DepartmentFinance,
			models.DepartmentHR,
			models.DepartmentGeneral,
		},
		Roles: []models.Role{
			{ID: "employee", Grants: []models.DepartmentID{models.DepartmentGeneral}},
			{ID: "finance_employee", Parents: []models.RoleID{"employee"}, Grants: []models.DepartmentID{models.DepartmentFinance}},
			{ID: "restricted"},
			{ID: "admin"},
		},
	}, 1)
	require.NoError(t, err)

	chunks := make(map[string]*models.DocumentChunk)
	for _, c := range testChunks() {
		chunks[c.ChunkID] = c
	}

	sink := &sinkRepo{}
	recorder := audit.NewRecorder(sink, logger, audit.Config{BufferSize: 100, WorkerCount: 1})
	require.NoError(t, recorder.Start())

	service := NewService(
		normalize.NewDefaultNormalizer(),
		permissions.NewResolver(graph, logger),
		&fixedEmbedder{vector: []float32{1, 0}},
		index,
		&chunkStore{chunks: chunks},
		rerank.NewReranker(rerank.DefaultConfig()),
		confidence.NewScorer(confidence.DefaultConfig()),
		synthesis.NewSynthesizer(gen, synthesis.DefaultConfig(), logger),
		recorder,
		DefaultConfig(),
		logger,
	)

	return &fixture{service: service, sink: sink, recorder: recorder, gen: gen}
}

func (f *fixture) drain(t *testing.T) {
	t.Helper()
	require.NoError(t, f.recorder.Stop(5*time.Second))
}

func defaultIndex() retrieval.Index {
	return retrieval.NewMemoryIndex(testChunks(), 3)
}

func TestAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("empty query is rejected", func(t *testing.T) {
		f := newFixture(t, defaultIndex(), &cannedGenerator{answer: "x"})
		defer f.drain(t)

		_, err := f.service.Ask(ctx, Request{Identity: "u", Role: "employee", QueryText: "   "})
		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("unknown role denies and audits the denial", func(t *testing.T) {
		f := newFixture(t, defaultIndex(), &cannedGenerator{answer: "x"})

		_, err := f.service.Ask(ctx, Request{Identity: "u", Role: "contractor", QueryText: "revenue?"})
		require.Error(t, err)
		assert.True(t, services.IsUnauthorizedError(err))

		f.drain(t)
		assert.Equal(t, models.DecisionDenied, f.sink.lastDecision())
	})

	t.Run("authorized question is answered with citations", func(t *testing.T) {
		f := newFixture(t, defaultIndex(), &cannedGenerator{answer: "Revenue reached 4.2 million [1]."})

		resp, err := f.service.Ask(ctx, Request{
			Identity:  "alice",
			Role:      "finance_employee",
			QueryText: "what was the quarterly revenue",
			RequestID: "req-1",
		})
		require.NoError(t, err)

		assert.False(t, resp.NoAuthorizedContent)
		assert.Equal(t, "Revenue reached 4.2 million [1].", resp.AnswerText)
		require.NotEmpty(t, resp.Citations)
		for _, c := range resp.Citations {
			assert.NotEqual(t, "gen-1", c.ChunkID, "cited chunk outside strongest match set")
		}
		assert.Greater(t, resp.Confidence, 5.0)
		assert.LessOrEqual(t, resp.Confidence, 100.0)
		assert.Contains(t, resp.AccessDeniedDepartments, models.DepartmentHR)
		assert.NotContains(t, resp.AccessDeniedDepartments, models.DepartmentFinance)

		f.drain(t)
		require.Len(t, f.sink.records, 1)
		record := f.sink.records[0]
		assert.Equal(t, models.DecisionAnswered, record.Decision)
		assert.Equal(t, "alice", record.RequesterIdentity)
		assert.Equal(t, "req-1", record.RequestID)
		assert.NotEmpty(t, record.AccessedChunkIDs)
	})

	t.Run("role without relevant content gets the insufficient answer", func(t *testing.T) {
		// employee only sees general; the general chunk is orthogonal to
		// the query vector, so nothing clears the similarity floor.
		f := newFixture(t, defaultIndex(), &cannedGenerator{answer: "x"})

		resp, err := f.service.Ask(ctx, Request{
			Identity:  "bob",
			Role:      "employee",
			QueryText: "what was the quarterly revenue",
		})
		require.NoError(t, err)

		assert.True(t, resp.NoAuthorizedContent)
		assert.Equal(t, synthesis.InsufficientAnswer, resp.AnswerText)
		assert.Empty(t, resp.Citations)
		assert.Equal(t, 5.0, resp.Confidence)
		assert.Zero(t, f.gen.calls, "generation must not run below the floor")

		f.drain(t)
		assert.Equal(t, models.DecisionNoAuthorizedContent, f.sink.lastDecision())
	})

	t.Run("role with no grants gets the fixed no-content answer", func(t *testing.T) {
		f := newFixture(t, defaultIndex(), &cannedGenerator{answer: "x"})

		resp, err := f.service.Ask(ctx, Request{Identity: "c", Role: "restricted", QueryText: "anything at all"})
		require.NoError(t, err)
		assert.True(t, resp.NoAuthorizedContent)
		assert.Equal(t, synthesis.NoAuthorizedContentAnswer, resp.AnswerText)
		assert.Empty(t, resp.Citations)
		assert.Zero(t, f.gen.calls)

		f.drain(t)
		assert.Equal(t, models.DecisionNoAuthorizedContent, f.sink.lastDecision())
	})

	t.Run("retrieval failure fails the request and audits it", func(t *testing.T) {
		f := newFixture(t, failingIndex{}, &cannedGenerator{answer: "x"})

		_, err := f.service.Ask(ctx, Request{Identity: "u", Role: "finance_employee", QueryText: "revenue?"})
		require.Error(t, err)
		assert.True(t, services.IsRetryable(err))

		f.drain(t)
		assert.Equal(t, models.DecisionFailed, f.sink.lastDecision())
	})

	t.Run("generation failure degrades to citation-only", func(t *testing.T) {
		f := newFixture(t, defaultIndex(), &cannedGenerator{err: services.ErrGenerationUnavailable})

		resp, err := f.service.Ask(ctx, Request{Identity: "u", Role: "finance_employee", QueryText: "what was the quarterly revenue"})
		require.NoError(t, err)
		assert.True(t, resp.CitationOnly)
		assert.NotEmpty(t, resp.Citations)

		f.drain(t)
		assert.Equal(t, models.DecisionAnswered, f.sink.lastDecision())
	})

	t.Run("repeated identical requests give identical responses", func(t *testing.T) {
		f := newFixture(t, defaultIndex(), &cannedGenerator{answer: "Stable answer [1]."})
		defer f.drain(t)

		req := Request{Identity: "u", Role: "finance_employee", QueryText: "what was the quarterly revenue"}
		first, err := f.service.Ask(ctx, req)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := f.service.Ask(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})
}

func TestAccessPassthroughs(t *testing.T) {
	f := newFixture(t, defaultIndex(), &cannedGenerator{answer: "x"})
	defer f.drain(t)

	assert.True(t, f.service.ValidateAccess("finance_employee", models.DepartmentFinance))
	assert.False(t, f.service.ValidateAccess("employee", models.DepartmentFinance))

	depts, err := f.service.AccessibleDepartments("finance_employee")
	require.NoError(t, err)
	assert.Contains(t, depts, models.DepartmentFinance)
	assert.Contains(t, depts, models.DepartmentGeneral)

	_, err = f.service.AccessibleDepartments("contractor")
	assert.Error(t, err)
}
