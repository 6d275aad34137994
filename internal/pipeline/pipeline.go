// Package pipeline composes chunking, embedding, retrieval and reranking
// into the public search and ingestion operations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/cvsearchd/internal/chunker"
	"github.com/fyrsmithlabs/cvsearchd/internal/docstore"
	"github.com/fyrsmithlabs/cvsearchd/internal/embeddings"
	"github.com/fyrsmithlabs/cvsearchd/internal/logging"
	"github.com/fyrsmithlabs/cvsearchd/internal/reranker"
	"github.com/fyrsmithlabs/cvsearchd/internal/retriever"
)

// ErrInvalidInput indicates a caller mistake: empty query, non-positive
// limit, or a document with no indexable content. Never retried.
var ErrInvalidInput = errors.New("invalid input")

// Config holds pipeline tuning knobs.
type Config struct {
	// ChunkSize is the default token window per chunk. Default 500.
	ChunkSize int `koanf:"chunk_size"`

	// TopK is the first-stage candidate list size. Default 25.
	TopK int `koanf:"top_k"`

	// RelevanceThreshold drops results scored below it. Default 0.02.
	RelevanceThreshold float64 `koanf:"relevance_threshold"`

	// QueryCacheSize bounds the query-embedding LRU cache. Default 256.
	QueryCacheSize int `koanf:"query_cache_size"`

	// IngestConcurrency bounds concurrent embedding batches during
	// ingestion. Default 4.
	IngestConcurrency int `koanf:"ingest_concurrency"`

	// IngestBatchSize is the number of chunks embedded per batch call.
	// Default 16.
	IngestBatchSize int `koanf:"ingest_batch_size"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = chunker.DefaultWindowSize
	}
	if c.TopK == 0 {
		c.TopK = retriever.DefaultTopK
	}
	if c.RelevanceThreshold == 0 {
		c.RelevanceThreshold = 0.02
	}
	if c.QueryCacheSize == 0 {
		c.QueryCacheSize = 256
	}
	if c.IngestConcurrency == 0 {
		c.IngestConcurrency = 4
	}
	if c.IngestBatchSize == 0 {
		c.IngestBatchSize = 16
	}
}

// Result is one search hit: the chunk's public projection with its final
// relevance score.
type Result struct {
	ID         string  `json:"id"`
	SourceName string  `json:"source_name"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Relevance  float64 `json:"relevance_score"`
}

// Pipeline is the retrieval orchestrator.
//
// Each search is a single request-scoped flow: it reads a store snapshot,
// embeds the query, retrieves candidates, reranks and filters. Concurrent
// searches are independent; the only shared mutable state is the store,
// which writers keep consistent for readers. A search and a concurrent
// ingestion have no ordering guarantee between them.
type Pipeline struct {
	config   Config
	store    docstore.Store
	embedder embeddings.Provider
	reranker reranker.Reranker
	logger   *logging.Logger
	metrics  *Metrics

	// queryCache memoizes query embeddings. Entries stay valid for the
	// process lifetime because the provider is fixed at startup.
	queryCache *lru.Cache[string, []float32]
}

// New creates a pipeline over the given collaborators.
func New(config Config, store docstore.Store, embedder embeddings.Provider, rr reranker.Reranker, logger *logging.Logger) (*Pipeline, error) {
	if store == nil || embedder == nil || rr == nil {
		return nil, fmt.Errorf("store, embedder and reranker are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	config.ApplyDefaults()

	cache, err := lru.New[string, []float32](config.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}

	return &Pipeline{
		config:     config,
		store:      store,
		embedder:   embedder,
		reranker:   rr,
		logger:     logger,
		metrics:    NewMetrics(logger.Underlying()),
		queryCache: cache,
	}, nil
}

// Search answers a free-text query with up to limit relevance-ranked chunks.
//
// An empty store and a query whose results all fall under the relevance
// threshold both return an empty list, not an error. An embedding failure is
// unrecoverable for the search and propagates; reranker failures are
// absorbed by the reranker's own fallback.
func (p *Pipeline) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	start := time.Now()
	var searchErr error
	defer func() {
		p.metrics.RecordSearch(ctx, time.Since(start), searchErr)
	}()

	if strings.TrimSpace(query) == "" {
		searchErr = fmt.Errorf("%w: query must not be empty", ErrInvalidInput)
		return nil, searchErr
	}
	if limit <= 0 {
		searchErr = fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidInput, limit)
		return nil, searchErr
	}

	chunks, err := p.store.GetAll(ctx)
	if err != nil {
		searchErr = fmt.Errorf("loading chunks: %w", err)
		return nil, searchErr
	}
	if len(chunks) == 0 {
		// No documents indexed is a normal state.
		return []Result{}, nil
	}

	queryVec, err := p.embedQuery(ctx, query)
	if err != nil {
		searchErr = err
		return nil, searchErr
	}

	candidates, err := retriever.Retrieve(queryVec, chunks, p.config.TopK)
	if err != nil {
		searchErr = err
		return nil, searchErr
	}

	rerankIn := make([]reranker.Candidate, len(candidates))
	for i, c := range candidates {
		rerankIn[i] = reranker.Candidate{
			ID:         c.Chunk.ID,
			Content:    c.Chunk.Content,
			Embedding:  c.Chunk.Embedding,
			Similarity: c.Similarity,
		}
	}

	ranked, err := p.reranker.Rerank(ctx, query, rerankIn, limit)
	if err != nil {
		searchErr = fmt.Errorf("reranking: %w", err)
		return nil, searchErr
	}

	byID := make(map[string]docstore.Chunk, len(candidates))
	for _, c := range candidates {
		byID[c.Chunk.ID] = c.Chunk
	}

	results := make([]Result, 0, len(ranked))
	for _, r := range ranked {
		if r.Relevance < p.config.RelevanceThreshold {
			continue
		}
		chunk := byID[r.ID]
		results = append(results, Result{
			ID:         chunk.ID,
			SourceName: chunk.SourceName,
			Content:    chunk.Content,
			ChunkIndex: chunk.ChunkIndex,
			Relevance:  r.Relevance,
		})
	}

	p.logger.Debug(ctx, "search completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// embedQuery returns the query embedding, from cache when possible.
func (p *Pipeline) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if vec, ok := p.queryCache.Get(query); ok {
		p.metrics.RecordCacheHit(ctx)
		return vec, nil
	}

	vec, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	p.queryCache.Add(query, vec)
	return vec, nil
}

// IngestDocument chunks, embeds and stores a document, replacing any chunks
// previously indexed under the same document ID. It returns the number of
// chunks indexed.
func (p *Pipeline) IngestDocument(ctx context.Context, documentID, filename, content string, chunkSize int) (int, error) {
	if documentID == "" {
		return 0, fmt.Errorf("%w: document ID must not be empty", ErrInvalidInput)
	}
	if chunkSize == 0 {
		chunkSize = p.config.ChunkSize
	}

	ck, err := chunker.New(chunkSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	drafts, err := ck.Split(documentID, filename, content)
	if err != nil {
		return 0, err
	}
	if len(drafts) == 0 {
		return 0, fmt.Errorf("%w: document has no indexable content", ErrInvalidInput)
	}

	vectors, err := p.embedDrafts(ctx, drafts)
	if err != nil {
		return 0, err
	}

	// Chunks are replaced as a unit: delete the previous set only after
	// embedding succeeded, so a provider failure leaves the old version
	// searchable.
	if _, err := p.store.DeleteByParent(ctx, documentID); err != nil {
		return 0, fmt.Errorf("replacing document %s: %w", documentID, err)
	}

	now := time.Now().UTC()
	for i := range drafts {
		drafts[i].ID = uuid.NewString()
		drafts[i].CreatedAt = now
		drafts[i].Embedding = vectors[i]

		if err := p.store.Insert(ctx, drafts[i]); err != nil {
			// Leave no half-indexed document behind.
			if _, delErr := p.store.DeleteByParent(ctx, documentID); delErr != nil {
				p.logger.Warn(ctx, "failed to roll back partial ingestion",
					zap.String("document_id", documentID),
					zap.Error(delErr),
				)
			}
			return 0, fmt.Errorf("inserting chunk %d of document %s: %w", i, documentID, err)
		}
	}

	p.metrics.RecordIngest(ctx, len(drafts))
	p.logger.Info(ctx, "document ingested",
		zap.String("document_id", documentID),
		zap.String("source", filename),
		zap.Int("chunks", len(drafts)),
	)
	return len(drafts), nil
}

// embedDrafts embeds draft contents in bounded concurrent batches,
// preserving draft order in the returned vectors.
func (p *Pipeline) embedDrafts(ctx context.Context, drafts []docstore.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(drafts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.IngestConcurrency)

	for start := 0; start < len(drafts); start += p.config.IngestBatchSize {
		end := start + p.config.IngestBatchSize
		if end > len(drafts) {
			end = len(drafts)
		}
		start, end := start, end

		g.Go(func() error {
			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = drafts[i].Content
			}
			batch, err := p.embedder.EmbedDocuments(gctx, texts)
			if err != nil {
				return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("%w: got %d vectors for %d chunks", embeddings.ErrProviderResponse, len(batch), end-start)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// DeleteDocument removes all chunks of a document. It reports true if at
// least one chunk was removed.
func (p *Pipeline) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	if documentID == "" {
		return false, fmt.Errorf("%w: document ID must not be empty", ErrInvalidInput)
	}

	deleted, err := p.store.DeleteByParent(ctx, documentID)
	if err != nil {
		return false, err
	}

	p.logger.Info(ctx, "document deleted",
		zap.String("document_id", documentID),
		zap.Int("chunks", deleted),
	)
	return deleted > 0, nil
}
