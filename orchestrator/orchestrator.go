package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/ragline/agentic"
	"github.com/sweetpotato0/ragline/document"
	"github.com/sweetpotato0/ragline/embedder"
	"github.com/sweetpotato0/ragline/history"
	"github.com/sweetpotato0/ragline/pipeline"
	"github.com/sweetpotato0/ragline/pkg/logging"
	"github.com/sweetpotato0/ragline/pkg/telemetry"
)

// Citation references a final result position back to its source.
type Citation struct {
	Index       int    `json:"index"`
	DocumentID  string `json:"document_id"`
	ChunkIndex  int    `json:"chunk_index"`
	SourceTitle string `json:"source_title,omitempty"`
}

// Trace is the diagnostic snapshot of one retrieval call.
type Trace struct {
	Query     string              `json:"query"`
	Embedding *embedder.Embedding `json:"embedding,omitempty"`
	Results   []pipeline.Result   `json:"results"`
	TopK      int                 `json:"top_k"`
	Timestamp time.Time           `json:"timestamp"`
}

// RagResult is the orchestrator's return value: the assembled context block,
// its citations, the raw results, the diagnostic trace, and any conflicts
// detected along the way.
type RagResult struct {
	Context   string             `json:"context"`
	Citations []Citation         `json:"citations"`
	Results   []pipeline.Result  `json:"results"`
	Trace     Trace              `json:"trace"`
	Conflicts []agentic.Conflict `json:"conflicts,omitempty"`
}

// Orchestrator sequences the full retrieval flow: embed once, retrieve via
// the multi-step reasoner and the primary pipeline, validate, resolve
// conflicts, detect knowledge gaps, fill from the external gateway, and
// assemble the citation-backed context.
type Orchestrator struct {
	cfg        *Config
	embedder   *pipeline.Embedder
	vec        pipeline.Search
	lex        pipeline.Search
	scorer     pipeline.BM25Scorer
	decomposer agentic.Decomposer
	validator  agentic.Validator
	resolver   agentic.ConflictResolver
	gateway    agentic.Gateway
	historian  history.Repository
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Deps groups the collaborators the orchestrator sequences. Embedder and
// Vector are required; everything else degrades gracefully when nil.
type Deps struct {
	Embedder   *pipeline.Embedder
	Vector     pipeline.Search
	Lexical    pipeline.Search
	BM25Scorer pipeline.BM25Scorer
	Decomposer agentic.Decomposer
	Validator  agentic.Validator
	Resolver   agentic.ConflictResolver
	Gateway    agentic.Gateway
	History    history.Repository
}

// New creates an orchestrator.
func New(deps Deps, opts ...Option) (*Orchestrator, error) {
	if deps.Embedder == nil {
		return nil, fmt.Errorf("orchestrator: embedder is required")
	}
	if deps.Vector == nil {
		return nil, fmt.Errorf("orchestrator: vector pipeline is required")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	o := &Orchestrator{
		cfg:        cfg,
		embedder:   deps.Embedder,
		vec:        deps.Vector,
		lex:        deps.Lexical,
		scorer:     deps.BM25Scorer,
		decomposer: deps.Decomposer,
		validator:  deps.Validator,
		resolver:   deps.Resolver,
		gateway:    deps.Gateway,
		historian:  deps.History,
		logger:     logging.WithComponent("orchestrator"),
		tracer:     otel.Tracer("ragline/orchestrator"),
	}
	if o.decomposer == nil {
		o.decomposer = agentic.NewHeuristicDecomposer(0)
	}
	if o.validator == nil {
		o.validator = agentic.NewSourceValidator()
	}
	if o.resolver == nil {
		o.resolver = agentic.NewHeuristicResolver()
	}
	return o, nil
}

// Retrieve runs the full retrieval pipeline for one query.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, opts ...RetrieveOption) (result *RagResult, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("orchestrator: query cannot be empty")
	}
	callOpts := defaultRetrieveOptions()
	for _, opt := range opts {
		opt(&callOpts)
	}

	ctx, span := o.tracer.Start(ctx, "rag.retrieve",
		trace.WithAttributes(
			attribute.Int("rag.top_k", callOpts.TopK),
			attribute.Bool("rag.hybrid", callOpts.HybridSearch),
		),
	)
	defer func() { telemetry.End(span, err) }()

	// Embed once; every sub-pipeline below reuses this embedding. There is
	// no retrieval without a query vector, so this is the one fatal stage.
	queryEmb, err := o.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	primary := o.buildPrimary(callOpts)
	q := pipeline.Query{
		Text:      query,
		Embedding: &queryEmb,
		TopK:      callOpts.TopK,
		Filters:   callOpts.Filters,
	}

	merged, err := o.gather(ctx, primary, q)
	if err != nil {
		return nil, err
	}

	validated := o.validator.Validate(ctx, merged)
	resolution, err := o.resolver.Resolve(ctx, validated)
	if err != nil {
		o.logger.Warn("conflict resolution failed, keeping validated set", "error", err)
		resolution = agentic.Resolution{Resolved: validated}
	}

	candidates := make([]pipeline.Result, 0, callOpts.TopK)
	for _, chunk := range resolution.Resolved {
		candidates = append(candidates, chunk.Result)
		if len(candidates) == callOpts.TopK {
			break
		}
	}

	gap := o.detectGap(candidates, callOpts.TopK)
	if gap {
		span.SetAttributes(attribute.Bool("rag.gap_detected", true))
		candidates = o.fillGap(ctx, query, candidates, callOpts.TopK)
	}

	final := sortForContext(candidates)
	if o.cfg.DiversifyLambda > 0 {
		final = pipeline.Diversify(queryEmb.Values, final, o.cfg.DiversifyLambda, callOpts.TopK)
	}
	contextBlock, citations := buildContext(final)

	result = &RagResult{
		Context:   contextBlock,
		Citations: citations,
		Results:   final,
		Trace: Trace{
			Query:     query,
			Embedding: &queryEmb,
			Results:   final,
			TopK:      callOpts.TopK,
			Timestamp: time.Now(),
		},
		Conflicts: resolution.Conflicts,
	}

	o.logHistory(query, callOpts, final, citations, gap)
	return result, nil
}

// buildPrimary assembles the per-call primary pipeline from the configured
// building blocks.
func (o *Orchestrator) buildPrimary(opts RetrieveOptions) pipeline.Search {
	base := o.vec
	if opts.HybridSearch && o.lex != nil {
		vectorWeight, lexicalWeight := float32(1), float32(1)
		if opts.HybridWeight != nil {
			vectorWeight = *opts.HybridWeight
			lexicalWeight = 1 - *opts.HybridWeight
		}
		base = pipeline.NewHybridPipeline(o.vec, o.lex, o.embedder,
			pipeline.WithRRFConstant(o.cfg.RRFConstant),
			pipeline.WithHybridWeights(vectorWeight, lexicalWeight),
		)
	}
	if o.cfg.RerankerEnabled {
		base = pipeline.NewRerankedPipeline(base, o.scorer, o.embedder,
			pipeline.WithRerankEnabled(true),
			pipeline.WithRerankWeights(o.cfg.RerankBM25Weight, o.cfg.RerankSemantic),
			pipeline.WithMinScore(opts.SimilarityThreshold),
		)
	}
	return base
}

// gather merges the multi-step reasoner's results with the primary search,
// keeping the maximum score per chunk.
func (o *Orchestrator) gather(ctx context.Context, primary pipeline.Search, q pipeline.Query) ([]pipeline.Result, error) {
	reasoner := agentic.NewMultiStepReasoner(o.decomposer, primary, agentic.WithStepTopK(o.cfg.StepTopK))
	stepResults, err := reasoner.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}
	primaryResults, err := primary.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return agentic.MergeByMaxScore(append(stepResults, primaryResults...)), nil
}

// detectGap reports whether the candidate set leaves the query
// under-covered.
func (o *Orchestrator) detectGap(candidates []pipeline.Result, topK int) bool {
	if len(candidates) == 0 {
		return true
	}
	var maxScore float32
	for _, res := range candidates {
		if res.Score > maxScore {
			maxScore = res.Score
		}
	}
	if maxScore < o.cfg.RelevanceThreshold {
		return true
	}
	if topK > 0 && float32(len(candidates))/float32(topK) < o.cfg.CoverageThreshold {
		return true
	}
	return false
}

// fillGap appends synthetic remote results fetched from the external
// gateway. Gateway failures and empty fetches leave the candidate set as is.
func (o *Orchestrator) fillGap(ctx context.Context, query string, candidates []pipeline.Result, topK int) []pipeline.Result {
	if o.gateway == nil {
		return candidates
	}
	snippets, err := o.gateway.Fetch(ctx, query)
	if err != nil {
		o.logger.Warn("external gateway fetch failed", "error", err)
		return candidates
	}
	if len(snippets) == 0 {
		return candidates
	}
	o.logger.Info("filling knowledge gap from external gateway", "snippets", len(snippets))

	now := time.Now()
	for i, snippet := range snippets {
		if len(candidates) >= topK {
			break
		}
		docID := fmt.Sprintf("external_%d_%d", now.UnixNano(), i)
		doc := document.Document{
			ID:         docID,
			Title:      "External context",
			SourceType: document.SourceRemote,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		chunk := document.Chunk{
			ID:         document.ChunkID(docID, 0),
			DocumentID: docID,
			Content:    snippet,
			ChunkIndex: 0,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		candidates = append(candidates, pipeline.Result{
			Document: doc,
			Chunk:    chunk,
			Score:    0,
		})
	}
	return candidates
}

// logHistory persists query statistics on a detached task. The write must
// never delay or fail the retrieval call, so it runs on its own context and
// swallows every error at the task boundary.
func (o *Orchestrator) logHistory(query string, opts RetrieveOptions, final []pipeline.Result, citations []Citation, gap bool) {
	if o.historian == nil {
		return
	}

	var rawSum, finalSum float32
	docIDs := make(map[string]struct{}, len(final))
	for _, res := range final {
		rawSum += res.Score
		finalSum += res.FinalScore()
		docIDs[res.Document.ID] = struct{}{}
	}
	entry := history.Entry{
		Query:               query,
		ResultCount:         len(final),
		CitationCount:       len(citations),
		TopK:                opts.TopK,
		SimilarityThreshold: opts.SimilarityThreshold,
		HybridSearch:        opts.HybridSearch,
		RerankerEnabled:     o.cfg.RerankerEnabled,
		GapDetected:         gap,
		CreatedAt:           time.Now(),
	}
	for id := range docIDs {
		entry.DocumentIDs = append(entry.DocumentIDs, id)
	}
	if len(final) > 0 {
		entry.AverageRelevance = finalSum / float32(len(final))
		entry.ScoreImprovement = (finalSum - rawSum) / float32(len(final))
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("query history write panicked", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := o.historian.SaveQueryHistory(ctx, entry); err != nil {
			o.logger.Warn("query history write failed", "error", err)
		}
	}()
}

// sortForContext orders results by their effective score, reranked when
// available.
func sortForContext(results []pipeline.Result) []pipeline.Result {
	out := make([]pipeline.Result, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore() > out[j].FinalScore()
	})
	return out
}

// buildContext renders the "[i] content" blocks and the matching citations.
func buildContext(results []pipeline.Result) (string, []Citation) {
	blocks := make([]string, 0, len(results))
	citations := make([]Citation, 0, len(results))
	for i, res := range results {
		blocks = append(blocks, fmt.Sprintf("[%d] %s", i+1, res.Chunk.Content))
		citations = append(citations, Citation{
			Index:       i + 1,
			DocumentID:  res.Document.ID,
			ChunkIndex:  res.Chunk.ChunkIndex,
			SourceTitle: res.Document.Title,
		})
	}
	return strings.Join(blocks, "\n\n"), citations
}
