package orchestrator

// Config holds the orchestrator-level retrieval policy. Per-deployment knobs
// (gap thresholds, RRF constant, reranker weights) live here; per-call knobs
// are passed to Retrieve as RetrieveOptions.
type Config struct {
	RelevanceThreshold float32 // gap check: minimum acceptable top score
	CoverageThreshold  float32 // gap check: minimum len(candidates)/topK ratio
	RRFConstant        int
	RerankerEnabled    bool
	RerankBM25Weight   float32
	RerankSemantic     float32
	StepTopK           int
	DiversifyLambda    float32 // 0 disables MMR diversification
}

// Option customises the orchestrator configuration.
type Option func(*Config)

// WithGapThresholds overrides the knowledge-gap relevance and coverage
// thresholds.
func WithGapThresholds(relevance, coverage float32) Option {
	return func(cfg *Config) {
		if relevance >= 0 {
			cfg.RelevanceThreshold = relevance
		}
		if coverage >= 0 {
			cfg.CoverageThreshold = coverage
		}
	}
}

// WithRRFConstant overrides the reciprocal-rank-fusion smoothing constant
// used by hybrid retrieval.
func WithRRFConstant(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.RRFConstant = k
		}
	}
}

// WithReranker toggles the second-pass reranker.
func WithReranker(enabled bool) Option {
	return func(cfg *Config) {
		cfg.RerankerEnabled = enabled
	}
}

// WithRerankWeights sets the BM25/semantic blend used when reranking.
func WithRerankWeights(bm25, semantic float32) Option {
	return func(cfg *Config) {
		if bm25 >= 0 && semantic >= 0 {
			cfg.RerankBM25Weight = bm25
			cfg.RerankSemantic = semantic
		}
	}
}

// WithStepTopK bounds per-sub-query retrieval in the multi-step reasoner.
func WithStepTopK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.StepTopK = k
		}
	}
}

// WithDiversification reorders the final context with Maximal Marginal
// Relevance. Lambda balances relevance against diversity; 0 disables the pass.
func WithDiversification(lambda float32) Option {
	return func(cfg *Config) {
		if lambda >= 0 && lambda <= 1 {
			cfg.DiversifyLambda = lambda
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		RelevanceThreshold: 0.5,
		CoverageThreshold:  0.5,
		RRFConstant:        60,
		RerankerEnabled:    false,
		RerankBM25Weight:   0.3,
		RerankSemantic:     0.7,
		StepTopK:           4,
	}
}

// RetrieveOptions are the per-call retrieval parameters.
type RetrieveOptions struct {
	TopK                int
	Filters             map[string]string
	SimilarityThreshold float32
	HybridSearch        bool
	HybridWeight        *float32 // vector share in [0,1]; lexical gets the rest
}

// RetrieveOption customises a single Retrieve call.
type RetrieveOption func(*RetrieveOptions)

// WithTopK sets how many results the call returns.
func WithTopK(k int) RetrieveOption {
	return func(o *RetrieveOptions) {
		if k > 0 {
			o.TopK = k
		}
	}
}

// WithFilters restricts retrieval to chunks whose document metadata matches
// every given equality filter.
func WithFilters(filters map[string]string) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.Filters = filters
	}
}

// WithSimilarityThreshold sets the minimum reranked score a result must
// reach to survive, when reranking is enabled.
func WithSimilarityThreshold(threshold float32) RetrieveOption {
	return func(o *RetrieveOptions) {
		if threshold >= 0 {
			o.SimilarityThreshold = threshold
		}
	}
}

// WithHybridSearch blends lexical matching into the primary search.
func WithHybridSearch(enabled bool) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.HybridSearch = enabled
	}
}

// WithHybridWeight gives the vector side this share of the fusion weight and
// the lexical side the remainder.
func WithHybridWeight(vectorShare float32) RetrieveOption {
	return func(o *RetrieveOptions) {
		if vectorShare >= 0 && vectorShare <= 1 {
			o.HybridWeight = &vectorShare
		}
	}
}

func defaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		TopK:                6,
		SimilarityThreshold: 0.7,
		HybridSearch:        false,
	}
}
