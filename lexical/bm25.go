package lexical

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/sweetpotato0/ragline/document"
	"github.com/sweetpotato0/ragline/vector"
)

// Hit is one keyword match returned by a Searcher.
type Hit struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Score      float32
	Metadata   map[string]string
}

// Searcher is a keyword index over document chunks. Filters are equality
// predicates ANDed with the free-text query.
type Searcher interface {
	Index(ctx context.Context, doc document.Document, chunks []document.Chunk) error
	Delete(ctx context.Context, documentID string) error
	Search(ctx context.Context, query string, topK int, filters map[string]string) ([]Hit, error)
}

// BM25Index is an in-memory inverted index scored with Okapi BM25.
type BM25Index struct {
	mu          sync.RWMutex
	docFreq     map[string]int
	postings    map[string]map[string]int
	chunkLength map[string]int
	chunkMeta   map[string]chunkRef
	byDocument  map[string][]string
	totalLength int
	chunkCount  int
	k1          float64
	b           float64
}

type chunkRef struct {
	documentID string
	chunkIndex int
	metadata   map[string]string
}

// NewBM25Index creates an empty index with the usual k1/b parameters.
func NewBM25Index() *BM25Index {
	return &BM25Index{
		docFreq:     make(map[string]int),
		postings:    make(map[string]map[string]int),
		chunkLength: make(map[string]int),
		chunkMeta:   make(map[string]chunkRef),
		byDocument:  make(map[string][]string),
		k1:          1.6,
		b:           0.75,
	}
}

// Index adds or replaces the chunks of a document.
func (idx *BM25Index) Index(ctx context.Context, doc document.Document, chunks []document.Chunk) error {
	if err := idx.Delete(ctx, doc.ID); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, chunk := range chunks {
		terms := Tokenize(chunk.Content)
		if len(terms) == 0 {
			continue
		}
		idx.chunkCount++
		idx.chunkLength[chunk.ID] = len(terms)
		idx.totalLength += len(terms)
		idx.chunkMeta[chunk.ID] = chunkRef{
			documentID: doc.ID,
			chunkIndex: chunk.ChunkIndex,
			metadata:   doc.Metadata,
		}
		idx.byDocument[doc.ID] = append(idx.byDocument[doc.ID], chunk.ID)

		seen := make(map[string]struct{})
		for _, term := range terms {
			if _, ok := idx.postings[term]; !ok {
				idx.postings[term] = make(map[string]int)
			}
			idx.postings[term][chunk.ID]++
			if _, exists := seen[term]; !exists {
				idx.docFreq[term]++
				seen[term] = struct{}{}
			}
		}
	}
	return nil
}

// Delete removes every chunk of a document from the index.
func (idx *BM25Index) Delete(ctx context.Context, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, chunkID := range idx.byDocument[documentID] {
		length, ok := idx.chunkLength[chunkID]
		if !ok {
			continue
		}
		idx.chunkCount--
		idx.totalLength -= length
		delete(idx.chunkLength, chunkID)
		delete(idx.chunkMeta, chunkID)
		for term, posting := range idx.postings {
			if _, ok := posting[chunkID]; !ok {
				continue
			}
			delete(posting, chunkID)
			idx.docFreq[term]--
			if idx.docFreq[term] <= 0 {
				delete(idx.docFreq, term)
				delete(idx.postings, term)
			}
		}
	}
	delete(idx.byDocument, documentID)
	return nil
}

// Search scores chunks against the query terms and returns the topK hits.
func (idx *BM25Index) Search(ctx context.Context, query string, topK int, filters map[string]string) ([]Hit, error) {
	terms := unique(Tokenize(query))
	if len(terms) == 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.chunkCount == 0 {
		return nil, nil
	}

	avgLen := float64(idx.totalLength) / float64(idx.chunkCount)
	scores := make(map[string]float64)
	for _, term := range terms {
		posting := idx.postings[term]
		if len(posting) == 0 {
			continue
		}
		df := idx.docFreq[term]
		idf := math.Log((float64(idx.chunkCount)-float64(df)+0.5)/(float64(df)+0.5) + 1)
		for chunkID, tf := range posting {
			docLen := float64(idx.chunkLength[chunkID])
			numerator := float64(tf) * (idx.k1 + 1)
			denominator := float64(tf) + idx.k1*(1-idx.b+idx.b*(docLen/avgLen))
			scores[chunkID] += idf * (numerator / denominator)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for chunkID, score := range scores {
		ref := idx.chunkMeta[chunkID]
		if len(filters) > 0 && !vector.MatchesFilters(ref.metadata, filters) {
			continue
		}
		hits = append(hits, Hit{
			ChunkID:    chunkID,
			DocumentID: ref.documentID,
			ChunkIndex: ref.chunkIndex,
			Score:      float32(score),
			Metadata:   ref.metadata,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// ScoreText scores a single text against the query using the index's global
// term statistics. Used by the reranker to score candidates that may not be
// in the index themselves.
func (idx *BM25Index) ScoreText(query, text string) float32 {
	queryTerms := unique(Tokenize(query))
	terms := Tokenize(text)
	if len(queryTerms) == 0 || len(terms) == 0 {
		return 0
	}

	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	chunkCount := idx.chunkCount
	if chunkCount == 0 {
		chunkCount = 1
	}
	avgLen := float64(idx.totalLength) / float64(chunkCount)
	if avgLen == 0 {
		avgLen = float64(len(terms))
	}

	var score float64
	for _, term := range queryTerms {
		tf := counts[term]
		if tf == 0 {
			continue
		}
		df := idx.docFreq[term]
		idf := math.Log((float64(chunkCount)-float64(df)+0.5)/(float64(df)+0.5) + 1)
		docLen := float64(len(terms))
		numerator := float64(tf) * (idx.k1 + 1)
		denominator := float64(tf) + idx.k1*(1-idx.b+idx.b*(docLen/avgLen))
		score += idf * (numerator / denominator)
	}
	return float32(score)
}

var tokenRegex = regexp.MustCompile(`\p{L}[\p{L}\p{M}]*|\p{N}+`)

// Tokenize lower-cases text and extracts letter runs and number runs.
func Tokenize(content string) []string {
	return tokenRegex.FindAllString(strings.ToLower(content), -1)
}

func unique(tokens []string) []string {
	if len(tokens) == 0 {
		return tokens
	}
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

var _ Searcher = (*BM25Index)(nil)
