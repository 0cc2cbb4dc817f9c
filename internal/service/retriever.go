package service

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/quayside-labs/deskrag/internal/domain"
)

const (
	defaultHybridAlpha = 0.65
	defaultBM25K1      = 1.5
	defaultBM25B       = 0.75
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+(?:'[a-z0-9]+)?`)

// tokenize lowercases text and splits it into alphanumeric terms, keeping
// interior apostrophes.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// RetrieverConfig controls hybrid scoring. Alpha weights the BM25 component
// against the TF-IDF cosine component.
type RetrieverConfig struct {
	Alpha float64
	K1    float64
	B     float64
}

// DefaultRetrieverConfig provides sane defaults for hybrid scoring.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		Alpha: defaultHybridAlpha,
		K1:    defaultBM25K1,
		B:     defaultBM25B,
	}
}

// posting records one chunk containing a term.
type posting struct {
	chunk int
	tf    int
	tfidf float64
}

// Retriever scores chunks with a weighted sum of BM25 and TF-IDF cosine
// similarity. All statistics are built by corpus-order iteration and the
// index is immutable after construction, so identical corpus and query
// always produce identical rankings. A retriever is safe for concurrent
// searches.
type Retriever struct {
	cfg    RetrieverConfig
	chunks []domain.Chunk

	postings  map[string][]posting
	idfBM25   map[string]float64
	idfTFIDF  map[string]float64
	chunkLen  []int
	chunkNorm []float64
	avgLen    float64
}

// NewRetriever builds the sparse index over the corpus in corpus order.
func NewRetriever(chunks []domain.Chunk, cfg RetrieverConfig) *Retriever {
	if cfg.Alpha < 0 || cfg.Alpha > 1 {
		cfg.Alpha = defaultHybridAlpha
	}
	if cfg.K1 <= 0 {
		cfg.K1 = defaultBM25K1
	}
	if cfg.B < 0 || cfg.B > 1 {
		cfg.B = defaultBM25B
	}

	r := &Retriever{
		cfg:       cfg,
		chunks:    chunks,
		postings:  make(map[string][]posting),
		idfBM25:   make(map[string]float64),
		idfTFIDF:  make(map[string]float64),
		chunkLen:  make([]int, len(chunks)),
		chunkNorm: make([]float64, len(chunks)),
	}

	df := make(map[string]int)
	termFreqs := make([]map[string]int, len(chunks))
	totalLen := 0
	for i, c := range chunks {
		tokens := tokenize(c.Text)
		r.chunkLen[i] = len(tokens)
		totalLen += len(tokens)

		freq := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freq[tok]++
		}
		termFreqs[i] = freq
		for term := range freq {
			df[term]++
		}
	}
	if len(chunks) > 0 {
		r.avgLen = float64(totalLen) / float64(len(chunks))
	}

	// Sorted vocabulary keeps posting construction and float accumulation
	// order stable across runs.
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(chunks))
	for _, term := range terms {
		d := float64(df[term])
		r.idfBM25[term] = math.Log(1 + (n-d+0.5)/(d+0.5))
		r.idfTFIDF[term] = math.Log((n+1)/(d+1)) + 1
	}

	for i, freq := range termFreqs {
		if r.chunkLen[i] == 0 {
			continue
		}
		norm := 0.0
		for term, tf := range freq {
			w := float64(tf) / float64(r.chunkLen[i]) * r.idfTFIDF[term]
			norm += w * w
		}
		r.chunkNorm[i] = math.Sqrt(norm)
	}
	for _, term := range terms {
		for i, freq := range termFreqs {
			tf, ok := freq[term]
			if !ok {
				continue
			}
			w := float64(tf) / float64(r.chunkLen[i]) * r.idfTFIDF[term]
			r.postings[term] = append(r.postings[term], posting{chunk: i, tf: tf, tfidf: w})
		}
	}

	return r
}

// Size returns the number of indexed chunks.
func (r *Retriever) Size() int {
	return len(r.chunks)
}

// Chunks returns the indexed corpus in corpus order.
func (r *Retriever) Chunks() []domain.Chunk {
	return r.chunks
}

// Search returns the top k chunks by hybrid score, descending, with ties
// broken by corpus position. Chunks sharing no terms with the query score
// zero and are excluded, so fewer than k results may come back.
func (r *Retriever) Search(query string, k int) []domain.ScoredChunk {
	if k <= 0 || len(r.chunks) == 0 {
		return nil
	}

	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return nil
	}
	qFreq := make(map[string]int, len(qTokens))
	for _, tok := range qTokens {
		qFreq[tok]++
	}
	qTerms := make([]string, 0, len(qFreq))
	for term := range qFreq {
		qTerms = append(qTerms, term)
	}
	sort.Strings(qTerms)

	qNorm := 0.0
	for _, term := range qTerms {
		w := float64(qFreq[term]) / float64(len(qTokens)) * r.idfTFIDF[term]
		qNorm += w * w
	}
	qNorm = math.Sqrt(qNorm)

	bm25 := make(map[int]float64)
	dot := make(map[int]float64)
	for _, term := range qTerms {
		plist, ok := r.postings[term]
		if !ok {
			continue
		}
		idf := r.idfBM25[term]
		qw := float64(qFreq[term]) / float64(len(qTokens)) * r.idfTFIDF[term]
		for _, p := range plist {
			tf := float64(p.tf)
			denom := tf + r.cfg.K1*(1-r.cfg.B+r.cfg.B*float64(r.chunkLen[p.chunk])/r.avgLen)
			bm25[p.chunk] += idf * tf * (r.cfg.K1 + 1) / denom
			dot[p.chunk] += qw * p.tfidf
		}
	}
	if len(bm25) == 0 {
		return nil
	}

	matched := make([]int, 0, len(bm25))
	for idx := range bm25 {
		matched = append(matched, idx)
	}
	sort.Ints(matched)

	scored := make([]domain.ScoredChunk, 0, len(matched))
	for _, idx := range matched {
		cosine := 0.0
		if qNorm > 0 && r.chunkNorm[idx] > 0 {
			cosine = dot[idx] / (qNorm * r.chunkNorm[idx])
		}
		score := r.cfg.Alpha*bm25[idx] + (1-r.cfg.Alpha)*cosine
		if score <= 0 {
			continue
		}
		scored = append(scored, domain.ScoredChunk{
			Chunk: r.chunks[idx],
			Score: score,
			BM25:  bm25[idx],
			TFIDF: cosine,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// RetrieverHandle publishes the retriever built from the current corpus.
// Swap installs a new build atomically, so a request sees either the old
// snapshot or the new one, never a mix.
type RetrieverHandle struct {
	mu  sync.RWMutex
	ret *Retriever
}

func NewRetrieverHandle() *RetrieverHandle {
	return &RetrieverHandle{}
}

// Swap replaces the published retriever.
func (h *RetrieverHandle) Swap(r *Retriever) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ret = r
}

// Current returns the published retriever, or domain.ErrCorpusMissing when
// no corpus has been loaded or ingested yet.
func (h *RetrieverHandle) Current() (*Retriever, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.ret == nil {
		return nil, domain.ErrCorpusMissing
	}
	return h.ret, nil
}
