package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quayside-labs/deskrag/internal/domain"
	"github.com/quayside-labs/deskrag/internal/prices"
	"github.com/quayside-labs/deskrag/internal/telemetry"
)

const noContextAnswer = "I couldn't find relevant context in the provided documents."

const defaultSystemPrompt = `You answer questions about fund documents using only the provided context.
Cite every claim with the bracketed tag of the context block it came from, exactly as given, in the form [source@start:end].
If the context does not contain the answer, say so plainly instead of guessing.`

var (
	daysPattern          = regexp.MustCompile(`(?i)\b(\d{1,4})\s*(?:day|days|session|sessions|close|closes)\b`)
	citationTokenPattern = regexp.MustCompile(`\[[^\[\]]*\]`)
)

// Generator produces grounded text from retrieved context.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, chunks []domain.Chunk, question string) (string, error)
	Name() string
}

// PriceBook answers symbol lookups and comparisons from the static table.
type PriceBook interface {
	Symbols() []string
	Lookup(symbol string) (prices.Quote, error)
	Compare(symbolA, symbolB string, points int) (prices.Comparison, error)
}

// AgentConfig controls routing and answer composition.
type AgentConfig struct {
	DefaultK       int
	MaxK           int
	MaxAnswerChars int
	SystemPrompt   string
}

// DefaultAgentConfig provides sane defaults for the router.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		DefaultK:       5,
		MaxK:           20,
		MaxAnswerChars: 4000,
		SystemPrompt:   defaultSystemPrompt,
	}
}

// AgentService routes questions between the price tool, the retriever and
// the optional generator, assembling cited answers. A failing tool degrades
// the request to the next cheaper route instead of failing it.
type AgentService struct {
	handle  *RetrieverHandle
	price   PriceBook
	gen     Generator
	metrics MetricsRecorder
	cfg     AgentConfig
}

// NewAgentService creates a new AgentService. price, gen and metrics may be
// nil; a missing collaborator degrades its route rather than failing
// requests.
func NewAgentService(
	handle *RetrieverHandle,
	price PriceBook,
	gen Generator,
	metrics MetricsRecorder,
	cfg AgentConfig,
) *AgentService {
	def := DefaultAgentConfig()
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = def.DefaultK
	}
	if cfg.MaxK <= 0 {
		cfg.MaxK = def.MaxK
	}
	if cfg.MaxAnswerChars <= 0 {
		cfg.MaxAnswerChars = def.MaxAnswerChars
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = def.SystemPrompt
	}
	return &AgentService{
		handle:  handle,
		price:   price,
		gen:     gen,
		metrics: metrics,
		cfg:     cfg,
	}
}

// AnswerInput carries one question through the router.
type AnswerInput struct {
	Question string
	K        int
}

// Answer routes the question and returns a grounded answer. It fails fast
// with domain.ErrCorpusMissing until ingestion has populated the corpus.
func (s *AgentService) Answer(ctx context.Context, input AnswerInput) (*domain.Answer, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	k, err := s.clampK(input.K)
	if err != nil {
		return nil, err
	}

	// One snapshot per request: a concurrent re-ingest swaps the handle,
	// never the retriever this request already holds.
	ret, err := s.handle.Current()
	if err != nil {
		return nil, err
	}

	intent := domain.ClassifyIntent(question)

	ctx, span := telemetry.StartSpan(ctx, "AgentService.Answer", telemetry.SpanAttributes{
		Operation: "answer",
		Route:     intent.String(),
	})
	defer span.End()

	start := time.Now()
	var answer *domain.Answer
	switch intent {
	case domain.IntentPrice:
		answer = s.priceRoute(ctx, ret, question, k)
	case domain.IntentBoth:
		answer = s.bothRoute(ctx, ret, question, k)
	default:
		answer = s.retrievalRoute(ctx, ret, question, k, nil)
	}

	answer.LatencyMS = time.Since(start).Milliseconds()
	s.recordMetric(domain.MetricEvent{
		Event:     domain.EventAnswer,
		LatencyMS: answer.LatencyMS,
		Question:  question,
		K:         k,
		Route:     answer.Route,
		UsedTools: answer.UsedTools,
	})
	return answer, nil
}

func (s *AgentService) clampK(k int) (int, error) {
	if k < 0 {
		return 0, domain.ErrInvalidK
	}
	if k == 0 {
		k = s.cfg.DefaultK
	}
	if k > s.cfg.MaxK {
		k = s.cfg.MaxK
	}
	return k, nil
}

// priceRoute answers from the price table alone. The retriever is never
// consulted unless the tool itself fails, in which case the request
// degrades to the retrieval route with the failure recorded.
func (s *AgentService) priceRoute(ctx context.Context, ret *Retriever, question string, k int) *domain.Answer {
	text, err := s.priceAnswer(question)
	if err != nil {
		log.Printf("agent: price tool failed, degrading to retrieval: %v", err)
		telemetry.CaptureError(ctx, err)
		return s.retrievalRoute(ctx, ret, question, k, []string{domain.ToolPriceFailed})
	}
	return &domain.Answer{
		Text:      text,
		Route:     domain.RoutePrice,
		UsedTools: []string{domain.ToolPrice},
	}
}

// bothRoute runs the price tool and the retriever for questions that mix a
// price cue with a document cue. The retrieved half stays extractive so the
// quoted figures come verbatim from the table.
func (s *AgentService) bothRoute(ctx context.Context, ret *Retriever, question string, k int) *domain.Answer {
	priceText, err := s.priceAnswer(question)
	if err != nil {
		log.Printf("agent: price tool failed, degrading to retrieval: %v", err)
		telemetry.CaptureError(ctx, err)
		return s.retrievalRoute(ctx, ret, question, k, []string{domain.ToolPriceFailed})
	}

	results := ret.Search(question, k)
	answer := &domain.Answer{
		Route:     domain.RouteRAG,
		UsedTools: []string{domain.ToolPrice, domain.ToolRetriever},
	}
	if len(results) == 0 {
		answer.Text = priceText + "\n\n" + noContextAnswer
		return answer
	}

	answer.Text = priceText + "\n\n" + composeExtractive(results, s.cfg.MaxAnswerChars)
	answer.Citations = citationsOf(results)
	answer.Sources = sourcesOf(results)
	answer.RetrievedK = len(results)
	return answer
}

// retrievalRoute searches the corpus and answers either through the
// generator or extractively. usedTools seeds the tool trail with any
// degradation markers accumulated before reaching here.
func (s *AgentService) retrievalRoute(ctx context.Context, ret *Retriever, question string, k int, usedTools []string) *domain.Answer {
	results := ret.Search(question, k)
	usedTools = append(usedTools, domain.ToolRetriever)

	if len(results) == 0 {
		return &domain.Answer{
			Text:      noContextAnswer,
			Route:     domain.RouteExtractive,
			UsedTools: usedTools,
		}
	}

	answer := &domain.Answer{
		Citations:  citationsOf(results),
		Sources:    sourcesOf(results),
		RetrievedK: len(results),
	}

	if s.gen != nil {
		genStart := time.Now()
		text, err := s.gen.Generate(ctx, s.cfg.SystemPrompt, chunksOf(results), question)
		s.recordMetric(domain.MetricEvent{
			Event:     domain.EventLLMCall,
			LatencyMS: time.Since(genStart).Milliseconds(),
			Question:  question,
			K:         k,
			Extra: map[string]any{
				"generator": s.gen.Name(),
				"ok":        err == nil,
			},
		})
		if err == nil {
			answer.Text = groundCitations(text, results)
			answer.Route = domain.RouteRAGLLM
			answer.UsedTools = append(usedTools, s.gen.Name())
			return answer
		}
		log.Printf("agent: generation failed, falling back to extractive: %v", err)
		telemetry.CaptureError(ctx, err)
		usedTools = append(usedTools, domain.ToolLLMFailed)
	}

	answer.Text = composeExtractive(results, s.cfg.MaxAnswerChars)
	answer.Route = domain.RouteExtractive
	answer.UsedTools = usedTools
	return answer
}

// priceAnswer resolves a price question against the table. Unknown symbols
// produce a user-visible message, not an error; errors signal tool failure
// and trigger degradation in the caller.
func (s *AgentService) priceAnswer(question string) (string, error) {
	if s.price == nil {
		return "", domain.ErrPriceTableMissing
	}

	known := domain.ExtractSymbols(question, s.price.Symbols())

	if len(known) >= 2 {
		cmp, err := s.price.Compare(known[0], known[1], comparePoints(question))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Over the last %d closes, %s returned %.2f%% vs %s %.2f%% (relative %+.2f%%).",
			cmp.Points, cmp.SymbolA, cmp.ReturnA, cmp.SymbolB, cmp.ReturnB, cmp.Relative), nil
	}

	if len(known) == 1 {
		q, err := s.price.Lookup(known[0])
		if err != nil {
			return "", err
		}
		if q.Date != "" {
			return fmt.Sprintf("%s last closed at %s on %s.", q.Symbol, formatClose(q.Close), q.Date), nil
		}
		return fmt.Sprintf("%s last closed at %s.", q.Symbol, formatClose(q.Close)), nil
	}

	symbols := strings.Join(s.price.Symbols(), ", ")
	if len(domain.CandidateSymbols(question)) > 0 {
		return fmt.Sprintf("That symbol is not in the price table. Known symbols: %s.", symbols), nil
	}
	return fmt.Sprintf("Name a symbol to get a quote. Known symbols: %s.", symbols), nil
}

func (s *AgentService) recordMetric(event domain.MetricEvent) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.Record(event); err != nil {
		log.Printf("metrics: failed to record %s event: %v", event.Event, err)
	}
}

func comparePoints(question string) int {
	m := daysPattern.FindStringSubmatch(question)
	if m == nil {
		return prices.DefaultComparePoints
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 2 {
		return prices.DefaultComparePoints
	}
	return n
}

func formatClose(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func chunksOf(results []domain.ScoredChunk) []domain.Chunk {
	chunks := make([]domain.Chunk, len(results))
	for i, sc := range results {
		chunks[i] = sc.Chunk
	}
	return chunks
}

func citationsOf(results []domain.ScoredChunk) []domain.Citation {
	citations := make([]domain.Citation, len(results))
	for i, sc := range results {
		citations[i] = sc.Chunk.Citation()
	}
	return citations
}

func sourcesOf(results []domain.ScoredChunk) []string {
	seen := make(map[string]struct{}, len(results))
	var sources []string
	for _, sc := range results {
		if _, ok := seen[sc.Chunk.Source]; ok {
			continue
		}
		seen[sc.Chunk.Source] = struct{}{}
		sources = append(sources, sc.Chunk.Source)
	}
	sort.Strings(sources)
	return sources
}

// composeExtractive joins retrieved chunks verbatim, each followed by its
// citation tag. Truncation happens at whole-chunk granularity so the text
// of every included chunk still matches its cited span; the first chunk is
// always included.
func composeExtractive(results []domain.ScoredChunk, maxChars int) string {
	var b strings.Builder
	for i, sc := range results {
		entry := sc.Chunk.Text + " " + sc.Chunk.Tag()
		if i > 0 {
			if maxChars > 0 && b.Len()+2+len(entry) > maxChars {
				break
			}
			b.WriteString("\n\n")
		}
		b.WriteString(entry)
	}
	return b.String()
}

// groundCitations strips bracketed tokens that do not exactly match a
// retrieved chunk tag. When nothing valid survives, the top retrieved tags
// are appended instead, so the answer never carries a fabricated citation
// and never goes out uncited.
func groundCitations(text string, results []domain.ScoredChunk) string {
	allowed := make(map[string]struct{}, len(results))
	for _, sc := range results {
		allowed[sc.Chunk.Tag()] = struct{}{}
	}

	kept := 0
	cleaned := citationTokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		if _, ok := allowed[tok]; ok {
			kept++
			return tok
		}
		return ""
	})
	cleaned = strings.TrimSpace(cleaned)

	if kept == 0 {
		n := len(results)
		if n > 3 {
			n = 3
		}
		tags := make([]string, 0, n)
		for _, sc := range results[:n] {
			tags = append(tags, sc.Chunk.Tag())
		}
		if cleaned == "" {
			return strings.Join(tags, " ")
		}
		return cleaned + "\n\n" + strings.Join(tags, " ")
	}
	return cleaned
}
