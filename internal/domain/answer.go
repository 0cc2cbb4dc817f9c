package domain

// Route identifies the strategy that produced an answer
type Route string

const (
	// RoutePrice answers directly from the price tool.
	RoutePrice Route = "price"
	// RouteRAG combines a price lookup with retrieved context.
	RouteRAG Route = "rag"
	// RouteRAGLLM synthesizes retrieved context through a language model.
	RouteRAGLLM Route = "rag+llm"
	// RouteExtractive returns retrieved chunks verbatim, used when no
	// model is configured or generation degraded.
	RouteExtractive Route = "extractive"
)

// Tool names recorded in Answer.UsedTools. A ":failed" suffix marks a tool
// that was attempted before the router degraded to a cheaper route.
const (
	ToolRetriever   = "retriever"
	ToolPrice       = "price_tool"
	ToolPriceFailed = "price_tool:failed"
	ToolLLMFailed   = "llm:failed"
)

// Answer is the routed response to one question
type Answer struct {
	Text       string
	Citations  []Citation
	Sources    []string
	Route      Route
	UsedTools  []string
	RetrievedK int
	LatencyMS  int64
}
