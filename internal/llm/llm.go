// Package llm provides generation adapters for the answer pipeline: a local
// Ollama server and the hosted OpenAI chat API. Both build the same tagged
// context prompt, bound every call with a timeout, and report
// domain.ErrGenerationUnavailable on failure so the caller can degrade to an
// extractive answer.
package llm

import (
	"strings"
	"time"

	"github.com/quayside-labs/deskrag/internal/domain"
)

// Provider names accepted in configuration.
const (
	ProviderOff    = "off"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 120 * time.Second

// buildUserPrompt assembles the user message: grounding rules, the question,
// the allowed citation tags, then the tagged context blocks. Tags appear
// twice so the model sees the exact token it must copy.
func buildUserPrompt(question string, chunks []domain.Chunk) string {
	var b strings.Builder
	b.WriteString("You are a strict, citation-first assistant.\n")
	b.WriteString("Use ONLY the provided context. If the answer is not in context, say you don't know.\n")
	b.WriteString("Every claim MUST include a citation tag copied EXACTLY from the allowed tags below.\n")
	b.WriteString("Be concise (<= 5 sentences).\n")
	b.WriteString("Question: " + question + "\n")
	b.WriteString("Allowed citation tags (use EXACTLY as-is; do NOT invent new tags):\n")
	for _, c := range chunks {
		b.WriteString("- " + c.Tag() + "\n")
	}
	b.WriteString("Context chunks:\n")
	for _, c := range chunks {
		b.WriteString(c.Tag() + "\n")
		b.WriteString(c.Text + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
