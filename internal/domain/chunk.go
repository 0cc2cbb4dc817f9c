package domain

import "fmt"

// Chunk represents a contiguous span of a normalized source document.
// Start and End are character (rune) offsets into the normalized text, and
// Text is exactly the normalized text sliced at [Start:End). That equality is
// what makes citations verifiable against the source.
type Chunk struct {
	Source string
	Start  int
	End    int
	Text   string
}

// Ref returns the canonical chunk reference "source@start:end"
func (c Chunk) Ref() string {
	return fmt.Sprintf("%s@%d:%d", c.Source, c.Start, c.End)
}

// Tag returns the bracketed citation tag "[source@start:end]" used in
// generated and extractive answer text
func (c Chunk) Tag() string {
	return "[" + c.Ref() + "]"
}

// Citation returns the chunk's span as a Citation
func (c Chunk) Citation() Citation {
	return Citation{Source: c.Source, Start: c.Start, End: c.End}
}

// Citation identifies the span of a source document backing an answer
type Citation struct {
	Source string
	Start  int
	End    int
}

// Ref returns the citation reference "source@start:end"
func (c Citation) Ref() string {
	return fmt.Sprintf("%s@%d:%d", c.Source, c.Start, c.End)
}

// ScoredChunk pairs a chunk with its retrieval scores. Score is the combined
// hybrid score; BM25 and TFIDF keep the raw components for diagnostics.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
	BM25  float64
	TFIDF float64
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.Source == "" {
		return fmt.Errorf("chunk Source is required")
	}

	if c.Start < 0 {
		return fmt.Errorf("chunk Start must not be negative")
	}

	if c.End <= c.Start {
		return fmt.Errorf("chunk End must be greater than Start")
	}

	if c.Text == "" {
		return fmt.Errorf("chunk Text is required")
	}

	return nil
}
