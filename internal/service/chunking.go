package service

import (
	"unicode"

	"github.com/quayside-labs/deskrag/internal/domain"
)

// ChunkConfig controls the sliding window that splits normalized documents.
type ChunkConfig struct {
	Window  int
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Window:  600,
		Overlap: 120,
	}
}

// Validate rejects geometries the window loop cannot advance through.
func (c ChunkConfig) Validate() error {
	if c.Window <= 0 || c.Overlap < 0 || c.Overlap >= c.Window {
		return domain.ErrInvalidChunkConfig
	}
	return nil
}

// ChunkDocument splits normalized text into overlapping windows and records
// the rune offsets of each chunk. The text must already be normalized;
// every returned chunk's Text is exactly the input sliced at [Start:End),
// which keeps citations verifiable by substring check. A window prefers to
// end right after a sentence boundary found past its half-way mark. Edge
// whitespace is trimmed by moving the offsets, never by rewriting the text.
func ChunkDocument(source, text string, cfg ChunkConfig) []domain.Chunk {
	if cfg.Window <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, 0, 8)
	start := 0
	for start < len(runes) {
		end := start + cfg.Window
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			half := start + cfg.Window/2
			for p := end - 1; p > half; p-- {
				if runes[p] == '.' {
					end = p + 1
					break
				}
			}
		}

		cs, ce := start, end
		for cs < ce && unicode.IsSpace(runes[cs]) {
			cs++
		}
		for ce > cs && unicode.IsSpace(runes[ce-1]) {
			ce--
		}
		if ce > cs {
			chunks = append(chunks, domain.Chunk{
				Source: source,
				Start:  cs,
				End:    ce,
				Text:   string(runes[cs:ce]),
			})
		}

		if end >= len(runes) {
			break
		}

		nextStart := end - cfg.Overlap
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}
