// Package prices implements the static price table behind the price tool.
package prices

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/quayside-labs/deskrag/internal/domain"
)

// DefaultComparePoints is the window used when a comparison does not name
// one.
const DefaultComparePoints = 30

// Point is one daily closing price.
type Point struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// Quote is the most recent close for a symbol.
type Quote struct {
	Symbol string
	Date   string
	Close  float64
}

// Comparison holds the relative performance of two symbols over the last
// Points closes. Returns are percentages from the first to the last close
// of each window.
type Comparison struct {
	SymbolA  string
	ReturnA  float64
	SymbolB  string
	ReturnB  float64
	Relative float64
	Points   int
}

// Book is an in-memory price table loaded once from a JSON file keyed by
// symbol. Lookups after Load are pure map reads, safe for concurrent use.
type Book struct {
	series  map[string][]Point
	symbols []string
}

// Load reads a price table keyed by symbol. A value is either a series
// [{"date","close"}, ...] or a bare number standing for a single close.
// Symbols are normalized to upper case.
func Load(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPriceTableMissing, path)
		}
		return nil, fmt.Errorf("failed to read price table: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse price table: %w", err)
	}

	series := make(map[string][]Point, len(raw))
	symbols := make([]string, 0, len(raw))
	for sym, msg := range raw {
		up := strings.ToUpper(strings.TrimSpace(sym))
		if up == "" {
			continue
		}

		var pts []Point
		if err := json.Unmarshal(msg, &pts); err != nil {
			var close float64
			if err := json.Unmarshal(msg, &close); err != nil {
				return nil, fmt.Errorf("failed to parse price series for %s: %w", up, err)
			}
			pts = []Point{{Close: close}}
		}
		series[up] = pts
		symbols = append(symbols, up)
	}
	sort.Strings(symbols)

	return &Book{series: series, symbols: symbols}, nil
}

// Symbols returns the known symbols in sorted order.
func (b *Book) Symbols() []string {
	out := make([]string, len(b.symbols))
	copy(out, b.symbols)
	return out
}

// Lookup returns the latest close for a symbol.
func (b *Book) Lookup(symbol string) (Quote, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	pts, ok := b.series[sym]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", domain.ErrSymbolNotFound, sym)
	}
	if len(pts) == 0 {
		return Quote{}, fmt.Errorf("%w: %s", domain.ErrEmptyPriceSeries, sym)
	}
	last := pts[len(pts)-1]
	return Quote{Symbol: sym, Date: last.Date, Close: last.Close}, nil
}

// Compare computes first-to-last percentage returns for two symbols over
// their last points closes and the delta between them. The window shrinks
// to the shorter series when needed; points below two falls back to
// DefaultComparePoints.
func (b *Book) Compare(symbolA, symbolB string, points int) (Comparison, error) {
	if points < 2 {
		points = DefaultComparePoints
	}

	retA, n1, err := b.windowReturn(symbolA, points)
	if err != nil {
		return Comparison{}, err
	}
	retB, n2, err := b.windowReturn(symbolB, points)
	if err != nil {
		return Comparison{}, err
	}

	n := n1
	if n2 < n {
		n = n2
	}
	return Comparison{
		SymbolA:  strings.ToUpper(strings.TrimSpace(symbolA)),
		ReturnA:  retA,
		SymbolB:  strings.ToUpper(strings.TrimSpace(symbolB)),
		ReturnB:  retB,
		Relative: retA - retB,
		Points:   n,
	}, nil
}

func (b *Book) windowReturn(symbol string, points int) (float64, int, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	pts, ok := b.series[sym]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", domain.ErrSymbolNotFound, sym)
	}
	if len(pts) < 2 {
		return 0, 0, fmt.Errorf("%w: %s", domain.ErrEmptyPriceSeries, sym)
	}

	window := pts
	if len(window) > points {
		window = window[len(window)-points:]
	}
	first, last := window[0], window[len(window)-1]
	if first.Close == 0 {
		return 0, 0, fmt.Errorf("%w: %s has a zero close", domain.ErrEmptyPriceSeries, sym)
	}
	return (last.Close - first.Close) / first.Close * 100, len(window), nil
}
