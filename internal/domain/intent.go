package domain

import (
	"regexp"
	"strings"
)

// Intent classifies what a question is asking for
type Intent int

const (
	// IntentRetrieval asks about document content; the default when no
	// price cue is present.
	IntentRetrieval Intent = iota
	// IntentPrice asks for market data answerable by the price tool.
	IntentPrice
	// IntentBoth mixes a price cue with a document cue; both tools fire.
	IntentBoth
)

// String implements fmt.Stringer
func (i Intent) String() string {
	switch i {
	case IntentPrice:
		return "price"
	case IntentBoth:
		return "both"
	default:
		return "retrieval"
	}
}

var (
	priceCuePattern = regexp.MustCompile(`(?i)\b(price|close|open|high|low|last|latest|compare|performance|return|percentage|pct)\b`)
	docCuePattern   = regexp.MustCompile(`(?i)\b(letter|addendum|chat|document|doc|say|says|said|mention|mentions|mentioned|discuss|discussed|report|according|context)\b`)
	symbolPattern   = regexp.MustCompile(`\b[A-Z]{2,10}\b`)
)

// ClassifyIntent decides how a question should be routed. It is a pure
// function of the question text: a price cue routes to the price tool, a
// price cue next to a document cue fires both routes, and everything else
// falls through to retrieval.
func ClassifyIntent(question string) Intent {
	price := priceCuePattern.MatchString(question)
	if !price {
		return IntentRetrieval
	}
	if docCuePattern.MatchString(question) {
		return IntentBoth
	}
	return IntentPrice
}

// CandidateSymbols returns every uppercase token that looks like a ticker
// symbol, in order of first appearance, without duplicates. Callers decide
// which of them the price table actually knows.
func CandidateSymbols(question string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range symbolPattern.FindAllString(question, -1) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// ExtractSymbols returns the known ticker symbols mentioned in the question,
// in order of first appearance, without duplicates. Only uppercase tokens
// count; known symbols are matched case-sensitively.
func ExtractSymbols(question string, known []string) []string {
	knownSet := make(map[string]struct{}, len(known))
	for _, s := range known {
		knownSet[strings.ToUpper(s)] = struct{}{}
	}

	var out []string
	seen := make(map[string]struct{})
	for _, tok := range symbolPattern.FindAllString(question, -1) {
		if _, ok := knownSet[tok]; !ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
