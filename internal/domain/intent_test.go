package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name     string
		question string
		expected Intent
	}{
		{"plain document question", "What risks did the fund flag for energy?", IntentRetrieval},
		{"empty question", "", IntentRetrieval},
		{"latest close", "What is the most recent close for ACME?", IntentPrice},
		{"last price", "last price for NVO please", IntentPrice},
		{"comparison", "compare ACME performance to GLOBEX over 30 days", IntentPrice},
		{"percentage cue", "What pct did ACME move?", IntentPrice},
		{"price cue is case insensitive", "LATEST CLOSE FOR ACME", IntentPrice},
		{"price cue plus letter cue", "What does the letter say about the ACME price outlook?", IntentBoth},
		{"price cue plus chat cue", "Did the desk chat mention the latest ACME close?", IntentBoth},
		{"document cue alone stays retrieval", "What did the Q2 letter say about duration?", IntentRetrieval},
		{"substring does not trigger", "Tell me about pricing strategy disclosure", IntentRetrieval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyIntent(tt.question))
		})
	}
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "price", IntentPrice.String())
	assert.Equal(t, "retrieval", IntentRetrieval.String())
	assert.Equal(t, "both", IntentBoth.String())
}

func TestExtractSymbols(t *testing.T) {
	known := []string{"ACME", "GLOBEX", "NVO"}

	tests := []struct {
		name     string
		question string
		expected []string
	}{
		{"single symbol", "most recent close for ACME", []string{"ACME"}},
		{"two symbols in question order", "compare GLOBEX performance to ACME", []string{"GLOBEX", "ACME"}},
		{"duplicates collapse", "ACME versus ACME", []string{"ACME"}},
		{"unknown symbols ignored", "latest close for TSLA", nil},
		{"lowercase is not a symbol", "what is the acme close", nil},
		{"mixed known and unknown", "compare ACME to TSLA", []string{"ACME"}},
		{"no symbols", "what did the letter say", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractSymbols(tt.question, known))
		})
	}
}
