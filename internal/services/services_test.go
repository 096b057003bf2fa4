package services

import (
	"errors"
	"math"
	"testing"
)

func TestSpreadWords(t *testing.T) {
	words := SpreadWords("the history of coffee", 0, 2)
	if len(words) != 4 {
		t.Fatalf("expected 4 words, got %d", len(words))
	}

	if words[0].Text != "the" || words[0].Start != 0 || words[0].End != 0.5 {
		t.Errorf("unexpected first word: %+v", words[0])
	}
	if words[3].End != 2 {
		t.Errorf("last word must end at span end, got %+v", words[3])
	}

	// Contiguous, non-overlapping spans.
	for i := 1; i < len(words); i++ {
		if math.Abs(words[i].Start-words[i-1].End) > 1e-9 {
			t.Errorf("gap between words %d and %d: %+v %+v", i-1, i, words[i-1], words[i])
		}
	}
}

func TestSpreadWordsEmpty(t *testing.T) {
	if words := SpreadWords("   ", 0, 5); words != nil {
		t.Errorf("expected nil for blank text, got %+v", words)
	}
}

func TestSpreadWordsDegenerateSpan(t *testing.T) {
	// end <= start gets a synthetic span so timings stay increasing.
	words := SpreadWords("a b c", 5, 5)
	if len(words) != 3 {
		t.Fatalf("expected 3 words, got %d", len(words))
	}
	for i, w := range words {
		if w.End <= w.Start {
			t.Errorf("word %d has non-positive span: %+v", i, w)
		}
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	inner := errors.New("rate limited")
	err := &ProviderError{Provider: "elevenlabs", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected Unwrap to expose the inner error")
	}
	if err.Error() == "" || err.Error() == inner.Error() {
		t.Errorf("expected provider-labeled message, got %q", err.Error())
	}
}
