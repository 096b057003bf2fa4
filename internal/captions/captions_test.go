package captions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bobarin/reelsmith/internal/models"
)

func word(text string, start, end float64) models.Word {
	return models.Word{Text: text, Start: start, End: end}
}

func TestChunkWords(t *testing.T) {
	words := []models.Word{
		word("the", 0, 0.2), word("history", 0.2, 0.5), word("of", 0.5, 0.6),
		word("coffee", 0.6, 1.0), word("is", 1.0, 1.1), word("long", 1.1, 1.5),
	}

	chunks := chunkWords(words, 4)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 4 || len(chunks[1]) != 2 {
		t.Errorf("unexpected chunk sizes: %d, %d", len(chunks[0]), len(chunks[1]))
	}
}

func TestChunkWordsBreaksAtSentenceEnd(t *testing.T) {
	words := []models.Word{
		word("it", 0, 0.2), word("works.", 0.2, 0.5),
		word("next", 0.5, 0.8), word("sentence", 0.8, 1.2),
	}

	chunks := chunkWords(words, 4)
	if len(chunks) != 2 {
		t.Fatalf("expected sentence break to split chunks, got %d chunks", len(chunks))
	}
	if chunks[0][len(chunks[0])-1].Text != "works." {
		t.Errorf("expected first chunk to end at sentence boundary, ends with %q", chunks[0][len(chunks[0])-1].Text)
	}
}

func TestChunkWordsNoSingleWordSentenceChunk(t *testing.T) {
	// A sentence end on the very first word of a chunk must not produce a
	// one-word chunk.
	words := []models.Word{
		word("no.", 0, 0.3), word("really", 0.3, 0.6),
	}

	chunks := chunkWords(words, 4)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestBuildHighlightedChunkText(t *testing.T) {
	chunk := []models.Word{
		word("the", 0, 0.2), word("history", 0.2, 0.5), word("of", 0.5, 0.6),
	}

	text := buildHighlightedChunkText(chunk, 1)

	if !strings.Contains(text, "THE") || !strings.Contains(text, "OF") {
		t.Errorf("expected uppercased inactive words, got %q", text)
	}
	if !strings.Contains(text, `{\3c`+colorPurple+`\bord8}HISTORY{\r}`) {
		t.Errorf("expected highlighted active word, got %q", text)
	}
	if strings.Count(text, `{\r}`) != 1 {
		t.Errorf("expected exactly one highlight, got %q", text)
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(0); got != "0:00:00.00" {
		t.Errorf("formatTime(0) = %q", got)
	}
	if got := formatTime(61.5); got != "0:01:01.50" {
		t.Errorf("formatTime(61.5) = %q", got)
	}
	if got := formatTime(3723.25); got != "1:02:03.25" {
		t.Errorf("formatTime(3723.25) = %q", got)
	}
	if got := formatTime(-1); got != "0:00:00.00" {
		t.Errorf("negative time must clamp to zero, got %q", got)
	}
}

func TestWriteASS(t *testing.T) {
	words := []models.Word{
		word("hello", 0, 0.4), word("world", 0.4, 0.9),
	}

	path := filepath.Join(t.TempDir(), "captions.ass")
	if err := WriteASS(words, path, 0); err != nil {
		t.Fatalf("WriteASS failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "PlayResX: 1080") || !strings.Contains(content, "PlayResY: 1920") {
		t.Error("expected portrait canvas resolution in header")
	}
	if !strings.Contains(content, fontName) {
		t.Error("expected style font in output")
	}
	// One dialogue line per word: each shows the chunk with that word active.
	if got := strings.Count(content, "Dialogue:"); got != 2 {
		t.Errorf("expected 2 dialogue lines, got %d", got)
	}
}

func TestWriteASSOffset(t *testing.T) {
	words := []models.Word{word("hello", 1, 1.5), word("again", 1.5, 2)}

	path := filepath.Join(t.TempDir(), "captions.ass")
	if err := WriteASS(words, path, 2.0); err != nil {
		t.Fatalf("WriteASS failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "0:00:03.00") {
		t.Errorf("expected offset timestamps in output:\n%s", data)
	}
}

func TestWriteASSEmptyWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.ass")
	if err := WriteASS(nil, path, 0); err == nil {
		t.Error("expected error for empty word list")
	}
}
