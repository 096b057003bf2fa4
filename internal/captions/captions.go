package captions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobarin/reelsmith/internal/models"
)

// ---------------------------------------------------------------------------
// Word-by-word highlighted caption track in ASS (Advanced SubStation Alpha)
// format. Words are shown in small chunks (3-4 at a time) with the currently
// spoken word highlighted in a purple "pill" border. The track is burned into
// the video at composition time, never attached as a soft subtitle stream.
//
// Visual style:
//   - Bold white uppercase text, centered near the bottom of the 1080x1920 frame
//   - Dark outline on all words for readability on any background
//   - Active word: thick purple border creating a "pill highlight" effect
// ---------------------------------------------------------------------------

const (
	// How many words to show at once.
	wordsPerChunk = 4

	// Must match a font installed where ffmpeg runs. Noto Sans is clean,
	// modern, and supports many languages.
	fontName = "Noto Sans"
	fontSize = 62 // scaled for a 1920-height canvas

	// ASS colors are in &HAABBGGRR format (hex, BGR not RGB).
	colorWhite     = "&H00FFFFFF"
	colorBlack     = "&H00000000"
	colorPurple    = "&H00CC3299" // #9932CC in BGR
	colorSemiBlack = "&H80000000"

	outlineNormal    = 3
	outlineHighlight = 8

	// Distance from the bottom of the 1920-height canvas.
	marginV = 220
)

// WriteASS builds the caption track from aligned words and writes it to
// outputPath. offsetSec shifts every timestamp, for audio with prepended
// padding. Parent directories are created as needed.
func WriteASS(words []models.Word, outputPath string, offsetSec float64) error {
	if len(words) == 0 {
		return fmt.Errorf("no words to build captions from")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create captions dir: %w", err)
	}

	chunks := chunkWords(words, wordsPerChunk)

	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("PlayResX: 1080\n")
	sb.WriteString("PlayResY: 1920\n")
	sb.WriteString("WrapStyle: 0\n")
	sb.WriteString("ScaledBorderAndShadow: yes\n")
	sb.WriteString("\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	sb.WriteString(fmt.Sprintf(
		"Style: Default,%s,%d,%s,%s,%s,%s,-1,0,0,0,100,100,1,0,1,%d,0,2,40,40,%d,1\n",
		fontName, fontSize,
		colorWhite,
		colorWhite,
		colorBlack,
		colorSemiBlack,
		outlineNormal,
		marginV,
	))
	sb.WriteString("\n")

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, chunk := range chunks {
		for wordIdx, word := range chunk {
			startTime := word.Start + offsetSec
			var endTime float64
			if wordIdx < len(chunk)-1 {
				// End when the next word starts, for a seamless transition.
				endTime = chunk[wordIdx+1].Start + offsetSec
			} else {
				endTime = word.End + offsetSec
			}

			sb.WriteString(fmt.Sprintf(
				"Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
				formatTime(startTime),
				formatTime(endTime),
				buildHighlightedChunkText(chunk, wordIdx),
			))
		}
	}

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write ASS caption file: %w", err)
	}
	return nil
}

// chunkWords groups words into display chunks, breaking early at sentence
// boundaries (., !, ?) to keep chunks natural.
func chunkWords(words []models.Word, chunkSize int) [][]models.Word {
	var chunks [][]models.Word
	var current []models.Word

	for _, word := range words {
		current = append(current, word)

		isSentenceEnd := strings.ContainsAny(word.Text, ".!?")
		if len(current) >= chunkSize || (isSentenceEnd && len(current) >= 2) {
			chunks = append(chunks, current)
			current = nil
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}

// buildHighlightedChunkText renders a chunk with the word at activeIdx wrapped
// in a thick purple border.
//
// Output example: "THE {\3c&H00CC3299&\bord8}HISTORY{\r} OF COFFEE"
func buildHighlightedChunkText(chunk []models.Word, activeIdx int) string {
	var parts []string

	for i, word := range chunk {
		cleanWord := strings.ToUpper(strings.TrimSpace(word.Text))
		if cleanWord == "" {
			continue
		}

		if i == activeIdx {
			parts = append(parts, fmt.Sprintf(
				"{\\3c%s\\bord%d}%s{\\r}",
				colorPurple, outlineHighlight, cleanWord,
			))
		} else {
			parts = append(parts, cleanWord)
		}
	}

	return strings.Join(parts, " ")
}

// formatTime converts seconds to the ASS timestamp format H:MM:SS.CC.
func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	centiseconds := int((seconds - float64(int(seconds))) * 100)

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centiseconds)
}
