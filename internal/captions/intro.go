// Package captions parses VTT/SRT caption tracks into a bounded intro transcript.
package captions

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Format identifies a timed-text caption format.
type Format string

const (
	FormatVTT Format = "vtt"
	FormatSRT Format = "srt"
)

// Intro is a plain-text transcript window bounded by elapsed time and word count.
type Intro struct {
	Text     string
	Words    int
	Segments int // source caption segments consumed
}

var (
	// Matches the start of a cue timing line in both formats:
	// "00:00:01.000 --> ..." (VTT) and "00:00:01,000 --> ..." (SRT).
	timingRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})[.,]?\d*\s*-->`)

	markupRe     = regexp.MustCompile(`<[^>]+>`)
	annotationRe = regexp.MustCompile(`\[[^\]]*\]`)
	noteRe       = regexp.MustCompile(`[♪♫]`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// ExtractIntroFile reads a caption file and extracts its intro. Format is
// detected from the file extension; unknown extensions try VTT first, then
// SRT. A missing or unparsable file yields ok=false, never an error.
func ExtractIntroFile(path string, maxDurationSeconds, maxWords int) (Intro, bool) {
	if path == "" {
		return Intro{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		zap.L().Debug("captions: read failed", zap.String("path", path), zap.Error(err))
		return Intro{}, false
	}
	content := string(data)

	switch {
	case strings.HasSuffix(path, ".vtt"):
		return ExtractIntro(content, FormatVTT, maxDurationSeconds, maxWords)
	case strings.HasSuffix(path, ".srt"):
		return ExtractIntro(content, FormatSRT, maxDurationSeconds, maxWords)
	default:
		if intro, ok := ExtractIntro(content, FormatVTT, maxDurationSeconds, maxWords); ok {
			return intro, true
		}
		return ExtractIntro(content, FormatSRT, maxDurationSeconds, maxWords)
	}
}

// ExtractIntro parses caption contents and returns the transcript of all cues
// starting at or before maxDurationSeconds, capped at maxWords words. Cues
// are emitted in source order; the result is deterministic for identical
// input. Garbage input yields ok=false.
func ExtractIntro(content string, format Format, maxDurationSeconds, maxWords int) (Intro, bool) {
	if maxWords <= 0 || maxDurationSeconds < 0 {
		return Intro{}, false
	}

	lines := strings.Split(content, "\n")
	var words []string
	segments := 0

scan:
	for i := 0; i < len(lines); i++ {
		m := timingRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}

		start := cueStartSeconds(m)
		if start > maxDurationSeconds {
			break
		}

		// Consume the cue's text lines.
		for i++; i < len(lines); i++ {
			text := strings.TrimSpace(lines[i])
			if text == "" || isCueBoundary(text, format) {
				i--
				break
			}

			text = cleanCueText(text)
			if text == "" {
				continue
			}

			segments++
			for _, w := range strings.Fields(text) {
				words = append(words, w)
				if len(words) >= maxWords {
					break scan
				}
			}
		}
	}

	if len(words) == 0 {
		return Intro{}, false
	}
	return Intro{
		Text:     strings.Join(words, " "),
		Words:    len(words),
		Segments: segments,
	}, true
}

// cueStartSeconds computes a cue's start time, discarding the sub-second part.
func cueStartSeconds(m []string) int {
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	return hours*3600 + minutes*60 + seconds
}

// isCueBoundary reports whether a non-empty line starts the next cue rather
// than continuing the current one. SRT interleaves bare sequence numbers.
func isCueBoundary(line string, format Format) bool {
	if strings.Contains(line, "-->") {
		return true
	}
	if format == FormatSRT && isAllDigits(line) {
		return true
	}
	return false
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// cleanCueText strips inline markup, bracketed non-speech annotations
// ([Music], [Applause]), musical note glyphs, and collapses whitespace.
func cleanCueText(text string) string {
	text = markupRe.ReplaceAllString(text, "")
	text = annotationRe.ReplaceAllString(text, "")
	text = noteRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
