package captions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVTT = `WEBVTT

00:00:01.000 --> 00:00:04.000
Today we're at <c>Big Bob's Diner</c> in Manchester

00:00:04.000 --> 00:00:07.000
[Applause] for the burger challenge ♪

00:00:07.500 --> 00:00:10.000
let's see if I can finish it
`

const sampleSRT = `1
00:00:01,000 --> 00:00:04,000
Today we're at Big Bob's Diner

2
00:00:04,000 --> 00:00:07,000
for the burger challenge

3
00:03:30,000 --> 00:03:33,000
way past the intro window
`

func TestExtractIntro_VTT(t *testing.T) {
	t.Parallel()

	intro, ok := ExtractIntro(sampleVTT, FormatVTT, 180, 500)
	require.True(t, ok)
	assert.Equal(t, "Today we're at Big Bob's Diner in Manchester for the burger challenge let's see if I can finish it", intro.Text)
	assert.Equal(t, 3, intro.Segments)
	assert.Equal(t, len(strings.Fields(intro.Text)), intro.Words)
}

func TestExtractIntro_SRT_DurationBound(t *testing.T) {
	t.Parallel()

	intro, ok := ExtractIntro(sampleSRT, FormatSRT, 180, 500)
	require.True(t, ok)
	assert.Equal(t, "Today we're at Big Bob's Diner for the burger challenge", intro.Text)
	assert.NotContains(t, intro.Text, "intro window")
}

func TestExtractIntro_WordCapNeverExceeded(t *testing.T) {
	t.Parallel()

	for _, maxWords := range []int{1, 3, 5, 10, 500} {
		intro, ok := ExtractIntro(sampleVTT, FormatVTT, 180, maxWords)
		require.True(t, ok, "maxWords=%d", maxWords)
		assert.LessOrEqual(t, len(strings.Fields(intro.Text)), maxWords, "maxWords=%d", maxWords)
	}
}

func TestExtractIntro_DurationZeroExcludesLaterCues(t *testing.T) {
	t.Parallel()

	// Only the 1-second cue is out; a cue at exactly 0s would be included.
	_, ok := ExtractIntro(sampleVTT, FormatVTT, 0, 500)
	assert.False(t, ok)
}

func TestExtractIntro_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"garbage", "this is not a caption file at all"},
		{"timings only", "00:00:01.000 --> 00:00:04.000\n\n00:00:05.000 --> 00:00:06.000\n"},
		{"annotations only", "00:00:01.000 --> 00:00:04.000\n[Music]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, ok := ExtractIntro(tt.content, FormatVTT, 180, 500)
			assert.False(t, ok)
		})
	}
}

func TestExtractIntro_Deterministic(t *testing.T) {
	t.Parallel()

	a, okA := ExtractIntro(sampleVTT, FormatVTT, 180, 500)
	b, okB := ExtractIntro(sampleVTT, FormatVTT, 180, 500)
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, a, b)
}

func TestExtractIntroFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	vttPath := filepath.Join(dir, "video1.en.vtt")
	require.NoError(t, os.WriteFile(vttPath, []byte(sampleVTT), 0644))

	intro, ok := ExtractIntroFile(vttPath, 180, 500)
	require.True(t, ok)
	assert.Contains(t, intro.Text, "Big Bob's Diner")

	// Missing file degrades to no transcript.
	_, ok = ExtractIntroFile(filepath.Join(dir, "nope.vtt"), 180, 500)
	assert.False(t, ok)

	_, ok = ExtractIntroFile("", 180, 500)
	assert.False(t, ok)
}

func TestExtractIntroFile_UnknownExtensionFallsBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// SRT content under a neutral extension: VTT attempt also parses the
	// cue (shared timing syntax) so either path must produce the text.
	path := filepath.Join(dir, "video2.captions")
	require.NoError(t, os.WriteFile(path, []byte(sampleSRT), 0644))

	intro, ok := ExtractIntroFile(path, 180, 500)
	require.True(t, ok)
	assert.Contains(t, intro.Text, "burger challenge")
}
