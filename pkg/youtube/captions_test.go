package youtube

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("WEBVTT\n"), 0o644))
	return path
}

func TestFindCaptionFilePreference(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	d, err := NewCaptionDownloader(dir)
	require.NoError(t, err)

	// Nothing yet.
	_, ok := d.findCaptionFile("vid1")
	assert.False(t, ok)

	// A regional variant is found when it is all there is.
	variant := writeFile(t, dir, "vid1.en-GB.vtt")
	path, ok := d.findCaptionFile("vid1")
	require.True(t, ok)
	assert.Equal(t, variant, path)

	// Plain English wins over the variant.
	plain := writeFile(t, dir, "vid1.en.vtt")
	path, ok = d.findCaptionFile("vid1")
	require.True(t, ok)
	assert.Equal(t, plain, path)
}

func TestFindCaptionFileVTTBeatsSRT(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	d, err := NewCaptionDownloader(dir)
	require.NoError(t, err)

	writeFile(t, dir, "vid2.en-US.srt")
	vtt := writeFile(t, dir, "vid2.en-US.vtt")

	path, ok := d.findCaptionFile("vid2")
	require.True(t, ok)
	assert.Equal(t, vtt, path)
}

func TestFindCaptionFileIgnoresOtherVideos(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	d, err := NewCaptionDownloader(dir)
	require.NoError(t, err)

	writeFile(t, dir, "other.en.vtt")
	_, ok := d.findCaptionFile("vid3")
	assert.False(t, ok)
}

func TestDownloadReusesExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// A binary path that would fail if executed proves the cache short-circuits.
	d, err := NewCaptionDownloader(dir, WithYtDlpPath("/nonexistent/yt-dlp"))
	require.NoError(t, err)

	existing := writeFile(t, dir, "vid4.en.vtt")

	path, ok := d.Download(context.Background(), "vid4")
	require.True(t, ok)
	assert.Equal(t, existing, path)
}

func TestDownloadWithFakeBinary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	binDir := t.TempDir()

	// A stand-in for yt-dlp that drops a caption file where the output
	// template points.
	script := filepath.Join(binDir, "yt-dlp")
	require.NoError(t, os.WriteFile(script, []byte(
		"#!/bin/sh\ntouch \""+dir+"/vid5.en.vtt\"\n"), 0o755))

	d, err := NewCaptionDownloader(dir,
		WithYtDlpPath(script),
		WithDownloadTimeout(10*time.Second),
	)
	require.NoError(t, err)

	path, ok := d.Download(context.Background(), "vid5")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "vid5.en.vtt"), path)
}

func TestDownloadBinaryFailure(t *testing.T) {
	t.Parallel()

	d, err := NewCaptionDownloader(t.TempDir(), WithYtDlpPath("/nonexistent/yt-dlp"))
	require.NoError(t, err)

	_, ok := d.Download(context.Background(), "vid6")
	assert.False(t, ok)
}
