package media

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int                     { return &v }
func int64Ptr(v int64) *int64               { return &v }
func floatPtr(v float64) *float64           { return &v }
func durPtr(d time.Duration) *time.Duration { return &d }

func probedFixture() *MediaInfo {
	return &MediaInfo{
		Provenance:      Probed,
		ContainerFormat: "MATROSKA,WEBM",
		SizeBytes:       700 * 1024 * 1024,
		Duration:        durPtr(2*time.Hour + 15*time.Minute + 30*time.Second),
		BitrateKbps:     int64Ptr(1500),
		Video: &VideoInfo{
			Codec:     "h264",
			Width:     1920,
			Height:    1080,
			FrameRate: floatPtr(23.976),
		},
		AudioTracks: []AudioTrack{
			{Language: "eng", Codec: "aac", Channels: intPtr(6), SampleRate: intPtr(48000), Title: "Surround"},
			{Language: "hin", Codec: "ac3", Channels: intPtr(2)},
		},
		SubtitleTracks: []SubtitleTrack{
			{Language: "spa", Codec: "subrip"},
		},
	}
}

func TestRender_ProbedReport(t *testing.T) {
	report := Render(probedFixture(), "Avengers.2012.1080p.mkv")

	assert.Contains(t, report, "File:     Avengers.2012.1080p.mkv")
	assert.Contains(t, report, "Format:   MATROSKA,WEBM")
	assert.Contains(t, report, "Size:     700.0 MiB")
	assert.Contains(t, report, "Duration: 2h 15m 30s")
	assert.Contains(t, report, "Bitrate:  1500 kbps")
	assert.Contains(t, report, "Resolution: 1920x1080")
	assert.Contains(t, report, "Frame Rate: 23.98 fps")
	assert.Contains(t, report, "1. eng (aac, 6ch, 48000 Hz, Surround)")
	assert.Contains(t, report, "2. hin (ac3, 2ch)")
	assert.Contains(t, report, "Subtitles: 1")
	assert.Contains(t, report, "Source: content analysis (ffprobe)")
	assert.NotContains(t, report, probeHint)
}

func TestRender_ChapterTruncationSuffix(t *testing.T) {
	info := probedFixture()
	info.ChapterCount = 20
	for i := 0; i < MaxDisplayChapters; i++ {
		info.Chapters = append(info.Chapters, Chapter{
			Title:       fmt.Sprintf("Part %d", i+1),
			StartOffset: time.Duration(i) * 5 * time.Minute,
		})
	}

	report := Render(info, "movie.mkv")

	assert.Contains(t, report, "Chapters: 20")
	assert.Contains(t, report, "1. Part 1 [00:00:00]")
	assert.Contains(t, report, "5. Part 5 [00:20:00]")
	assert.Contains(t, report, "...and 15 more")
	assert.NotContains(t, report, "Part 6")
}

func TestRender_HeuristicHintsAtMissingFields(t *testing.T) {
	info := &MediaInfo{
		Provenance:      Heuristic,
		ContainerFormat: "MATROSKA/MKV",
		SizeBytes:       1536,
		Video:           &VideoInfo{Codec: "h264", Width: 1280, Height: 720},
		AudioTracks: []AudioTrack{
			{Language: "Hindi", Codec: UnknownValue},
		},
	}

	report := Render(info, "movie.720p.hindi.mkv")

	assert.Contains(t, report, "Duration: "+probeHint)
	assert.Contains(t, report, "Bitrate:  "+probeHint)
	assert.Contains(t, report, "1. Hindi (Unknown)")
	assert.Contains(t, report, "Source: filename analysis; install ffprobe for full stream details")
}

func TestRender_ProbedMissingFieldsAreUnknown(t *testing.T) {
	info := &MediaInfo{
		Provenance:      Probed,
		ContainerFormat: UnknownValue,
		SizeBytes:       2048,
	}

	report := Render(info, "odd.mkv")

	assert.Contains(t, report, "Duration: "+UnknownValue)
	assert.Contains(t, report, "Bitrate:  "+UnknownValue)
	assert.NotContains(t, report, probeHint)

	// No stream sections without stream data.
	assert.NotContains(t, report, "Video")
	assert.NotContains(t, report, "Audio Tracks")
}

func TestRender_IsStable(t *testing.T) {
	first := Render(probedFixture(), "movie.mkv")
	second := Render(probedFixture(), "movie.mkv")
	assert.Equal(t, first, second)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{45 * time.Second, "45s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + 15*time.Minute + 30*time.Second, "2h 15m 30s"},
		{0, "0s"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, formatDuration(test.duration))
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{700 * 1024 * 1024, "700.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, humanBytes(test.size))
	}
}

func TestRender_EndsWithSingleTrailingNewline(t *testing.T) {
	report := Render(probedFixture(), "movie.mkv")
	assert.True(t, strings.HasSuffix(report, "\n"))
	assert.False(t, strings.HasSuffix(report, "\n\n"))
}
