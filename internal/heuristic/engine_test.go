package heuristic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davnau/medialens/internal/media"
)

func TestInfer_ReleaseStyleFilename(t *testing.T) {
	engine := NewEngine()
	info := engine.Infer("Avengers.2012.720p.Hindi.English.x264.mkv", 734003200, "")

	assert.Equal(t, media.Heuristic, info.Provenance)
	assert.Equal(t, "MATROSKA/MKV", info.ContainerFormat)
	assert.EqualValues(t, 734003200, info.SizeBytes)

	require.NotNil(t, info.Video)
	assert.Equal(t, "h264", info.Video.Codec)
	assert.Equal(t, 1280, info.Video.Width)
	assert.Equal(t, 720, info.Video.Height)

	require.Len(t, info.AudioTracks, 2)
	assert.Equal(t, "Hindi", info.AudioTracks[0].Language)
	assert.Equal(t, "English", info.AudioTracks[1].Language)
	assert.Equal(t, media.UnknownValue, info.AudioTracks[0].Codec)

	// Duration and bitrate cannot be justified from a filename.
	assert.Nil(t, info.Duration)
	assert.Nil(t, info.BitrateKbps)
}

func TestInfer_FirstResolutionTokenWins(t *testing.T) {
	info := NewEngine().Infer("Show.S01E01.1080p.720p.mkv", 0, "")

	require.NotNil(t, info.Video)
	assert.Equal(t, 1920, info.Video.Width)
	assert.Equal(t, 1080, info.Video.Height)
}

func TestInfer_ResolutionWithoutCodec(t *testing.T) {
	info := NewEngine().Infer("Holiday.Video.2160p.mp4", 0, "")

	require.NotNil(t, info.Video)
	assert.Equal(t, media.UnknownValue, info.Video.Codec)
	assert.Equal(t, 3840, info.Video.Width)
}

func TestInfer_DeduplicatesLanguages(t *testing.T) {
	info := NewEngine().Infer("Movie.Hindi.Hin.English.Eng.mkv", 0, "")

	require.Len(t, info.AudioTracks, 2)
	assert.Equal(t, "Hindi", info.AudioTracks[0].Language)
	assert.Equal(t, "English", info.AudioTracks[1].Language)
}

func TestInfer_MimeHintForUnknownExtension(t *testing.T) {
	info := NewEngine().Infer("shared-upload.bin", 0, "video/webm")
	assert.Equal(t, "WEBM", info.ContainerFormat)
}

func TestInfer_Total(t *testing.T) {
	tests := []struct {
		summary  string
		fileName string
		mimeHint string
	}{
		{summary: "empty inputs", fileName: "", mimeHint: ""},
		{summary: "no extension", fileName: "README", mimeHint: ""},
		{summary: "unhelpful mime", fileName: "archive.zip", mimeHint: "application/octet-stream"},
		{summary: "symbols only", fileName: "!!!...---", mimeHint: ""},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			info := NewEngine().Infer(test.fileName, 0, test.mimeHint)

			require.NotNil(t, info)
			assert.Equal(t, media.Heuristic, info.Provenance)
			assert.Equal(t, media.UnknownValue, info.ContainerFormat)
			assert.Nil(t, info.Video)
			assert.Empty(t, info.AudioTracks)
		})
	}
}
