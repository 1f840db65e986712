package infos

import (
	"time"

	"github.com/davnau/medialens/internal/media"
	"github.com/davnau/medialens/internal/mediainfo"
)

type (
	VideoDto struct {
		Codec     string   `json:"codec"`
		Width     int      `json:"width,omitempty"`
		Height    int      `json:"height,omitempty"`
		FrameRate *float64 `json:"frame_rate,omitempty"`
	}

	AudioTrackDto struct {
		Language   string `json:"language"`
		Codec      string `json:"codec"`
		Title      string `json:"title,omitempty"`
		Channels   *int   `json:"channels,omitempty"`
		SampleRate *int   `json:"sample_rate,omitempty"`
	}

	SubtitleTrackDto struct {
		Language string `json:"language"`
		Codec    string `json:"codec"`
	}

	ChapterDto struct {
		Title        string  `json:"title"`
		StartSeconds float64 `json:"start_seconds"`
	}

	InfoDto struct {
		Provenance      string             `json:"provenance"`
		ContainerFormat string             `json:"container_format"`
		SizeBytes       int64              `json:"size_bytes"`
		DurationSeconds *float64           `json:"duration_seconds,omitempty"`
		BitrateKbps     *int64             `json:"bitrate_kbps,omitempty"`
		Video           *VideoDto          `json:"video,omitempty"`
		AudioTracks     []AudioTrackDto    `json:"audio_tracks"`
		SubtitleTracks  []SubtitleTrackDto `json:"subtitle_tracks"`
		Chapters        []ChapterDto       `json:"chapters"`
		ChapterCount    int                `json:"chapter_count"`
	}

	ReportDto struct {
		FileKey  string  `json:"file_key"`
		FileName string  `json:"file_name"`
		Report   string  `json:"report"`
		Info     InfoDto `json:"info"`
	}
)

func NewDto(report *mediainfo.Report) ReportDto {
	return ReportDto{
		FileKey:  report.FileKey,
		FileName: report.FileName,
		Report:   report.Text,
		Info:     infoToDto(report.Info),
	}
}

func infoToDto(info *media.MediaInfo) InfoDto {
	dto := InfoDto{
		Provenance:      info.Provenance.String(),
		ContainerFormat: info.ContainerFormat,
		SizeBytes:       info.SizeBytes,
		BitrateKbps:     info.BitrateKbps,
		AudioTracks:     make([]AudioTrackDto, 0, len(info.AudioTracks)),
		SubtitleTracks:  make([]SubtitleTrackDto, 0, len(info.SubtitleTracks)),
		Chapters:        make([]ChapterDto, 0, len(info.Chapters)),
		ChapterCount:    info.ChapterCount,
	}

	if info.Duration != nil {
		seconds := info.Duration.Seconds()
		dto.DurationSeconds = &seconds
	}

	if info.Video != nil {
		dto.Video = &VideoDto{
			Codec:     info.Video.Codec,
			Width:     info.Video.Width,
			Height:    info.Video.Height,
			FrameRate: info.Video.FrameRate,
		}
	}

	for _, track := range info.AudioTracks {
		dto.AudioTracks = append(dto.AudioTracks, AudioTrackDto(track))
	}

	for _, track := range info.SubtitleTracks {
		dto.SubtitleTracks = append(dto.SubtitleTracks, SubtitleTrackDto(track))
	}

	for _, chapter := range info.Chapters {
		dto.Chapters = append(dto.Chapters, ChapterDto{
			Title:        chapter.Title,
			StartSeconds: chapter.StartOffset.Round(time.Millisecond).Seconds(),
		})
	}

	return dto
}
