package media

import (
	"fmt"
	"strings"
	"time"
)

// probeHint is rendered in place of fields a heuristic result cannot
// justify, so the reader knows richer analysis is possible.
const probeHint = "Not Available (install ffprobe for full analysis)"

// Render produces the human-readable report for a MediaInfo. It is a
// pure function: no I/O, stable output for a given input.
//
// Every populated field is rendered. In heuristic mode, fields which
// could not be derived are rendered with an explicit hint rather than
// silently omitted. Chapter output is limited to MaxDisplayChapters
// entries with an "...and N more" suffix when truncated.
func Render(info *MediaInfo, displayName string) string {
	b := &strings.Builder{}

	fmt.Fprintf(b, "Media Information\n")
	fmt.Fprintf(b, "File:     %s\n", displayName)
	fmt.Fprintf(b, "Format:   %s\n", info.ContainerFormat)
	fmt.Fprintf(b, "Size:     %s\n", humanBytes(info.SizeBytes))
	fmt.Fprintf(b, "Duration: %s\n", optionalDuration(info))
	fmt.Fprintf(b, "Bitrate:  %s\n", optionalBitrate(info))

	if info.Video != nil {
		b.WriteString("\nVideo\n")
		fmt.Fprintf(b, "  Codec: %s\n", info.Video.Codec)
		if info.Video.Width > 0 && info.Video.Height > 0 {
			fmt.Fprintf(b, "  Resolution: %dx%d\n", info.Video.Width, info.Video.Height)
		}
		if info.Video.FrameRate != nil {
			fmt.Fprintf(b, "  Frame Rate: %.2f fps\n", *info.Video.FrameRate)
		}
	}

	if len(info.AudioTracks) > 0 {
		fmt.Fprintf(b, "\nAudio Tracks: %d\n", len(info.AudioTracks))
		for i, track := range info.AudioTracks {
			fmt.Fprintf(b, "  %d. %s%s\n", i+1, track.Language, audioTrackDetail(track))
		}
	}

	if len(info.SubtitleTracks) > 0 {
		fmt.Fprintf(b, "\nSubtitles: %d\n", len(info.SubtitleTracks))
		for i, track := range info.SubtitleTracks {
			fmt.Fprintf(b, "  %d. %s (%s)\n", i+1, track.Language, track.Codec)
		}
	}

	if info.ChapterCount > 0 {
		fmt.Fprintf(b, "\nChapters: %d\n", info.ChapterCount)
		for i, chapter := range info.Chapters {
			fmt.Fprintf(b, "  %d. %s [%s]\n", i+1, chapter.Title, chapterOffset(chapter.StartOffset))
		}
		if remainder := info.ChapterCount - len(info.Chapters); remainder > 0 {
			fmt.Fprintf(b, "  ...and %d more\n", remainder)
		}
	}

	b.WriteString("\n")
	if info.Provenance == Probed {
		b.WriteString("Source: content analysis (ffprobe)\n")
	} else {
		b.WriteString("Source: filename analysis; install ffprobe for full stream details\n")
	}

	return b.String()
}

func optionalDuration(info *MediaInfo) string {
	if info.Duration != nil {
		return formatDuration(*info.Duration)
	}
	if info.Provenance == Heuristic {
		return probeHint
	}
	return UnknownValue
}

func optionalBitrate(info *MediaInfo) string {
	if info.BitrateKbps != nil {
		return fmt.Sprintf("%d kbps", *info.BitrateKbps)
	}
	if info.Provenance == Heuristic {
		return probeHint
	}
	return UnknownValue
}

func audioTrackDetail(track AudioTrack) string {
	details := []string{track.Codec}
	if track.Channels != nil {
		details = append(details, fmt.Sprintf("%dch", *track.Channels))
	}
	if track.SampleRate != nil {
		details = append(details, fmt.Sprintf("%d Hz", *track.SampleRate))
	}
	if track.Title != "" {
		details = append(details, track.Title)
	}

	return fmt.Sprintf(" (%s)", strings.Join(details, ", "))
}

// formatDuration renders a duration as "2h 15m 30s", dropping leading
// units which are zero.
func formatDuration(d time.Duration) string {
	total := int64(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// chapterOffset renders a chapter start as "HH:MM:SS".
func chapterOffset(d time.Duration) string {
	total := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// humanBytes renders a byte count with binary-prefixed units, one
// decimal place.
func humanBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	value := float64(size)
	suffixes := []string{"KiB", "MiB", "GiB", "TiB", "PiB"}
	idx := -1
	for value >= unit && idx < len(suffixes)-1 {
		value /= unit
		idx++
	}

	return fmt.Sprintf("%.1f %s", value, suffixes[idx])
}
