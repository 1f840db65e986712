package media

import "time"

// Provenance records whether a MediaInfo came from genuine content
// inspection (ffprobe) or was inferred from the filename and the file
// record alone. Consumers must treat heuristic values as approximate.
type Provenance int

const (
	Probed Provenance = iota
	Heuristic
)

func (p Provenance) String() string {
	if p == Probed {
		return "probed"
	}
	return "heuristic"
}

const (
	// UnknownLanguage is substituted for streams which carry no language
	// tag, mirroring the ISO-639 "undetermined" code ffprobe emits.
	UnknownLanguage = "und"

	// UnknownValue marks string fields which could not be derived. It is
	// deliberately explicit rather than an empty string so the formatter
	// and tests can distinguish "not derivable" from "not parsed".
	UnknownValue = "Unknown"

	// MaxDisplayChapters caps how many chapters are retained for display.
	// The true chapter total is kept alongside the truncated list.
	MaxDisplayChapters = 5
)

type (
	VideoInfo struct {
		Codec     string
		Width     int
		Height    int
		FrameRate *float64
	}

	AudioTrack struct {
		Language   string
		Codec      string
		Title      string
		Channels   *int
		SampleRate *int
	}

	SubtitleTrack struct {
		Language string
		Codec    string
	}

	Chapter struct {
		Title       string
		StartOffset time.Duration
	}

	// MediaInfo is the unified result of an extraction. Both the probed
	// and heuristic paths produce this one shape; optional fields are
	// pointers so "unavailable" is represented explicitly (nil) rather
	// than as a zero value masquerading as data.
	MediaInfo struct {
		Provenance      Provenance
		ContainerFormat string
		SizeBytes       int64
		Duration        *time.Duration
		BitrateKbps     *int64
		Video           *VideoInfo
		AudioTracks     []AudioTrack
		SubtitleTracks  []SubtitleTrack

		// Chapters holds at most MaxDisplayChapters entries in the order
		// the probing tool reported them; ChapterCount is the real total.
		Chapters     []Chapter
		ChapterCount int
	}
)
