package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/davnau/medialens/internal/media"
)

// ProbeError indicates the probing subprocess failed or produced output
// we could not make sense of. The pipeline treats it identically to
// "tool unavailable" and falls through to heuristics; it must never
// surface to the end user as-is.
type ProbeError struct {
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("probe failed: %s", e.Reason)
	}
	return fmt.Sprintf("probe failed: %s: %s", e.Reason, e.Err.Error())
}

func (e *ProbeError) Unwrap() error { return e.Err }

const defaultProbeTimeout = 30 * time.Second

type (
	InvokerConfig struct {
		// TimeoutSeconds bounds a single ffprobe invocation.
		TimeoutSeconds int `yaml:"probe_timeout_seconds" env:"FFPROBE_TIMEOUT" env-default:"30"`
	}

	// Invoker runs the ffprobe executable against a local media file and
	// normalises its JSON output in to the unified MediaInfo model.
	Invoker struct {
		timeout time.Duration
	}
)

func NewInvoker(config InvokerConfig) *Invoker {
	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	return &Invoker{timeout: timeout}
}

// Probe invokes ffprobe at commandPath against mediaPath, requesting
// machine-readable JSON with full stream and chapter enumeration. A
// timeout, non-zero exit, or malformed output is reported as a
// ProbeError. Stdout is the sole data channel.
func (invoker *Invoker) Probe(ctx context.Context, commandPath string, mediaPath string) (*media.MediaInfo, error) {
	probeCtx, cancel := context.WithTimeout(ctx, invoker.timeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, commandPath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-show_chapters",
		mediaPath,
	)

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return nil, &ProbeError{Reason: "ffprobe timed out", Err: err}
		}
		return nil, &ProbeError{Reason: "ffprobe exited abnormally", Err: err}
	}

	return ParseOutput(out)
}

// ParseOutput converts raw ffprobe JSON in to a MediaInfo tagged as
// Probed. The output comes from an external subprocess and is treated as
// untrusted: missing fields are tolerated and become unavailable values,
// while a structurally unusable document is a ProbeError. Stream and
// chapter ordering is preserved exactly as the tool reported it.
//
// Exported so the parser can be exercised without a real ffprobe binary.
func ParseOutput(raw []byte) (*media.MediaInfo, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &ProbeError{Reason: "ffprobe output is not valid JSON"}
	}

	doc := gjson.ParseBytes(raw)
	format := doc.Get("format")
	streams := doc.Get("streams")
	if !format.Exists() && !streams.Exists() {
		return nil, &ProbeError{Reason: "ffprobe output missing both format and stream sections"}
	}

	info := &media.MediaInfo{
		Provenance:      media.Probed,
		ContainerFormat: media.UnknownValue,
	}

	if name := format.Get("format_name"); name.Exists() && name.String() != "" {
		info.ContainerFormat = strings.ToUpper(name.String())
	}

	if duration, ok := parseSeconds(format.Get("duration")); ok {
		info.Duration = &duration
	}

	if bitrate := format.Get("bit_rate"); bitrate.Exists() {
		if bps, err := strconv.ParseInt(bitrate.String(), 10, 64); err == nil && bps > 0 {
			kbps := bps / 1000
			info.BitrateKbps = &kbps
		}
	}

	for _, stream := range streams.Array() {
		switch stream.Get("codec_type").String() {
		case "video":
			if info.Video == nil {
				info.Video = parseVideoStream(stream)
			}
		case "audio":
			info.AudioTracks = append(info.AudioTracks, parseAudioStream(stream))
		case "subtitle":
			info.SubtitleTracks = append(info.SubtitleTracks, media.SubtitleTrack{
				Language: streamLanguage(stream),
				Codec:    streamCodec(stream),
			})
		}
	}

	chapters := doc.Get("chapters").Array()
	info.ChapterCount = len(chapters)
	for i, chapter := range chapters {
		if i >= media.MaxDisplayChapters {
			break
		}

		title := chapter.Get("tags.title").String()
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}

		offset := time.Duration(0)
		if start, ok := parseSeconds(chapter.Get("start_time")); ok {
			offset = start
		}

		info.Chapters = append(info.Chapters, media.Chapter{Title: title, StartOffset: offset})
	}

	return info, nil
}

func parseVideoStream(stream gjson.Result) *media.VideoInfo {
	video := &media.VideoInfo{
		Codec:  streamCodec(stream),
		Width:  int(stream.Get("width").Int()),
		Height: int(stream.Get("height").Int()),
	}

	if fps, ok := parseFrameRate(stream.Get("r_frame_rate").String()); ok {
		video.FrameRate = &fps
	}

	return video
}

func parseAudioStream(stream gjson.Result) media.AudioTrack {
	track := media.AudioTrack{
		Language: streamLanguage(stream),
		Codec:    streamCodec(stream),
		Title:    stream.Get("tags.title").String(),
	}

	if channels := stream.Get("channels"); channels.Exists() && channels.Int() > 0 {
		count := int(channels.Int())
		track.Channels = &count
	}

	if rate := stream.Get("sample_rate"); rate.Exists() {
		if hz, err := strconv.Atoi(rate.String()); err == nil && hz > 0 {
			track.SampleRate = &hz
		}
	}

	return track
}

// streamLanguage pulls the language tag from a stream, substituting the
// explicit unknown marker when the tag is missing or unlabelled.
func streamLanguage(stream gjson.Result) string {
	if lang := stream.Get("tags.language").String(); lang != "" {
		return lang
	}
	return media.UnknownLanguage
}

func streamCodec(stream gjson.Result) string {
	if codec := stream.Get("codec_name").String(); codec != "" {
		return codec
	}
	return media.UnknownValue
}

// parseSeconds interprets an ffprobe decimal-seconds value (typically a
// string such as "5405.104000") as a duration.
func parseSeconds(value gjson.Result) (time.Duration, bool) {
	if !value.Exists() {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(value.String(), 64)
	if err != nil || seconds < 0 {
		return 0, false
	}

	return time.Duration(seconds * float64(time.Second)), true
}

// parseFrameRate converts ffprobe's rational frame rate ("24000/1001")
// to frames-per-second.
func parseFrameRate(raw string) (float64, bool) {
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		return 0, false
	}

	numerator, err1 := strconv.ParseFloat(parts[0], 64)
	denominator, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || denominator == 0 || numerator <= 0 {
		return 0, false
	}

	return numerator / denominator, true
}
