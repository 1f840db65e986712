package heuristic

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"

	"github.com/davnau/medialens/internal/media"
)

// containerByExtension maps well-known media extensions to a display
// name for the container format they imply.
var containerByExtension = map[string]string{
	"mkv":  "MATROSKA/MKV",
	"mp4":  "MP4",
	"m4v":  "MP4",
	"avi":  "AVI",
	"mov":  "QUICKTIME/MOV",
	"wmv":  "WMV",
	"flv":  "FLV",
	"webm": "WEBM",
	"3gp":  "3GP",
	"ts":   "MPEG-TS",
	"mp3":  "MP3",
	"flac": "FLAC",
	"aac":  "AAC",
	"ogg":  "OGG",
	"wma":  "WMA",
	"wav":  "WAV",
	"m4a":  "M4A",
	"opus": "OPUS",
}

type dimensions struct {
	width  int
	height int
}

// resolutionByToken recognises the quality tokens commonly embedded in
// release filenames.
var resolutionByToken = map[string]dimensions{
	"4k":    {3840, 2160},
	"2160p": {3840, 2160},
	"1440p": {2560, 1440},
	"1080p": {1920, 1080},
	"720p":  {1280, 720},
	"576p":  {1024, 576},
	"480p":  {854, 480},
	"360p":  {640, 360},
}

// videoCodecByToken maps filename codec tokens to their canonical name.
var videoCodecByToken = map[string]string{
	"h264": "h264",
	"x264": "h264",
	"avc":  "h264",
	"h265": "hevc",
	"x265": "hevc",
	"hevc": "hevc",
	"av1":  "av1",
	"vp9":  "vp9",
	"xvid": "mpeg4",
	"divx": "mpeg4",
}

// languageByToken recognises language names and ISO-639 codes which
// release names commonly carry. Each match becomes one audio track entry.
var languageByToken = map[string]string{
	"hindi":      "Hindi",
	"hin":        "Hindi",
	"english":    "English",
	"eng":        "English",
	"tamil":      "Tamil",
	"tam":        "Tamil",
	"telugu":     "Telugu",
	"tel":        "Telugu",
	"malayalam":  "Malayalam",
	"kannada":    "Kannada",
	"bengali":    "Bengali",
	"marathi":    "Marathi",
	"punjabi":    "Punjabi",
	"urdu":       "Urdu",
	"spanish":    "Spanish",
	"spa":        "Spanish",
	"french":     "French",
	"fre":        "French",
	"german":     "German",
	"ger":        "German",
	"italian":    "Italian",
	"russian":    "Russian",
	"japanese":   "Japanese",
	"jpn":        "Japanese",
	"korean":     "Korean",
	"kor":        "Korean",
	"chinese":    "Chinese",
	"arabic":     "Arabic",
	"portuguese": "Portuguese",
}

// Engine derives approximate media metadata from a filename and the
// collaborator file record alone, for use when content inspection is
// impossible. It is deterministic and total: every input produces a
// MediaInfo, and fields which cannot be justified from the input are
// left explicitly unavailable rather than fabricated.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Infer builds a Heuristic MediaInfo from the file name, its recorded
// size and an optional mime hint. Duration and bitrate are never set on
// this path; the formatter renders them with a hint that full analysis
// requires the probing tool.
func (engine *Engine) Infer(fileName string, sizeBytes int64, mimeHint string) *media.MediaInfo {
	info := &media.MediaInfo{
		Provenance:      media.Heuristic,
		ContainerFormat: engine.inferContainer(fileName, mimeHint),
		SizeBytes:       sizeBytes,
	}

	tokens := tokenize(fileName)

	codec := media.UnknownValue
	var resolution *dimensions
	for _, token := range tokens {
		if resolution == nil {
			if dims, ok := resolutionByToken[token]; ok {
				resolution = &dims
				continue
			}
		}
		if codec == media.UnknownValue {
			if name, ok := videoCodecByToken[token]; ok {
				codec = name
			}
		}
	}

	if resolution != nil {
		info.Video = &media.VideoInfo{
			Codec:  codec,
			Width:  resolution.width,
			Height: resolution.height,
		}
	} else if codec != media.UnknownValue {
		info.Video = &media.VideoInfo{Codec: codec}
	}

	// Each recognised language token becomes one audio track, preserving
	// the order they appear in the filename. No tokens means no tracks;
	// tracks are never invented.
	seenLanguages := map[string]struct{}{}
	for _, token := range tokens {
		language, ok := languageByToken[token]
		if !ok {
			continue
		}
		if _, seen := seenLanguages[language]; seen {
			continue
		}

		seenLanguages[language] = struct{}{}
		info.AudioTracks = append(info.AudioTracks, media.AudioTrack{
			Language: language,
			Codec:    media.UnknownValue,
		})
	}

	return info
}

// inferContainer maps the filename extension to a container format,
// falling back to the mime hint when the extension is unrecognised.
func (engine *Engine) inferContainer(fileName string, mimeHint string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if container, ok := containerByExtension[ext]; ok {
		return container
	}

	if mimeHint != "" {
		if mime := mimetype.Lookup(mimeHint); mime != nil {
			hintedExt := strings.ToLower(strings.TrimPrefix(mime.Extension(), "."))
			if container, ok := containerByExtension[hintedExt]; ok {
				return container
			}
		}
	}

	return media.UnknownValue
}

// tokenize splits a filename in to lower-cased alphanumeric tokens so
// table lookups never match across word boundaries.
func tokenize(fileName string) []string {
	return strings.FieldsFunc(strings.ToLower(fileName), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
