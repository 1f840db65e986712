package mediainfo

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/davnau/medialens/internal/database"
	"github.com/davnau/medialens/internal/fetch"
	"github.com/davnau/medialens/internal/ffprobe"
	"github.com/davnau/medialens/internal/file"
	"github.com/davnau/medialens/internal/heuristic"
	"github.com/davnau/medialens/internal/media"
	"github.com/davnau/medialens/pkg/cache"
	"github.com/davnau/medialens/pkg/logger"
)

var log = logger.Get("MediaInfo")

// mediaExtensions is the set of extensions worth probing. Anything else
// short-circuits to the heuristic path without spending a fetch or a
// subprocess on content that ffprobe cannot analyse anyway.
var mediaExtensions = map[string]struct{}{
	"mp4": {}, "mkv": {}, "avi": {}, "mov": {}, "wmv": {}, "flv": {},
	"webm": {}, "m4v": {}, "3gp": {}, "ts": {},
	"mp3": {}, "flac": {}, "aac": {}, "ogg": {}, "wma": {}, "wav": {},
	"m4a": {}, "opus": {},
}

// failureKind classifies an extraction failure for the fallback decision
// table. Keeping the mapping explicit (rather than deciding fallback
// wherever an error happens to be caught) makes the trigger set
// auditable and testable on its own.
type failureKind int

const (
	failureFetch failureKind = iota
	failureProvision
	failureProbe
	failureUnknown
)

func (k failureKind) String() string {
	return []string{"fetch", "provision", "probe", "unknown"}[k]
}

// fallbackDecision maps each failure kind to whether the pipeline
// proceeds to the heuristic engine (true) or surfaces the error to the
// caller (false). Only the file-not-found case, handled before
// extraction begins, ever surfaces.
var fallbackDecision = map[failureKind]bool{
	failureFetch:     true,
	failureProvision: true,
	failureProbe:     true,
	failureUnknown:   true,
}

func classifyFailure(err error) failureKind {
	var fetchErr *fetch.FetchError
	var probeErr *ffprobe.ProbeError
	var downloadErr *ffprobe.DownloadError

	switch {
	case errors.As(err, &fetchErr):
		return failureFetch
	case errors.As(err, &downloadErr), errors.Is(err, ffprobe.ErrUnsupportedPlatform):
		return failureProvision
	case errors.As(err, &probeErr):
		return failureProbe
	default:
		return failureUnknown
	}
}

type (
	// Provisioner yields the path of a usable ffprobe executable,
	// acquiring one if necessary.
	Provisioner interface {
		Ensure(ctx context.Context) ffprobe.ProvisionState
		CommandPath() (string, bool)
	}

	// Fetcher retrieves the leading bytes of remote content to a local
	// temp file.
	Fetcher interface {
		FetchHead(ctx context.Context, storageRef string) (string, func(), error)
	}

	// Prober runs content analysis against a local media file.
	Prober interface {
		Probe(ctx context.Context, commandPath string, mediaPath string) (*media.MediaInfo, error)
	}

	// RecordStore resolves a sharing key to its file record.
	RecordStore interface {
		GetByKey(db database.Queryable, fileKey string) (*file.Record, error)
	}

	Config struct {
		// CacheTTLSeconds bounds how long an extraction result is reused
		// before being recomputed.
		CacheTTLSeconds int `yaml:"cache_ttl_seconds" env:"MEDIAINFO_CACHE_TTL" env-default:"300"`

		// CacheMaxEntries caps the result cache size; zero means
		// unbounded (capacity is naturally bounded by distinct-file
		// activity within one TTL window).
		CacheMaxEntries int `yaml:"cache_max_entries" env:"MEDIAINFO_CACHE_MAX_ENTRIES" env-default:"0"`
	}

	// Service is the metadata extraction pipeline. A request enters via
	// the result cache; on a miss exactly one extraction runs: partial
	// content fetch, provisioner check, probe, and normalisation — or,
	// when any of those fail, heuristic inference from the filename and
	// file record. Results are provenance-tagged and cached either way,
	// so repeated requests for the same file do not repeatedly re-prove
	// that probing is unavailable.
	Service struct {
		db          database.Queryable
		records     RecordStore
		provisioner Provisioner
		fetcher     Fetcher
		prober      Prober
		heuristics  *heuristic.Engine
		cache       *cache.Cache[string, *media.MediaInfo]
	}
)

func New(
	config Config,
	db database.Queryable,
	records RecordStore,
	provisioner Provisioner,
	fetcher Fetcher,
	prober Prober,
) *Service {
	ttl := time.Duration(config.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Service{
		db:          db,
		records:     records,
		provisioner: provisioner,
		fetcher:     fetcher,
		prober:      prober,
		heuristics:  heuristic.NewEngine(),
		cache:       cache.New[string, *media.MediaInfo](config.CacheMaxEntries, ttl),
	}
}

// GetMediaInfo resolves the file key and returns its extracted metadata.
// file.ErrFileNotFound is the only error below this boundary which
// surfaces; every extraction failure is absorbed in to a heuristic
// result instead.
func (service *Service) GetMediaInfo(ctx context.Context, fileKey string) (*media.MediaInfo, error) {
	record, err := service.records.GetByKey(service.db, fileKey)
	if err != nil {
		return nil, err
	}

	return service.infoForRecord(ctx, fileKey, record), nil
}

// Report bundles the extracted metadata with the rendered presentation
// text, ready for a transport layer to deliver.
type Report struct {
	FileKey  string
	FileName string
	Info     *media.MediaInfo
	Text     string
}

// Describe resolves the file key and returns both the structured
// metadata and the rendered human-readable report.
func (service *Service) Describe(ctx context.Context, fileKey string) (*Report, error) {
	record, err := service.records.GetByKey(service.db, fileKey)
	if err != nil {
		return nil, err
	}

	info := service.infoForRecord(ctx, fileKey, record)
	return &Report{
		FileKey:  fileKey,
		FileName: record.FileName,
		Info:     info,
		Text:     media.Render(info, record.FileName),
	}, nil
}

// Dismiss evicts any cached result for the file key, typically in
// response to the user closing the displayed report.
func (service *Service) Dismiss(fileKey string) {
	service.cache.Remove(fileKey)
}

func (service *Service) infoForRecord(ctx context.Context, fileKey string, record *file.Record) *media.MediaInfo {
	// The extraction behind GetOrCompute may be serving several callers
	// at once; the leader abandoning its request must not cancel it for
	// the waiters (or cache a needlessly degraded result). The fetch and
	// probe stages carry their own timeouts, so the detached work stays
	// bounded.
	extractCtx := context.WithoutCancel(ctx)

	info, _ := service.cache.GetOrCompute(fileKey, func() (*media.MediaInfo, error) {
		return service.extract(extractCtx, record), nil
	})

	return info
}

// extract performs one full extraction for a file record. It is total:
// any failure routes through the fallback decision table and, for every
// kind the table marks as recoverable, degrades to heuristic inference.
func (service *Service) extract(ctx context.Context, record *file.Record) *media.MediaInfo {
	if !probableMediaFile(record.FileName) {
		log.Emit(logger.DEBUG, "'%s' is not a probeable media extension; using heuristics\n", record.FileName)
		return service.inferFallback(record)
	}

	headPath, cleanup, err := service.fetcher.FetchHead(ctx, record.StorageRef)
	if err != nil {
		return service.failExtraction(record, err)
	}
	defer cleanup()

	if state := service.provisioner.Ensure(ctx); state == ffprobe.Unavailable {
		log.Emit(logger.DEBUG, "probing tool unavailable for '%s'; using heuristics\n", record.FileName)
		return service.inferFallback(record)
	}

	commandPath, ok := service.provisioner.CommandPath()
	if !ok {
		return service.inferFallback(record)
	}

	info, err := service.prober.Probe(ctx, commandPath, headPath)
	if err != nil {
		return service.failExtraction(record, err)
	}

	// The collaborator record is authoritative for total size; the
	// probed head is only a fraction of the file.
	info.SizeBytes = record.SizeBytes
	return info
}

// failExtraction consults the decision table for the failure. With the
// current table every kind falls back; a kind ever marked
// non-recoverable would be a wiring bug, since extraction must stay
// total, so it is logged loudly and still degraded.
func (service *Service) failExtraction(record *file.Record, err error) *media.MediaInfo {
	kind := classifyFailure(err)
	log.Emit(logger.WARNING, "extraction failure (%s) for '%s': %s; falling back to heuristics\n", kind, record.FileName, err.Error())

	if !fallbackDecision[kind] {
		log.Emit(logger.ERROR, "failure kind %s is marked non-recoverable but reached extraction; using heuristics anyway\n", kind)
	}

	return service.inferFallback(record)
}

func (service *Service) inferFallback(record *file.Record) *media.MediaInfo {
	return service.heuristics.Infer(record.FileName, record.SizeBytes, record.MimeType)
}

func probableMediaFile(fileName string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	_, ok := mediaExtensions[ext]
	return ok
}
