package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/davnau/medialens/pkg/logger"
)

var log = logger.Get("Fetch")

// FetchError indicates we could not obtain even the partial leading
// bytes of the referenced content. The pipeline downgrades to heuristic
// mode rather than aborting the request.
type FetchError struct {
	Ref string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch content head for %s: %s", e.Ref, e.Err.Error())
}

func (e *FetchError) Unwrap() error { return e.Err }

const (
	// defaultMaxHeadBytes is enough to contain container and stream
	// header metadata for the supported formats. Containers which keep
	// their index at the tail (non-faststart MP4s) will probe with a
	// missing duration, which the pipeline treats as partial success.
	defaultMaxHeadBytes = 2 * 1024 * 1024

	// minHeadBytes guards against fetching something too small to be
	// analysable media.
	minHeadBytes = 1024
)

type (
	FetcherConfig struct {
		// MaxHeadBytes caps how much of a file is retrieved for
		// analysis, regardless of total file size.
		MaxHeadBytes int64 `yaml:"max_head_bytes" env:"FETCH_MAX_HEAD_BYTES" env-default:"2097152"`

		// TimeoutSeconds bounds the partial download.
		TimeoutSeconds int `yaml:"fetch_timeout_seconds" env:"FETCH_TIMEOUT" env-default:"60"`
	}

	// HeadFetcher retrieves the leading bytes of remotely stored content
	// in to a uniquely named temporary file. The file is exclusively
	// owned by the extraction which requested it and is removed via the
	// returned cleanup function on every exit path.
	HeadFetcher struct {
		maxBytes int64
		client   *http.Client
	}
)

func NewHeadFetcher(config FetcherConfig) *HeadFetcher {
	maxBytes := config.MaxHeadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxHeadBytes
	}

	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &HeadFetcher{
		maxBytes: maxBytes,
		client:   &http.Client{Timeout: timeout},
	}
}

// FetchHead downloads at most the configured number of leading bytes
// from storageRef, returning the temp file path holding them and a
// cleanup function which must be invoked once probing has finished.
func (fetcher *HeadFetcher) FetchHead(ctx context.Context, storageRef string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, storageRef, nil)
	if err != nil {
		return "", nil, &FetchError{Ref: storageRef, Err: err}
	}

	// Ask the storage backend for just the head; servers which ignore
	// the range request are tolerated since the copy below is bounded
	// either way.
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", fetcher.maxBytes-1))

	resp, err := fetcher.client.Do(req)
	if err != nil {
		return "", nil, &FetchError{Ref: storageRef, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return "", nil, &FetchError{Ref: storageRef, Err: fmt.Errorf("unexpected response status %s", resp.Status)}
	}

	handle, err := os.CreateTemp("", "medialens-head-*.bin")
	if err != nil {
		return "", nil, &FetchError{Ref: storageRef, Err: err}
	}

	cleanup := func() {
		if err := os.Remove(handle.Name()); err != nil && !os.IsNotExist(err) {
			log.Emit(logger.WARNING, "failed to remove transient head file %s: %s\n", handle.Name(), err.Error())
		}
	}

	written, err := io.Copy(handle, io.LimitReader(resp.Body, fetcher.maxBytes))
	handle.Close()
	if err != nil {
		cleanup()
		return "", nil, &FetchError{Ref: storageRef, Err: err}
	}

	if written < minHeadBytes {
		cleanup()
		return "", nil, &FetchError{Ref: storageRef, Err: fmt.Errorf("content too small for analysis (%d bytes)", written)}
	}

	log.Emit(logger.DEBUG, "fetched %d leading bytes of %s to %s\n", written, storageRef, handle.Name())
	return handle.Name(), cleanup, nil
}
