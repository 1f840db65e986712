package mediainfo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davnau/medialens/internal/database"
	"github.com/davnau/medialens/internal/fetch"
	"github.com/davnau/medialens/internal/ffprobe"
	"github.com/davnau/medialens/internal/file"
	"github.com/davnau/medialens/internal/media"
	"github.com/davnau/medialens/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetMinLoggingLevel(logger.FATAL.Level())
	os.Exit(m.Run())
}

type fakeStore struct {
	record *file.Record
	err    error
	calls  int
}

func (store *fakeStore) GetByKey(_ database.Queryable, fileKey string) (*file.Record, error) {
	store.calls++
	if store.err != nil {
		return nil, store.err
	}
	return store.record, nil
}

type fakeProvisioner struct {
	state ffprobe.ProvisionState
	path  string
}

func (provisioner *fakeProvisioner) Ensure(_ context.Context) ffprobe.ProvisionState {
	return provisioner.state
}

func (provisioner *fakeProvisioner) CommandPath() (string, bool) {
	if provisioner.state == ffprobe.Unavailable {
		return "", false
	}
	return provisioner.path, true
}

type fakeFetcher struct {
	err      error
	calls    int
	cleanups int
}

func (fetcher *fakeFetcher) FetchHead(_ context.Context, _ string) (string, func(), error) {
	fetcher.calls++
	if fetcher.err != nil {
		return "", nil, fetcher.err
	}
	return "/tmp/fake-head.bin", func() { fetcher.cleanups++ }, nil
}

type fakeProber struct {
	info  *media.MediaInfo
	err   error
	calls int
}

func (prober *fakeProber) Probe(_ context.Context, _ string, _ string) (*media.MediaInfo, error) {
	prober.calls++
	if prober.err != nil {
		return nil, prober.err
	}

	copied := *prober.info
	return &copied, nil
}

func testRecord() *file.Record {
	return &file.Record{
		FileKey:    "abc123",
		FileName:   "Avengers.2012.720p.Hindi.English.x264.mkv",
		SizeBytes:  734003200,
		MimeType:   "video/x-matroska",
		StorageRef: "https://storage.example/abc123",
	}
}

func probedInfo() *media.MediaInfo {
	return &media.MediaInfo{
		Provenance:      media.Probed,
		ContainerFormat: "MATROSKA,WEBM",
		AudioTracks:     []media.AudioTrack{{Language: "eng", Codec: "aac"}},
	}
}

type pipelineFixture struct {
	service     *Service
	store       *fakeStore
	provisioner *fakeProvisioner
	fetcher     *fakeFetcher
	prober      *fakeProber
}

func newPipeline(t *testing.T) *pipelineFixture {
	t.Helper()

	fixture := &pipelineFixture{
		store:       &fakeStore{record: testRecord()},
		provisioner: &fakeProvisioner{state: ffprobe.SystemInstalled, path: "ffprobe"},
		fetcher:     &fakeFetcher{},
		prober:      &fakeProber{info: probedInfo()},
	}

	fixture.service = New(Config{CacheTTLSeconds: 300}, nil, fixture.store, fixture.provisioner, fixture.fetcher, fixture.prober)
	return fixture
}

func TestGetMediaInfo_ProbedPath(t *testing.T) {
	fixture := newPipeline(t)

	info, err := fixture.service.GetMediaInfo(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, media.Probed, info.Provenance)
	assert.Equal(t, "MATROSKA,WEBM", info.ContainerFormat)

	// The record is authoritative for size; the probed head is partial.
	assert.EqualValues(t, 734003200, info.SizeBytes)

	assert.Equal(t, 1, fixture.fetcher.calls)
	assert.Equal(t, 1, fixture.fetcher.cleanups, "the transient head file must be cleaned up")
	assert.Equal(t, 1, fixture.prober.calls)
}

func TestGetMediaInfo_UnknownFileSurfaces(t *testing.T) {
	fixture := newPipeline(t)
	fixture.store.err = file.ErrFileNotFound

	_, err := fixture.service.GetMediaInfo(context.Background(), "missing")
	assert.ErrorIs(t, err, file.ErrFileNotFound)

	_, err = fixture.service.Describe(context.Background(), "missing")
	assert.ErrorIs(t, err, file.ErrFileNotFound)
}

func TestGetMediaInfo_FetchFailureFallsBack(t *testing.T) {
	fixture := newPipeline(t)
	fixture.fetcher.err = &fetch.FetchError{Ref: "ref", Err: errors.New("connection refused")}

	info, err := fixture.service.GetMediaInfo(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, media.Heuristic, info.Provenance)
	assert.Equal(t, "MATROSKA/MKV", info.ContainerFormat)
	assert.Zero(t, fixture.prober.calls, "probing must not run without fetched content")
}

func TestGetMediaInfo_ProvisioningFailureFallsBack(t *testing.T) {
	fixture := newPipeline(t)
	fixture.provisioner.state = ffprobe.Unavailable

	info, err := fixture.service.GetMediaInfo(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, media.Heuristic, info.Provenance)
	assert.Zero(t, fixture.prober.calls)
	assert.Equal(t, 1, fixture.fetcher.cleanups)
}

func TestGetMediaInfo_ProbeFailureFallsBack(t *testing.T) {
	fixture := newPipeline(t)
	fixture.prober.err = &ffprobe.ProbeError{Reason: "ffprobe timed out"}

	info, err := fixture.service.GetMediaInfo(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, media.Heuristic, info.Provenance)
	require.Len(t, info.AudioTracks, 2)
	assert.Equal(t, "Hindi", info.AudioTracks[0].Language)
}

func TestGetMediaInfo_NonMediaExtensionShortCircuits(t *testing.T) {
	fixture := newPipeline(t)
	fixture.store.record.FileName = "meeting-notes.txt"

	info, err := fixture.service.GetMediaInfo(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, media.Heuristic, info.Provenance)
	assert.Zero(t, fixture.fetcher.calls, "non-media content must not be fetched")
	assert.Zero(t, fixture.prober.calls)
}

// ctxCheckingFetcher fails the way a real HTTP fetch does when its
// context has already been cancelled.
type ctxCheckingFetcher struct{}

func (ctxCheckingFetcher) FetchHead(ctx context.Context, _ string) (string, func(), error) {
	if err := ctx.Err(); err != nil {
		return "", nil, &fetch.FetchError{Ref: "ref", Err: err}
	}
	return "/tmp/fake-head.bin", func() {}, nil
}

// gatedFetcher parks the extraction mid-fetch until released, observing
// its context the way a real fetch would.
type gatedFetcher struct {
	started chan struct{}
	release chan struct{}
}

func (fetcher *gatedFetcher) FetchHead(ctx context.Context, _ string) (string, func(), error) {
	close(fetcher.started)
	<-fetcher.release

	if err := ctx.Err(); err != nil {
		return "", nil, &fetch.FetchError{Ref: "ref", Err: err}
	}
	return "/tmp/fake-head.bin", func() {}, nil
}

func TestGetMediaInfo_CancelledRequestContextStillProbes(t *testing.T) {
	fixture := newPipeline(t)
	fixture.service = New(Config{CacheTTLSeconds: 300}, nil, fixture.store, fixture.provisioner, ctxCheckingFetcher{}, fixture.prober)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	info, err := fixture.service.GetMediaInfo(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, media.Probed, info.Provenance, "a dead request context must not degrade the extraction")

	// And the cached entry must be the probed result, not a degraded one.
	cached, err := fixture.service.GetMediaInfo(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, media.Probed, cached.Provenance)
	assert.Equal(t, 1, fixture.prober.calls)
}

func TestGetMediaInfo_AbandonedLeaderDoesNotDegradeSharedExtraction(t *testing.T) {
	fixture := newPipeline(t)
	fetcher := &gatedFetcher{started: make(chan struct{}), release: make(chan struct{})}
	fixture.service = New(Config{CacheTTLSeconds: 300}, nil, fixture.store, fixture.provisioner, fetcher, fixture.prober)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderResult := make(chan *media.MediaInfo, 1)
	go func() {
		info, err := fixture.service.GetMediaInfo(leaderCtx, "abc123")
		assert.NoError(t, err)
		leaderResult <- info
	}()

	// Once the fetch has started the in-flight entry exists, so the
	// second caller below joins the leader's extraction.
	<-fetcher.started

	waiterResult := make(chan *media.MediaInfo, 1)
	go func() {
		info, err := fixture.service.GetMediaInfo(context.Background(), "abc123")
		assert.NoError(t, err)
		waiterResult <- info
	}()

	// Abandon the leader's request mid-extraction, then let it proceed.
	time.Sleep(20 * time.Millisecond)
	cancelLeader()
	time.Sleep(20 * time.Millisecond)
	close(fetcher.release)

	assert.Equal(t, media.Probed, (<-leaderResult).Provenance)
	assert.Equal(t, media.Probed, (<-waiterResult).Provenance, "the waiter must receive the real probe despite the leader bailing")
	assert.Equal(t, 1, fixture.prober.calls)

	cached, err := fixture.service.GetMediaInfo(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, media.Probed, cached.Provenance, "only the probed result may be cached")
}

func TestGetMediaInfo_ResultIsCached(t *testing.T) {
	fixture := newPipeline(t)

	for i := 0; i < 3; i++ {
		_, err := fixture.service.GetMediaInfo(context.Background(), "abc123")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, fixture.prober.calls, "repeated requests within the TTL must reuse the result")
}

func TestDismiss_EvictsCachedResult(t *testing.T) {
	fixture := newPipeline(t)

	_, err := fixture.service.GetMediaInfo(context.Background(), "abc123")
	require.NoError(t, err)

	fixture.service.Dismiss("abc123")

	_, err = fixture.service.GetMediaInfo(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, 2, fixture.prober.calls)
}

func TestDescribe_RendersReport(t *testing.T) {
	fixture := newPipeline(t)

	report, err := fixture.service.Describe(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "abc123", report.FileKey)
	assert.Equal(t, fixture.store.record.FileName, report.FileName)
	require.NotNil(t, report.Info)
	assert.Contains(t, report.Text, fixture.store.record.FileName)
	assert.Contains(t, report.Text, "Source: content analysis (ffprobe)")
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		summary  string
		err      error
		expected failureKind
	}{
		{summary: "fetch error", err: &fetch.FetchError{Ref: "r", Err: errors.New("x")}, expected: failureFetch},
		{summary: "download error", err: &ffprobe.DownloadError{URL: "u", Err: errors.New("x")}, expected: failureProvision},
		{summary: "unsupported platform", err: ffprobe.ErrUnsupportedPlatform, expected: failureProvision},
		{summary: "probe error", err: &ffprobe.ProbeError{Reason: "bad output"}, expected: failureProbe},
		{summary: "anything else", err: errors.New("surprise"), expected: failureUnknown},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			assert.Equal(t, test.expected, classifyFailure(test.err))
		})
	}
}

func TestFallbackDecision_EveryKindRecovers(t *testing.T) {
	for _, kind := range []failureKind{failureFetch, failureProvision, failureProbe, failureUnknown} {
		assert.True(t, fallbackDecision[kind], "failure kind %s must fall back, extraction is total", kind)
	}
}
