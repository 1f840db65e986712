package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/davnau/medialens/pkg/logger"
)

var log = logger.Get("FFProbe")

// ProvisionState describes the availability of the ffprobe executable.
// Transitions are forward-only within a process lifetime: a successful
// install never regresses, and Unavailable is re-checked lazily on each
// Ensure rather than being treated as permanent.
type ProvisionState int

const (
	Unavailable ProvisionState = iota
	SystemInstalled
	Downloaded
)

func (s ProvisionState) String() string {
	return []string{"unavailable", "system", "downloaded"}[s]
}

// ErrUnsupportedPlatform indicates no static ffprobe build is published
// for the host platform. Fatal to provisioning only; callers proceed in
// heuristic mode.
var ErrUnsupportedPlatform = errors.New("no static ffprobe build published for this platform")

// DownloadError wraps a failure while acquiring the static binary.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download ffprobe from %s: %s", e.URL, e.Err.Error())
}

func (e *DownloadError) Unwrap() error { return e.Err }

const (
	// DefaultDownloadBaseURL hosts statically linked ffprobe builds for
	// each supported platform. The binaries are self-contained, so they
	// run on buildpack platforms (Heroku, Koyeb, Railway...) which offer
	// no package-manager access.
	DefaultDownloadBaseURL = "https://github.com/eugeneware/ffmpeg-static/releases/download/b6.0/"

	systemCommandName   = "ffprobe"
	downloadedName      = "ffprobe"
	versionCheckTimeout = 5 * time.Second
)

// staticBinaryNames maps a platform key to the release asset serving it.
// Platforms absent from this table cannot be provisioned.
var staticBinaryNames = map[string]string{
	"linux_x86_64":  "ffprobe-linux-x64",
	"linux_arm64":   "ffprobe-linux-arm64",
	"darwin_x86_64": "ffprobe-darwin-x64",
	"darwin_arm64":  "ffprobe-darwin-arm64",
}

// PlatformKey derives the '<os>_<arch>' key used to select a download
// URL. Unrecognised architectures fall back to x86_64, leaving the OS to
// decide whether the binary can actually run (the mandatory post-download
// verification catches the failure).
func PlatformKey(goos string, goarch string) string {
	arch := "x86_64"
	switch goarch {
	case "amd64", "x86_64":
		arch = "x86_64"
	case "arm64", "aarch64":
		arch = "arm64"
	}

	return fmt.Sprintf("%s_%s", goos, arch)
}

type (
	ProvisionerConfig struct {
		// BinDirPath is where a downloaded binary is placed. Empty means
		// '<home>/.medialens/bin'.
		BinDirPath string `yaml:"bin_dir" env:"FFPROBE_BIN_DIR"`

		// DownloadTimeoutSeconds bounds the static binary download.
		DownloadTimeoutSeconds int `yaml:"download_timeout_seconds" env:"FFPROBE_DOWNLOAD_TIMEOUT" env-default:"120"`
	}

	// Provisioner locates, or downloads and installs, the ffprobe
	// executable for the running platform. It is constructed explicitly
	// and injected in to the extraction pipeline so tests can substitute
	// a fake; the mutex guards the process-wide provision state against
	// two simultaneous download attempts.
	Provisioner struct {
		mutex       sync.Mutex
		state       ProvisionState
		commandPath string

		platformKey   string
		systemCommand string
		binDir        string
		baseURL       string
		client        *http.Client
	}
)

// NewProvisioner constructs a Provisioner in the Unavailable state. No
// filesystem or network work happens until the first Ensure call.
func NewProvisioner(config ProvisionerConfig) *Provisioner {
	binDir := config.BinDirPath
	if binDir == "" {
		if home, err := homedir.Dir(); err == nil {
			binDir = filepath.Join(home, ".medialens", "bin")
		} else {
			binDir = filepath.Join(os.TempDir(), "medialens", "bin")
		}
	}

	timeout := time.Duration(config.DownloadTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Provisioner{
		state:         Unavailable,
		platformKey:   PlatformKey(runtime.GOOS, runtime.GOARCH),
		systemCommand: systemCommandName,
		binDir:        binDir,
		baseURL:       DefaultDownloadBaseURL,
		client:        &http.Client{Timeout: timeout},
	}
}

// Ensure checks for a usable ffprobe, downloading the static build for
// this platform if none is found on the search path. The call is
// idempotent: once a usable binary has been established, subsequent calls
// return immediately without re-downloading. Failure is non-fatal and
// leaves the provisioner Unavailable; the next Ensure re-checks from
// scratch.
func (provisioner *Provisioner) Ensure(ctx context.Context) ProvisionState {
	provisioner.mutex.Lock()
	defer provisioner.mutex.Unlock()

	if provisioner.state != Unavailable {
		return provisioner.state
	}

	// A system install takes priority over anything we may have
	// downloaded on a previous run.
	if provisioner.verifyBinary(ctx, provisioner.systemCommand) {
		log.Emit(logger.SUCCESS, "ffprobe available on system path\n")
		provisioner.state = SystemInstalled
		provisioner.commandPath = provisioner.systemCommand
		return provisioner.state
	}

	downloadedPath := filepath.Join(provisioner.binDir, downloadedName)
	if provisioner.verifyBinary(ctx, downloadedPath) {
		log.Emit(logger.SUCCESS, "ffprobe available from previous download (%s)\n", downloadedPath)
		provisioner.state = Downloaded
		provisioner.commandPath = downloadedPath
		return provisioner.state
	}

	log.Emit(logger.INFO, "ffprobe not found, attempting to download static build...\n")
	if err := provisioner.download(ctx, downloadedPath); err != nil {
		log.Emit(logger.WARNING, "ffprobe provisioning failed (%s); continuing in heuristic mode\n", err.Error())
		return Unavailable
	}

	// A download which produces a non-executing artifact is a failure,
	// not a success.
	if !provisioner.verifyBinary(ctx, downloadedPath) {
		log.Emit(logger.WARNING, "downloaded ffprobe failed verification; continuing in heuristic mode\n")
		os.Remove(downloadedPath)
		return Unavailable
	}

	log.Emit(logger.SUCCESS, "ffprobe downloaded and verified (%s)\n", downloadedPath)
	provisioner.state = Downloaded
	provisioner.commandPath = downloadedPath
	return provisioner.state
}

// CommandPath returns the executable path established by Ensure. The
// boolean is false while the provisioner is Unavailable.
func (provisioner *Provisioner) CommandPath() (string, bool) {
	if !provisioner.mutex.TryLock() {
		// An Ensure is in-flight; report unavailable rather than block
		// a metadata request behind a download.
		return "", false
	}
	defer provisioner.mutex.Unlock()

	if provisioner.state == Unavailable {
		return "", false
	}
	return provisioner.commandPath, true
}

// download streams the platform's static ffprobe build to targetPath and
// marks it executable.
func (provisioner *Provisioner) download(ctx context.Context, targetPath string) error {
	assetName, ok := staticBinaryNames[provisioner.platformKey]
	if !ok {
		return fmt.Errorf("%w (%s)", ErrUnsupportedPlatform, provisioner.platformKey)
	}
	url := provisioner.baseURL + assetName

	if err := os.MkdirAll(provisioner.binDir, 0o755); err != nil {
		return &DownloadError{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}

	log.Emit(logger.INFO, "downloading ffprobe for %s from %s\n", provisioner.platformKey, url)
	resp, err := provisioner.client.Do(req)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &DownloadError{URL: url, Err: fmt.Errorf("unexpected response status %s", resp.Status)}
	}

	handle, err := os.OpenFile(targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	defer handle.Close()

	if _, err := io.Copy(handle, resp.Body); err != nil {
		os.Remove(targetPath)
		return &DownloadError{URL: url, Err: err}
	}

	if err := os.Chmod(targetPath, 0o755); err != nil {
		return &DownloadError{URL: url, Err: err}
	}

	return nil
}

// verifyBinary runs '<path> -version' with a short timeout and reports
// whether the command executed successfully.
func (provisioner *Provisioner) verifyBinary(ctx context.Context, path string) bool {
	checkCtx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
	defer cancel()

	return exec.CommandContext(checkCtx, path, "-version").Run() == nil
}
