// Package artifacts downloads build artifacts to deterministic local paths.
//
// Download state is never recorded: a file at LocalPath means the artifact is
// complete, an in-memory claim means a download is running, anything else is
// not started. A failed download leaves nothing behind and can be retried.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"azdo-monitor/src/logger"
	"azdo-monitor/src/provider"
)

// State is the derived download state of an artifact.
type State int

const (
	NotStarted State = iota
	InProgress
	Complete
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "downloading"
	case Complete:
		return "downloaded"
	default:
		return "not downloaded"
	}
}

// Downloader streams an artifact archive.
type Downloader interface {
	DownloadArtifact(ctx context.Context, downloadURL string, w io.Writer) (int64, error)
}

// Result describes a finished download.
type Result struct {
	BuildID  int
	Artifact provider.Artifact
	Path     string
	Bytes    int64
}

// LocalPath returns where the artifact of a build is stored under dir. The
// name is escaped reversibly, so distinct names never share a path.
func LocalPath(dir string, buildID int, name string) string {
	safe := strings.ReplaceAll(url.PathEscape(name), ":", "%3A")
	return filepath.Join(dir, fmt.Sprintf("%d_%s.zip", buildID, safe))
}

// FormatSize renders an artifact size for display.
func FormatSize(size int64) string {
	if size <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(size))
}

// Coordinator runs artifact downloads into one directory.
type Coordinator struct {
	dir        string
	downloader Downloader
	gate       PermissionGate
	log        logger.Logger
	onComplete func(context.Context, Result)

	mu sync.Mutex
	// inFlight holds the local paths being written.
	inFlight map[string]struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger download progress is reported to.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithOnComplete registers a callback run after each successful download.
func WithOnComplete(fn func(context.Context, Result)) Option {
	return func(c *Coordinator) { c.onComplete = fn }
}

// NewCoordinator creates a Coordinator writing into dir. A nil gate grants every request.
func NewCoordinator(dir string, downloader Downloader, gate PermissionGate, opts ...Option) *Coordinator {
	if gate == nil {
		gate = AllowAll{}
	}
	c := &Coordinator{
		dir:        dir,
		downloader: downloader,
		gate:       gate,
		log:        logger.NewSilentLogger(),
		inFlight:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the download directory.
func (c *Coordinator) Dir() string {
	return c.dir
}

// Path returns the local path of an artifact of a build.
func (c *Coordinator) Path(buildID int, a provider.Artifact) string {
	return LocalPath(c.dir, buildID, a.Name)
}

// Status derives the state of an artifact without any network access.
func (c *Coordinator) Status(buildID int, a provider.Artifact) State {
	path := c.Path(buildID, a)
	if fileExists(path) {
		return Complete
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inFlight[path]; ok {
		return InProgress
	}
	return NotStarted
}

// Download fetches an artifact to its local path.
//
// It fails with provider.ErrAlreadyExists when the file is present, with
// provider.ErrDownloadInProgress when the same artifact is already downloading,
// and with a *provider.PermissionDeniedError when the gate refuses storage access.
func (c *Coordinator) Download(ctx context.Context, buildID int, a provider.Artifact) (Result, error) {
	path := c.Path(buildID, a)
	if fileExists(path) {
		return Result{}, fmt.Errorf("%s: %w", path, provider.ErrAlreadyExists)
	}

	c.mu.Lock()
	if _, ok := c.inFlight[path]; ok {
		c.mu.Unlock()
		return Result{}, fmt.Errorf("%s: %w", a.Name, provider.ErrDownloadInProgress)
	}
	c.inFlight[path] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, path)
		c.mu.Unlock()
	}()

	if err := c.gate.Request(ctx, c.dir); err != nil {
		return Result{}, err
	}

	c.log.Info("Downloading artifact %s (%s) to %s", a.Name, FormatSize(a.Size), path)
	n, err := c.fetch(ctx, a, path)
	if err != nil {
		c.log.Error("Download of %s failed: %v", a.Name, err)
		return Result{}, err
	}

	res := Result{BuildID: buildID, Artifact: a, Path: path, Bytes: n}
	c.log.Info("Downloaded %s (%s)", path, FormatSize(n))
	if c.onComplete != nil {
		c.onComplete(ctx, res)
	}
	return res, nil
}

// fetch streams into a temporary file next to path and renames it into place,
// so path only ever holds a complete archive.
func (c *Coordinator) fetch(ctx context.Context, a provider.Artifact, path string) (int64, error) {
	if a.DownloadURL == "" {
		return 0, fmt.Errorf("artifact %s has no download URL", a.Name)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return 0, &provider.PermissionDeniedError{Path: c.dir, SettingsHint: dirHint}
	}

	tmp, err := os.CreateTemp(c.dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	n, err := c.downloader.DownloadArtifact(ctx, a.DownloadURL, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to write %s: %w", tmpName, cerr)
	}
	if err != nil {
		return 0, err
	}

	if fileExists(path) {
		return 0, fmt.Errorf("%s: %w", path, provider.ErrAlreadyExists)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("failed to move download into place: %w", err)
	}
	committed = true
	return n, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
