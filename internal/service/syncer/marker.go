package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/pkgbuild-sync/internal/logger"
)

// MarkerFilename marks that a sync is running in the manifest directory to avoid parallel execution.
const MarkerFilename = ".pkgbuild-sync.lock"

// markerAttempts bounds stale marker recovery.
const markerAttempts = 2

// ErrAlreadyRunning is returned when another live process holds the run marker.
var ErrAlreadyRunning = errors.New("another sync is already running")

// acquireMarker creates the run marker in dir and returns a function removing it.
// A marker left by a process that is no longer alive is removed and recreated.
func acquireMarker(ctx context.Context, dir string) (func(), error) {
	path := filepath.Join(dir, MarkerFilename)

	for attempt := 0; attempt < markerAttempts; attempt++ {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return writeMarker(file, path)
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create run marker: %w", err)
		}

		if markerOwnerAlive(path) {
			return nil, fmt.Errorf("%s: %w", path, ErrAlreadyRunning)
		}

		logger.WarnKV(ctx, "Removing stale run marker", "path", path)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale run marker: %w", err)
		}
	}

	return nil, fmt.Errorf("%s: %w", path, ErrAlreadyRunning)
}

// writeMarker stores the current PID in the freshly created marker.
func writeMarker(file *os.File, path string) (func(), error) {
	release := func() {
		_ = os.Remove(path)
	}

	_, err := fmt.Fprintf(file, "%d\n", os.Getpid())
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		release()

		return nil, fmt.Errorf("write run marker: %w", err)
	}

	return release, nil
}

// markerOwnerAlive reports whether the PID recorded in the marker belongs to another running process.
// A marker holding our own PID is left over from an earlier process that had the same PID.
func markerOwnerAlive(path string) bool {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return false
	}

	process, err := ps.FindProcess(pid)

	return err == nil && process != nil
}
