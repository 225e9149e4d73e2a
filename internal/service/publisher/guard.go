package publisher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/unused-buddy/npm-dist/internal/logger"
)

const (
	// MarkerFilename marks that a publish run is in flight, preventing two
	// concurrent runs from racing on the output directory and publish order.
	MarkerFilename = "ub-publish-marker.bin"

	// markerLifetime is the period after which a marker with no matching
	// live process is considered stale and removed.
	markerLifetime = 10 * time.Minute

	// publisherExecutable is the process name scanned for when a marker
	// looks stale.
	publisherExecutable = "ub-publish"
)

// errPublisherRunning indicates another publish run is already in flight.
var errPublisherRunning = errors.New("another publish run is already in flight")

// isPublisherRunningNow reports whether a concurrent publish run appears to
// be live, attempting marker cleanup when it looks stale.
func isPublisherRunningNow(ctx context.Context) bool {
	info, err := os.Stat(MarkerFilename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false
		}

		logger.Infof(ctx, "Unable to read publish marker: %v", err)

		return false
	}

	if time.Since(info.ModTime()) <= markerLifetime {
		return true
	}

	logger.Info(ctx, "Publish marker is stale, checking for a live publisher process")

	if anotherPublisherAlive() {
		return true
	}

	if err := os.Remove(MarkerFilename); err != nil {
		return true
	}

	return false
}

// anotherPublisherAlive scans the process table for a second publisher process.
func anotherPublisherAlive() bool {
	processes, err := ps.Processes()
	if err != nil {
		// Cannot prove the marker stale; assume the other run is live.
		return true
	}

	self := os.Getpid()

	for _, process := range processes {
		if process.Pid() == self {
			continue
		}

		name := strings.TrimSuffix(process.Executable(), filepath.Ext(process.Executable()))
		if name == publisherExecutable {
			return true
		}
	}

	return false
}

// createMarker drops the in-flight marker file.
func createMarker() error {
	marker, err := os.Create(MarkerFilename)
	if err != nil {
		return err
	}

	return marker.Close()
}

// removeMarker clears the in-flight marker, tolerating its absence.
func removeMarker() {
	_ = os.Remove(MarkerFilename)
}
