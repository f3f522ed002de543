package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
	"github.com/arthur-debert/instaclone/pkg/logging"
)

// lockRetryDelay is how often a blocked acquirer rechecks the lock.
const lockRetryDelay = 100 * time.Millisecond

// Locker serializes cache operations across processes with an advisory
// file lock. Rename atomicity already keeps individual entries
// consistent; the lock adds mutual exclusion for whole operations when
// two invocations race on the same root.
type Locker struct {
	path string
}

// NewLocker creates a locker backed by the lock file at path.
func NewLocker(path string) *Locker {
	return &Locker{path: path}
}

// Acquire blocks until the lock is held or ctx is done. The returned
// function releases the lock.
func (l *Locker) Acquire(ctx context.Context) (func(), error) {
	logger := logging.GetLogger("cache.lock")

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrFileAccess,
			"cannot create lock directory for %s", l.path)
	}

	fl := flock.New(l.path)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrFileAccess,
			"cannot acquire cache lock %s", l.path)
	}
	if !locked {
		return nil, apperrors.Newf(apperrors.ErrFileAccess,
			"cannot acquire cache lock %s", l.path)
	}

	logger.Debug().Str("path", l.path).Msg("Acquired cache lock")
	return func() {
		if err := fl.Unlock(); err != nil {
			logger.Warn().Err(err).Str("path", l.path).Msg("Failed to release cache lock")
		}
	}, nil
}
