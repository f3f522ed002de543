// Package install materializes a cache entry at its target path using
// the item's copy strategy: symlink, hardlink, or full copy.
package install

import (
	"os"

	"github.com/arthur-debert/instaclone/pkg/config"
	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
	"github.com/arthur-debert/instaclone/pkg/fsutil"
	"github.com/arthur-debert/instaclone/pkg/logging"
)

// Options control replacement of an existing target.
type Options struct {
	// Force replaces an existing target; without it the install fails
	// with ARTIFACT_EXISTS.
	Force bool

	// MakeBackup moves a replaced target to <target>.bak instead of
	// deleting it. Only meaningful with Force.
	MakeBackup bool
}

// FromCache installs cachedPath at targetPath. The cache entry must
// exist; a missing entry is an internal invariant violation, not a user
// error. On success exactly one filesystem entry is created or replaced
// at targetPath.
func FromCache(cachedPath, targetPath string, copyType config.CopyType, opts Options) error {
	logger := logging.GetLogger("install")

	cacheInfo, err := os.Stat(cachedPath)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrInternal, "cache entry missing: %s", cachedPath)
	}

	logger.Debug().
		Str("cached", cachedPath).
		Str("target", targetPath).
		Str("copyType", string(copyType)).
		Bool("force", opts.Force).
		Msg("Installing from cache")

	switch copyType {
	case config.CopySymlink:
		if err := checkedRemove(targetPath, opts); err != nil {
			return err
		}
		if err := os.Symlink(cachedPath, targetPath); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot symlink %s", targetPath)
		}

	case config.CopyHardlink:
		// Checked before any removal so a bad strategy never mutates
		// the target
		if cacheInfo.IsDir() {
			return apperrors.Newf(apperrors.ErrUnsupportedType,
				"cannot hardlink a directory: %s", cachedPath)
		}
		if err := checkedRemove(targetPath, opts); err != nil {
			return err
		}
		if err := os.Link(cachedPath, targetPath); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot hardlink %s", targetPath)
		}

	case config.CopyCopy:
		if err := checkedRemove(targetPath, opts); err != nil {
			return err
		}
		if err := copyAtomic(cachedPath, targetPath, cacheInfo.IsDir()); err != nil {
			return err
		}

	default:
		return apperrors.Newf(apperrors.ErrInternal, "invalid copy type %q", copyType)
	}

	return nil
}

// checkedRemove clears the way for the new target. Lstat rather than
// Stat, so a dangling symlink at the target still counts as existing
// and gets replaced under force.
func checkedRemove(targetPath string, opts Options) error {
	if _, err := os.Lstat(targetPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot inspect %s", targetPath)
	}

	if !opts.Force {
		return apperrors.Newf(apperrors.ErrArtifactExists, "target already exists: %s", targetPath)
	}

	if opts.MakeBackup {
		backup, err := fsutil.MoveToBackup(targetPath)
		if err != nil {
			return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot back up %s", targetPath)
		}
		logger := logging.GetLogger("install")
		logger.Info().Str("backup", backup).Msg("Kept previous target")
		return nil
	}

	if err := os.RemoveAll(targetPath); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot remove %s", targetPath)
	}
	return nil
}

// copyAtomic copies into a temporary sibling and renames it into place,
// so a failed copy never leaves a half-written target.
func copyAtomic(src, dst string, isDir bool) error {
	err := fsutil.WithTempRename(dst, func(tmp string) error {
		if isDir {
			return fsutil.CopyTree(src, tmp)
		}
		return fsutil.CopyFile(src, tmp)
	})
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot copy %s to %s", src, dst)
	}
	return nil
}
