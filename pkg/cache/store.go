// Package cache owns the on-disk cache root and the publish/install
// protocols over it. Entries are written through temporary paths and
// renamed into place, so a crashed or failed operation never leaves a
// partial entry visible under its final name.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/instaclone/pkg/archive"
	"github.com/arthur-debert/instaclone/pkg/config"
	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
	"github.com/arthur-debert/instaclone/pkg/fsutil"
	"github.com/arthur-debert/instaclone/pkg/install"
	"github.com/arthur-debert/instaclone/pkg/logging"
	"github.com/arthur-debert/instaclone/pkg/paths"
	"github.com/arthur-debert/instaclone/pkg/transport"
)

const (
	// markerName is the schema marker file at the cache root.
	markerName = "version"
	// schemaVersion is the cache layout version written to the marker.
	schemaVersion = "1"
	// lockName is the root-level lock file used when locking is on.
	lockName = ".lock"
)

// Store manages one cache root.
type Store struct {
	root      string
	adapter   *transport.Adapter
	archiver  archive.Archiver
	locker    *Locker
	logger    zerolog.Logger
	setupDone bool
}

// InstallOptions control one install operation.
type InstallOptions struct {
	// Force replaces an existing local target.
	Force bool

	// Offline fails a cache miss instead of downloading.
	Offline bool
}

// NewStore creates a store rooted at root. The runner executes
// transport commands, the archiver handles directory items, and
// locking serializes whole operations across processes via a lock file
// under the root.
func NewStore(root string, runner transport.Runner, archiver archive.Archiver, locking bool) *Store {
	s := &Store{
		root:     strings.TrimSuffix(root, "/"),
		adapter:  transport.NewAdapter(runner),
		archiver: archiver,
		logger:   logging.GetLogger("cache"),
	}
	if locking {
		s.locker = NewLocker(filepath.Join(s.root, lockName))
	}
	return s
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// Setup initializes the cache root: creates contents/ and writes the
// schema marker. Idempotent; an existing marker is accepted as-is.
func (s *Store) Setup() error {
	if s.setupDone {
		return nil
	}
	markerPath := filepath.Join(s.root, markerName)
	if _, err := os.Stat(markerPath); err == nil {
		s.logger.Debug().Str("root", s.root).Msg("Using existing cache")
	} else {
		s.logger.Info().Str("root", s.root).Msg("Initializing new cache")
		if err := os.MkdirAll(s.contentsPath(), 0755); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot create cache at %s", s.root)
		}
		if err := os.WriteFile(markerPath, []byte(schemaVersion+"\n"), 0644); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot write cache marker %s", markerPath)
		}
	}
	s.setupDone = true
	return nil
}

func (s *Store) contentsPath() string {
	return filepath.Join(s.root, paths.ContentsDir)
}

func (s *Store) versionedPath(item config.Item, version, suffix string) string {
	return paths.VersionedPath(item.RemotePath, filepath.Base(item.LocalPath), version, suffix)
}

// CachePath returns where one version of an item lives under this root.
func (s *Store) CachePath(item config.Item, version, suffix string) string {
	return paths.CachePath(s.root, item.RemotePrefix, s.versionedPath(item, version, suffix))
}

// RemoteLoc returns the remote blob location for one version of an item.
func (s *Store) RemoteLoc(item config.Item, version, suffix string) string {
	return paths.RemoteLoc(item.RemotePrefix, s.versionedPath(item, version, suffix))
}

// Publish pushes one version of an item: into the cache, up to the
// remote, and back over the local path. Without force, republishing an
// already-cached version fails with ARTIFACT_EXISTS so a published
// version is never silently mutated.
func (s *Store) Publish(ctx context.Context, item config.Item, version string, force bool) error {
	if err := s.Setup(); err != nil {
		return err
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	defer logging.LogOperationStart(s.logger, "publish "+item.DisplayName())()

	localPath := item.LocalPath
	info, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		return apperrors.Newf(apperrors.ErrNotFound, "local path not found: %s", localPath)
	case err != nil:
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot read %s", localPath)
	case info.IsDir():
		return s.publishDir(ctx, item, version, force)
	case info.Mode().IsRegular():
		return s.publishFile(ctx, item, version, force)
	default:
		return apperrors.Newf(apperrors.ErrUnsupportedType,
			"only files and directories can be published: %s", localPath)
	}
}

// publishDir archives, uploads, and unarchives back into the cache. The
// round trip through the archive is intentional: it expands symlinks
// exactly the way a future install from the remote would see them. The
// original local tree is kept as a backup next to the installed link.
func (s *Store) publishDir(ctx context.Context, item config.Item, version string, force bool) error {
	localPath := item.LocalPath
	cachedPath := s.CachePath(item, version, "")
	cachedArchive := s.CachePath(item, version, paths.ArchiveSuffix)
	remoteLoc := s.RemoteLoc(item, version, paths.ArchiveSuffix)

	if err := s.checkStale(cachedArchive, force, "archive already in cache"); err != nil {
		return err
	}

	s.logger.Info().Str("local", localPath).Str("cached", cachedPath).Msg("Installing to cache")
	if err := s.archiver.Compress(ctx, localPath, cachedArchive); err != nil {
		return err
	}
	if err := s.adapter.Upload(ctx, item.UploadCommand, cachedArchive, remoteLoc); err != nil {
		return err
	}
	if err := s.extractToCache(ctx, cachedArchive, cachedPath, force); err != nil {
		return err
	}

	s.logger.Debug().Str("local", localPath).Str("cached", cachedPath).Msg("Installing back from cache")
	if err := install.FromCache(cachedPath, localPath, item.CopyType,
		install.Options{Force: true, MakeBackup: true}); err != nil {
		return err
	}

	s.logger.Info().Str("local", localPath).Str("remote", remoteLoc).Msg("Published directory archive")
	return nil
}

// publishFile moves the file into the cache for speed, uploads it, and
// installs it back over the local path. No backup is kept; the original
// file itself now lives in the cache.
func (s *Store) publishFile(ctx context.Context, item config.Item, version string, force bool) error {
	localPath := item.LocalPath
	cachedPath := s.CachePath(item, version, "")
	remoteLoc := s.RemoteLoc(item, version, "")

	if err := s.checkStale(cachedPath, force, "file already in cache"); err != nil {
		return err
	}

	s.logger.Info().Str("local", localPath).Str("cached", cachedPath).Msg("Installing to cache")
	if err := fsutil.Move(localPath, cachedPath); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot move %s into cache", localPath)
	}
	if err := s.adapter.Upload(ctx, item.UploadCommand, cachedPath, remoteLoc); err != nil {
		return err
	}

	s.logger.Debug().Str("local", localPath).Str("cached", cachedPath).Msg("Installing back from cache")
	if err := install.FromCache(cachedPath, localPath, item.CopyType, install.Options{}); err != nil {
		return err
	}

	s.logger.Info().Str("local", localPath).Str("remote", remoteLoc).Msg("Published file")
	return nil
}

// checkStale enforces the no-silent-republish rule: an existing cache
// path fails without force and is deleted with it.
func (s *Store) checkStale(path string, force bool, what string) error {
	if _, err := os.Lstat(path); err != nil {
		return nil
	}
	if !force {
		return apperrors.Newf(apperrors.ErrArtifactExists,
			"%s (has the version changed?): %s", what, path)
	}
	s.logger.Info().Str("path", path).Msg("Deleting stale cache entry")
	if err := os.RemoveAll(path); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot remove stale entry %s", path)
	}
	return nil
}

// extractToCache unarchives into a cache entry path, clearing a stale
// entry first when force is set.
func (s *Store) extractToCache(ctx context.Context, archivePath, dir string, force bool) error {
	if _, err := os.Lstat(dir); err == nil {
		if !force {
			return apperrors.Newf(apperrors.ErrArtifactExists, "target already exists: %s", dir)
		}
		s.logger.Info().Str("path", dir).Msg("Deleting previous directory")
		if err := os.RemoveAll(dir); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot remove %s", dir)
		}
	}
	return s.archiver.Extract(ctx, archivePath, dir)
}

// Install materializes one version of an item at its local path,
// downloading into the cache first when the entry is missing. Mode is
// inferred by probing: the archive variant is tried first, and a
// transport failure there means the item is a plain file. There is no
// persisted record of whether an item is a file or a directory.
func (s *Store) Install(ctx context.Context, item config.Item, version string, opts InstallOptions) error {
	if err := s.Setup(); err != nil {
		return err
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	defer logging.LogOperationStart(s.logger, "install "+item.DisplayName())()

	cachedPath := s.CachePath(item, version, "")
	if _, err := os.Lstat(cachedPath); err == nil {
		// Cached already, whether file or unpacked directory. No
		// transport involved.
		s.logger.Info().Str("local", item.LocalPath).Str("cached", cachedPath).Msg("Installing from cache")
		return install.FromCache(cachedPath, item.LocalPath, item.CopyType,
			install.Options{Force: opts.Force})
	}

	if opts.Offline {
		return apperrors.Newf(apperrors.ErrNotFound,
			"%s@%s is not cached and offline mode is on", item.DisplayName(), version)
	}

	remoteArchiveLoc := s.RemoteLoc(item, version, paths.ArchiveSuffix)
	cachedArchive := s.CachePath(item, version, paths.ArchiveSuffix)

	s.logger.Debug().Msg("Probing for an archive variant")
	isDir := true
	if err := s.adapter.Download(ctx, item.DownloadCommand, remoteArchiveLoc, cachedArchive); err != nil {
		if !apperrors.IsErrorCode(err, apperrors.ErrTransport) {
			return err
		}
		s.logger.Debug().Msg("No archive variant, treating item as a file")
		isDir = false
	}

	if isDir {
		s.logger.Info().
			Str("local", item.LocalPath).
			Str("remote", remoteArchiveLoc).
			Msg("Installing directory")
		if err := s.extractToCache(ctx, cachedArchive, cachedPath, opts.Force); err != nil {
			return err
		}
	} else {
		remoteLoc := s.RemoteLoc(item, version, "")
		s.logger.Info().
			Str("local", item.LocalPath).
			Str("remote", remoteLoc).
			Msg("Installing file")
		if err := s.adapter.Download(ctx, item.DownloadCommand, remoteLoc, cachedPath); err != nil {
			return err
		}
	}

	return install.FromCache(cachedPath, item.LocalPath, item.CopyType,
		install.Options{Force: opts.Force})
}

// Purge deletes the entire cache root. Not scoped to one item; a
// missing root is a no-op.
func (s *Store) Purge(ctx context.Context) error {
	if _, err := os.Lstat(s.root); os.IsNotExist(err) {
		s.logger.Info().Str("root", s.root).Msg("Cache root absent, nothing to purge")
		return nil
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	s.logger.Info().Str("root", s.root).Msg("Purging cache")
	if err := os.RemoveAll(s.root); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot purge cache root %s", s.root)
	}
	s.setupDone = false
	return nil
}

func (s *Store) lock(ctx context.Context) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	return s.locker.Acquire(ctx)
}
