// Package paths derives cache and remote locations for versioned items.
// All derivations are pure: the same item, version, and suffix always
// map to the same paths.
package paths

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adrg/xdg"

	"github.com/arthur-debert/instaclone/pkg/fsutil"
)

const (
	// VersionSep and VersionEnd bracket the version inside a versioned
	// directory name, e.g. "photos.$20240101$". The dollar signs keep
	// version directories visually distinct from payload names.
	VersionSep = ".$"
	VersionEnd = "$"

	// ArchiveSuffix marks the archive variant of an item.
	ArchiveSuffix = ".zip"

	// ContentsDir is the subdirectory of the cache root that holds all
	// cache entries.
	ContentsDir = "contents"
)

// CacheDirEnvVar overrides any configured cache root when set.
const CacheDirEnvVar = "INSTACLONE_CACHE_DIR"

var remoteTokenRe = regexp.MustCompile(`[a-zA-Z0-9_.-]+`)

// VersionedSegment returns the directory name that pins one version of
// an item, "<base>.$<version>$".
func VersionedSegment(base, version string) string {
	return fmt.Sprintf("%s%s%s%s", base, VersionSep, version, VersionEnd)
}

// VersionedPath returns the slash-separated relative path naming one
// version of an item: an optional remote subpath, the versioned
// directory, and the payload name (with suffix) inside it.
func VersionedPath(remotePath, base, version, suffix string) string {
	segment := VersionedSegment(base, version)
	if remotePath == "" {
		return path.Join(segment, base+suffix)
	}
	return path.Join(remotePath, segment, base+suffix)
}

// RemoteLoc joins a transport prefix with a versioned path. The prefix
// is kept verbatim so URL schemes like s3:// survive the join.
func RemoteLoc(remotePrefix, versionedPath string) string {
	return strings.TrimSuffix(remotePrefix, "/") + "/" + versionedPath
}

// PathifyRemoteLoc flattens a remote location into nested
// filesystem-safe segments: "s3://bucket/proj" becomes "s3/bucket/proj".
// The mapping is lossy; it only needs to stay unique per prefix and
// readable for humans browsing the cache.
func PathifyRemoteLoc(remoteLoc string) string {
	tokens := remoteTokenRe.FindAllString(remoteLoc, -1)
	return filepath.Join(tokens...)
}

// CachePath returns the absolute location of a versioned item under the
// cache root's contents directory.
func CachePath(root, remotePrefix, versionedPath string) string {
	return filepath.Join(root, ContentsDir, PathifyRemoteLoc(remotePrefix), filepath.FromSlash(versionedPath))
}

// CacheRoot resolves the cache root directory. Precedence: the
// INSTACLONE_CACHE_DIR environment variable, the configured value, then
// the XDG cache home.
func CacheRoot(configured string) string {
	if dir := os.Getenv(CacheDirEnvVar); dir != "" {
		return fsutil.ExpandPath(dir)
	}
	if configured != "" {
		return fsutil.ExpandPath(configured)
	}
	return filepath.Join(xdg.CacheHome, "instaclone")
}
