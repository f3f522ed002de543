// Package config loads and validates instaclone configuration: the
// cache settings and the list of items to publish or install. Values
// merge in order: built-in defaults, then the config file, then
// INSTACLONE_* environment variables.
package config

import (
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
	"github.com/arthur-debert/instaclone/pkg/fsutil"
)

// CopyType selects how the installer materializes a cache entry at the
// item's local path.
type CopyType string

const (
	CopySymlink  CopyType = "symlink"
	CopyHardlink CopyType = "hardlink"
	CopyCopy     CopyType = "copy"
)

// Item describes one thing to cache: where it lives locally, where its
// blobs go remotely, and how its version string is determined.
type Item struct {
	// Name is an optional label used to select items on the command
	// line. Defaults to the local path's basename.
	Name string `koanf:"name" yaml:"name,omitempty"`

	// LocalPath is the file or directory being published/installed.
	LocalPath string `koanf:"local_path" yaml:"local_path"`

	// RemotePrefix is the base blob location, e.g. "s3://bucket/blobs".
	RemotePrefix string `koanf:"remote_prefix" yaml:"remote_prefix"`

	// RemotePath is an optional subpath inserted between the prefix and
	// the versioned directory.
	RemotePath string `koanf:"remote_path" yaml:"remote_path,omitempty"`

	CopyType CopyType `koanf:"copy_type" yaml:"copy_type"`

	// Version sources. At least one must be set; non-empty values are
	// concatenated in this order to form the version string.
	Version         string `koanf:"version" yaml:"version,omitempty"`
	VersionHashable string `koanf:"version_hashable" yaml:"version_hashable,omitempty"`
	VersionCommand  string `koanf:"version_command" yaml:"version_command,omitempty"`

	// Transport command templates with $REMOTE and $LOCAL placeholders.
	UploadCommand   string `koanf:"upload_command" yaml:"upload_command"`
	DownloadCommand string `koanf:"download_command" yaml:"download_command"`
}

// DisplayName returns the item's label for logs and CLI selection.
func (i Item) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return filepath.Base(i.LocalPath)
}

// ArchiverKind selects the archive implementation for directory items.
type ArchiverKind string

const (
	// ArchiverCommand shells out to the configured archive commands.
	ArchiverCommand ArchiverKind = "command"
	// ArchiverBuiltin zips in-process, no external tools required.
	ArchiverBuiltin ArchiverKind = "builtin"
)

// Settings holds cache-wide options.
type Settings struct {
	// CacheDir overrides the default cache root. The
	// INSTACLONE_CACHE_DIR environment variable wins over this.
	CacheDir string `koanf:"cache_dir" yaml:"cache_dir,omitempty"`

	Archiver ArchiverKind `koanf:"archiver" yaml:"archiver"`

	// Command templates for ArchiverCommand, with $ARCHIVE and $DIR
	// placeholders.
	ArchiveCommand   string `koanf:"archive_command" yaml:"archive_command"`
	UnarchiveCommand string `koanf:"unarchive_command" yaml:"unarchive_command"`

	// Locking serializes cache mutations across processes with a lock
	// file under the cache root. Off by default; plain filesystem
	// rename atomicity is the baseline guarantee.
	Locking bool `koanf:"locking" yaml:"locking"`
}

// Config is the root configuration: settings, per-item defaults, and
// the item list.
type Config struct {
	Settings Settings `koanf:"settings" yaml:"settings"`
	Defaults Item     `koanf:"defaults" yaml:"defaults,omitempty"`
	Items    []Item   `koanf:"items" yaml:"items"`
}

var (
	safeBasenameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	remoteTokenRe  = regexp.MustCompile(`[a-zA-Z0-9_.-]+`)
)

// applyDefaults fills empty item fields from the defaults section.
// Name and LocalPath identify the item and are never defaulted.
func (i *Item) applyDefaults(d Item) {
	if i.RemotePrefix == "" {
		i.RemotePrefix = d.RemotePrefix
	}
	if i.RemotePath == "" {
		i.RemotePath = d.RemotePath
	}
	if i.CopyType == "" {
		i.CopyType = d.CopyType
	}
	if i.Version == "" {
		i.Version = d.Version
	}
	if i.VersionHashable == "" {
		i.VersionHashable = d.VersionHashable
	}
	if i.VersionCommand == "" {
		i.VersionCommand = d.VersionCommand
	}
	if i.UploadCommand == "" {
		i.UploadCommand = d.UploadCommand
	}
	if i.DownloadCommand == "" {
		i.DownloadCommand = d.DownloadCommand
	}
}

// normalize expands ~ and environment variables in the item's local
// filesystem paths. Command templates are left alone; their variables
// are substituted at execution time.
func (i *Item) normalize() {
	i.LocalPath = fsutil.ExpandPath(i.LocalPath)
	if i.VersionHashable != "" {
		i.VersionHashable = fsutil.ExpandPath(i.VersionHashable)
	}
}

func (i Item) validate() error {
	if i.LocalPath == "" {
		return apperrors.New(apperrors.ErrConfig, "item is missing local_path")
	}
	base := filepath.Base(i.LocalPath)
	if !safeBasenameRe.MatchString(base) {
		return apperrors.Newf(apperrors.ErrConfig,
			"local path basename %q contains characters unsafe for cache paths", base)
	}
	if i.RemotePrefix == "" {
		return apperrors.Newf(apperrors.ErrConfig, "item %s is missing remote_prefix", i.DisplayName())
	}
	if len(remoteTokenRe.FindAllString(i.RemotePrefix, -1)) == 0 {
		return apperrors.Newf(apperrors.ErrConfig,
			"remote_prefix %q contains no usable path tokens", i.RemotePrefix)
	}
	switch i.CopyType {
	case CopySymlink, CopyHardlink, CopyCopy:
	default:
		return apperrors.Newf(apperrors.ErrConfig,
			"item %s has invalid copy_type %q (want symlink, hardlink or copy)", i.DisplayName(), i.CopyType)
	}
	if i.Version == "" && i.VersionHashable == "" && i.VersionCommand == "" {
		return apperrors.Newf(apperrors.ErrConfig,
			"item %s needs at least one of version, version_hashable or version_command", i.DisplayName())
	}
	if i.UploadCommand == "" {
		return apperrors.Newf(apperrors.ErrConfig, "item %s is missing upload_command", i.DisplayName())
	}
	if i.DownloadCommand == "" {
		return apperrors.Newf(apperrors.ErrConfig, "item %s is missing download_command", i.DisplayName())
	}
	for _, tmpl := range []struct{ name, cmd string }{
		{"upload_command", i.UploadCommand},
		{"download_command", i.DownloadCommand},
	} {
		for _, placeholder := range []string{"REMOTE", "LOCAL"} {
			if !hasPlaceholder(tmpl.cmd, placeholder) {
				return apperrors.Newf(apperrors.ErrConfig,
					"item %s: %s must reference $%s", i.DisplayName(), tmpl.name, placeholder)
			}
		}
	}
	return nil
}

func (s Settings) validate() error {
	switch s.Archiver {
	case ArchiverCommand:
		if !hasPlaceholder(s.ArchiveCommand, "ARCHIVE") || !hasPlaceholder(s.ArchiveCommand, "DIR") {
			return apperrors.New(apperrors.ErrConfig,
				"archive_command must reference $ARCHIVE and $DIR")
		}
		if !hasPlaceholder(s.UnarchiveCommand, "ARCHIVE") {
			return apperrors.New(apperrors.ErrConfig,
				"unarchive_command must reference $ARCHIVE")
		}
	case ArchiverBuiltin:
	default:
		return apperrors.Newf(apperrors.ErrConfig,
			"invalid archiver %q (want command or builtin)", s.Archiver)
	}
	return nil
}

// Validate checks the whole configuration and returns a CONFIG_INVALID
// error describing the first problem found.
func (c *Config) Validate() error {
	if err := c.Settings.validate(); err != nil {
		return err
	}
	if len(c.Items) == 0 {
		return apperrors.New(apperrors.ErrConfig, "no items configured")
	}
	seen := make(map[string]bool, len(c.Items))
	for _, item := range c.Items {
		if err := item.validate(); err != nil {
			return err
		}
		name := item.DisplayName()
		if seen[name] {
			return apperrors.Newf(apperrors.ErrConfig, "duplicate item %s", name)
		}
		seen[name] = true
	}
	return nil
}

// SelectItems returns the items matching the given names, or all items
// when names is empty. Unknown names are a CONFIG_INVALID error.
func (c *Config) SelectItems(names []string) ([]Item, error) {
	if len(names) == 0 {
		return c.Items, nil
	}
	byName := make(map[string]Item, len(c.Items))
	for _, item := range c.Items {
		byName[item.DisplayName()] = item
	}
	selected := make([]Item, 0, len(names))
	for _, name := range names {
		item, ok := byName[name]
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrConfig, "no configured item named %q", name)
		}
		selected = append(selected, item)
	}
	return selected, nil
}

func hasPlaceholder(cmd, name string) bool {
	return strings.Contains(cmd, "$"+name) || strings.Contains(cmd, "${"+name+"}")
}
