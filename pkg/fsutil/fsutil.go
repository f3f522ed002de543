// Package fsutil provides the filesystem primitives shared by the cache
// and installer: atomic temp-then-rename writes, tree copies and moves,
// backups, and content hashing.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// TempSibling returns a unique work path next to target, so that the
// final os.Rename stays on the same filesystem.
func TempSibling(target string) string {
	return fmt.Sprintf("%s.partial.%s", target, uuid.NewString())
}

// WithTempRename runs fn against a temporary sibling of target and
// renames the result into place on success. The temporary path is
// removed if fn or the rename fails, so target is either fully written
// or absent.
func WithTempRename(target string, fn func(tmp string) error) error {
	if err := EnsureParentDir(target); err != nil {
		return err
	}
	tmp := TempSibling(target)
	if err := fn(tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("failed to move %s into place: %w", target, err)
	}
	return nil
}

// EnsureParentDir creates the parent directory of path if needed.
func EnsureParentDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}
	return nil
}

// Move renames src to dst, falling back to copy-and-delete when the
// rename crosses filesystems. Both files and directories are handled.
func Move(src, dst string) error {
	if err := EnsureParentDir(dst); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if info.IsDir() {
		if err := CopyTree(src, dst); err != nil {
			return err
		}
	} else {
		if err := CopyFile(src, dst); err != nil {
			return err
		}
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("failed to remove %s after move: %w", src, err)
	}
	return nil
}

// MoveToBackup renames path to path.bak, replacing any previous backup,
// and returns the backup path.
func MoveToBackup(path string) (string, error) {
	backup := path + ".bak"
	if err := os.RemoveAll(backup); err != nil {
		return "", fmt.Errorf("failed to clear old backup %s: %w", backup, err)
	}
	if err := os.Rename(path, backup); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return backup, nil
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}

	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, os.ExpandEnv(path[2:]))
	}

	return os.ExpandEnv(path)
}
