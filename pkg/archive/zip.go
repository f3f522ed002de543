package archive

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"

	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
	"github.com/arthur-debert/instaclone/pkg/fsutil"
	"github.com/arthur-debert/instaclone/pkg/logging"
)

// ZipArchiver zips in-process, with no external tools. Like the zip
// command it follows symlinks while archiving, storing the linked
// contents instead of the links.
type ZipArchiver struct {
	logger zerolog.Logger
}

// NewZipArchiver creates the built-in zip archiver.
func NewZipArchiver() *ZipArchiver {
	return &ZipArchiver{logger: logging.GetLogger("archive.zip")}
}

func (a *ZipArchiver) Compress(ctx context.Context, dir, archivePath string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot read directory %s", dir)
	}
	if !info.IsDir() {
		return apperrors.Newf(apperrors.ErrInternal, "%s is not a directory", dir)
	}

	a.logger.Info().Str("dir", dir).Str("archive", archivePath).Msg("Compressing")
	return fsutil.WithTempRename(archivePath, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot create archive %s", tmp)
		}
		zw := zip.NewWriter(f)

		if err := addTree(zw, dir, ""); err != nil {
			zw.Close()
			f.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			f.Close()
			return apperrors.Wrap(err, apperrors.ErrFileAccess, "cannot finalize archive")
		}
		return f.Close()
	})
}

// addTree writes one directory level into the archive. Entries are
// stat'ed rather than lstat'ed so symlinks resolve to their targets,
// including symlinked directories.
func addTree(zw *zip.Writer, dir, prefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot read %s", dir)
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		rel := path.Join(prefix, entry.Name())

		info, err := os.Stat(full)
		if err != nil {
			return apperrors.Wrapf(err, apperrors.ErrFileAccess,
				"cannot resolve %s (dangling symlink?)", full)
		}

		switch {
		case info.IsDir():
			// Explicit directory entries keep empty directories alive
			if _, err := zw.CreateHeader(&zip.FileHeader{
				Name:     rel + "/",
				Modified: info.ModTime(),
			}); err != nil {
				return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot add directory %s", rel)
			}
			if err := addTree(zw, full, rel); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			hdr, err := zip.FileInfoHeader(info)
			if err != nil {
				return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot describe %s", full)
			}
			hdr.Name = rel
			hdr.Method = zip.Deflate

			w, err := zw.CreateHeader(hdr)
			if err != nil {
				return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot add %s", rel)
			}
			src, err := os.Open(full)
			if err != nil {
				return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot open %s", full)
			}
			_, err = io.Copy(w, src)
			src.Close()
			if err != nil {
				return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot archive %s", full)
			}
		default:
			return apperrors.Newf(apperrors.ErrUnsupportedType,
				"cannot archive %s: not a file or directory", full)
		}
	}
	return nil
}

func (a *ZipArchiver) Extract(ctx context.Context, archivePath, dir string) error {
	a.logger.Info().Str("archive", archivePath).Str("dir", dir).Msg("Extracting")
	return fsutil.WithTempRename(dir, func(tmp string) error {
		if err := os.MkdirAll(tmp, 0755); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot create %s", tmp)
		}
		return extractZip(archivePath, tmp)
	})
}

// extractZip unpacks an archive into destDir, rejecting entries whose
// paths would escape it.
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot open archive %s", zipPath)
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		if !strings.HasPrefix(fpath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return apperrors.Newf(apperrors.ErrFileAccess, "invalid archive entry path: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0755); err != nil {
				return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot create %s", fpath)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot create %s", filepath.Dir(fpath))
		}

		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, fpath string) error {
	out, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot create %s", fpath)
	}

	rc, err := f.Open()
	if err != nil {
		out.Close()
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot open archive entry %s", f.Name)
	}

	_, err = io.Copy(out, rc)
	rc.Close()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot extract %s", f.Name)
	}
	return nil
}
