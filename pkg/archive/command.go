package archive

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
	"github.com/arthur-debert/instaclone/pkg/fsutil"
	"github.com/arthur-debert/instaclone/pkg/logging"
	"github.com/arthur-debert/instaclone/pkg/transport"
)

// CommandArchiver shells out to configured archive commands, by default
// zip and unzip. The compress command runs with the item directory as
// its working directory and sees $DIR as "."; the extract command runs
// inside the scratch output directory.
type CommandArchiver struct {
	runner          transport.Runner
	compressCommand string
	extractCommand  string
	logger          zerolog.Logger
}

// NewCommandArchiver creates an archiver around the given command
// templates. Both must reference $ARCHIVE; the compress template must
// also reference $DIR.
func NewCommandArchiver(runner transport.Runner, compressCommand, extractCommand string) *CommandArchiver {
	return &CommandArchiver{
		runner:          runner,
		compressCommand: compressCommand,
		extractCommand:  extractCommand,
		logger:          logging.GetLogger("archive.command"),
	}
}

func (a *CommandArchiver) Compress(ctx context.Context, dir, archivePath string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot read directory %s", dir)
	}
	if !info.IsDir() {
		return apperrors.Newf(apperrors.ErrInternal, "%s is not a directory", dir)
	}

	a.logger.Info().Str("dir", dir).Str("archive", archivePath).Msg("Compressing")
	return fsutil.WithTempRename(archivePath, func(tmp string) error {
		// The command runs inside dir, so the archive path must stay
		// meaningful from there
		absTmp, err := filepath.Abs(tmp)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrFileAccess, "cannot resolve archive path")
		}
		argv, err := transport.Expand(a.compressCommand, map[string]string{
			"ARCHIVE": absTmp,
			"DIR":     ".",
		})
		if err != nil {
			return err
		}
		return a.runner.Run(ctx, dir, argv)
	})
}

func (a *CommandArchiver) Extract(ctx context.Context, archivePath, dir string) error {
	absArchive, err := filepath.Abs(archivePath)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrFileAccess, "cannot resolve archive path")
	}

	a.logger.Info().Str("archive", archivePath).Str("dir", dir).Msg("Extracting")
	return fsutil.WithTempRename(dir, func(tmp string) error {
		if err := os.MkdirAll(tmp, 0755); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrFileAccess, "cannot create %s", tmp)
		}
		argv, err := transport.Expand(a.extractCommand, map[string]string{
			"ARCHIVE": absArchive,
			"DIR":     tmp,
		})
		if err != nil {
			return err
		}
		return a.runner.Run(ctx, tmp, argv)
	})
}
