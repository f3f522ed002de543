package transport

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/instaclone/pkg/fsutil"
	"github.com/arthur-debert/instaclone/pkg/logging"
)

// Adapter expands an item's transport command templates and runs them.
// Failures carry the TRANSPORT_FAILURE code; the engine never retries.
type Adapter struct {
	runner Runner
	logger zerolog.Logger
}

// NewAdapter creates an adapter over the given runner.
func NewAdapter(runner Runner) *Adapter {
	return &Adapter{
		runner: runner,
		logger: logging.GetLogger("transport"),
	}
}

// Upload sends a local payload to the remote location.
func (a *Adapter) Upload(ctx context.Context, template, localPath, remoteLoc string) error {
	argv, err := Expand(template, map[string]string{
		"LOCAL":  localPath,
		"REMOTE": remoteLoc,
	})
	if err != nil {
		return err
	}
	a.logger.Info().Str("local", localPath).Str("remote", remoteLoc).Msg("Uploading")
	return a.runner.Run(ctx, "", argv)
}

// Download fetches a remote object into targetPath. The transfer is
// written through a temporary sibling and renamed into place, so a
// failed download never leaves a partial file under the final name.
func (a *Adapter) Download(ctx context.Context, template, remoteLoc, targetPath string) error {
	a.logger.Info().Str("remote", remoteLoc).Str("local", targetPath).Msg("Downloading")
	return fsutil.WithTempRename(targetPath, func(tmp string) error {
		argv, err := Expand(template, map[string]string{
			"LOCAL":  tmp,
			"REMOTE": remoteLoc,
		})
		if err != nil {
			return err
		}
		return a.runner.Run(ctx, "", argv)
	})
}
