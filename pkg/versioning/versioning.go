// Package versioning computes the version string that names one
// published snapshot of an item.
package versioning

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/instaclone/pkg/config"
	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
	"github.com/arthur-debert/instaclone/pkg/fsutil"
	"github.com/arthur-debert/instaclone/pkg/logging"
	"github.com/arthur-debert/instaclone/pkg/transport"
)

// versionOutputRe restricts what a version-probe command may emit.
// Anything else indicates a misconfigured probe, not a transport
// problem.
var versionOutputRe = regexp.MustCompile(`^[\w.-]+$`)

const versionJoiner = "-"

// Resolver derives version strings. Probe commands run through the
// injected runner so tests never fork.
type Resolver struct {
	runner transport.Runner
	logger zerolog.Logger
}

// NewResolver creates a resolver using the given runner for version
// probes.
func NewResolver(runner transport.Runner) *Resolver {
	return &Resolver{
		runner: runner,
		logger: logging.GetLogger("versioning"),
	}
}

// Resolve concatenates the item's version sources in fixed order:
// explicit version, SHA-1 of the hashable file, trimmed probe output.
// Absent sources are skipped; present ones are joined with "-". The
// result is deterministic for unchanged inputs.
func (r *Resolver) Resolve(ctx context.Context, item config.Item) (string, error) {
	var bits []string

	if item.Version != "" {
		bits = append(bits, item.Version)
	}

	if item.VersionHashable != "" {
		r.logger.Debug().Str("path", item.VersionHashable).Msg("Hashing version file")
		digest, err := fsutil.FileSHA1(item.VersionHashable)
		if err != nil {
			return "", apperrors.Wrapf(err, apperrors.ErrNotFound,
				"cannot hash version file %s", item.VersionHashable)
		}
		bits = append(bits, digest)
	}

	if item.VersionCommand != "" {
		r.logger.Debug().Str("command", item.VersionCommand).Msg("Probing version")
		argv, err := transport.Expand(item.VersionCommand, nil)
		if err != nil {
			return "", err
		}
		out, err := r.runner.Output(ctx, "", argv)
		if err != nil {
			return "", err
		}
		if !versionOutputRe.MatchString(out) {
			return "", apperrors.Newf(apperrors.ErrConfig,
				"invalid version output from version command: %q", out)
		}
		bits = append(bits, out)
	}

	if len(bits) == 0 {
		return "", apperrors.Newf(apperrors.ErrConfig,
			"item %s has no version sources", item.DisplayName())
	}

	version := strings.Join(bits, versionJoiner)
	r.logger.Debug().Str("item", item.DisplayName()).Str("version", version).Msg("Resolved version")
	return version, nil
}
