// Package transport runs the external commands that move bytes for the
// cache: uploads, downloads, archive tools, and version probes. Command
// templates are shell-split once and expanded per token; nothing is
// ever passed through a shell.
package transport

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
	"github.com/arthur-debert/instaclone/pkg/logging"
)

// Runner executes an already-split command line. It is the single seam
// between the engine and the host system, so tests can substitute a
// fake that never forks.
type Runner interface {
	// Run executes argv, optionally in dir, reading nothing from stdin.
	Run(ctx context.Context, dir string, argv []string) error

	// Output executes argv and returns its trimmed stdout.
	Output(ctx context.Context, dir string, argv []string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger zerolog.Logger
}

// NewExecRunner creates a runner backed by the host system.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{logger: logging.GetLogger("transport.exec")}
}

func (r *ExecRunner) Run(ctx context.Context, dir string, argv []string) error {
	cmd, err := r.prepare(ctx, dir, argv)
	if err != nil {
		return err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	r.logOutput(stdout.String(), stderr.String())
	if err != nil {
		return r.commandError(err, argv, stderr.String())
	}
	return nil
}

func (r *ExecRunner) Output(ctx context.Context, dir string, argv []string) (string, error) {
	cmd, err := r.prepare(ctx, dir, argv)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	r.logOutput("", stderr.String())
	if err != nil {
		return "", r.commandError(err, argv, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *ExecRunner) prepare(ctx context.Context, dir string, argv []string) (*exec.Cmd, error) {
	if len(argv) == 0 {
		return nil, apperrors.New(apperrors.ErrInternal, "empty command line")
	}
	logging.LogCommand(argv[0], argv[1:])

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = nil
	if dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.ErrFileAccess,
				"working directory does not exist: %s", dir)
		}
		cmd.Dir = dir
	}
	return cmd, nil
}

func (r *ExecRunner) logOutput(stdout, stderr string) {
	if stdout != "" {
		r.logger.Debug().Str("output", stdout).Msg("Command stdout")
	}
	if stderr != "" {
		r.logger.Debug().Str("output", stderr).Msg("Command stderr")
	}
}

func (r *ExecRunner) commandError(err error, argv []string, stderr string) error {
	r.logger.Error().
		Err(err).
		Strs("argv", argv).
		Str("stderr", stderr).
		Msg("Command failed")

	appErr := apperrors.Wrapf(err, apperrors.ErrTransport, "command %s failed", argv[0])
	if stderr != "" {
		appErr = appErr.WithDetail("stderr", strings.TrimSpace(stderr))
	}
	return appErr
}
