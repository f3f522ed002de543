package transport_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
	"github.com/arthur-debert/instaclone/pkg/transport"
)

func TestExecRunnerRun(t *testing.T) {
	runner := transport.NewExecRunner()
	ctx := context.Background()

	t.Run("zero exit", func(t *testing.T) {
		assert.NoError(t, runner.Run(ctx, "", []string{"true"}))
	})

	t.Run("non-zero exit is a transport failure", func(t *testing.T) {
		err := runner.Run(ctx, "", []string{"false"})
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrTransport))
	})

	t.Run("unknown binary is a transport failure", func(t *testing.T) {
		err := runner.Run(ctx, "", []string{"instaclone-no-such-binary"})
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrTransport))
	})

	t.Run("missing working directory", func(t *testing.T) {
		err := runner.Run(ctx, filepath.Join(t.TempDir(), "gone"), []string{"true"})
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrFileAccess))
	})

	t.Run("empty argv", func(t *testing.T) {
		err := runner.Run(ctx, "", nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrInternal))
	})
}

func TestExecRunnerOutput(t *testing.T) {
	runner := transport.NewExecRunner()
	ctx := context.Background()

	t.Run("captures trimmed stdout", func(t *testing.T) {
		out, err := runner.Output(ctx, "", []string{"echo", "v2.1"})
		require.NoError(t, err)
		assert.Equal(t, "v2.1", out)
	})

	t.Run("runs in the given directory", func(t *testing.T) {
		dir := t.TempDir()
		out, err := runner.Output(ctx, dir, []string{"pwd"})
		require.NoError(t, err)
		// macOS tempdirs resolve through /private, compare suffix only
		assert.True(t, filepath.Base(out) == filepath.Base(dir))
	})

	t.Run("failure yields no output", func(t *testing.T) {
		_, err := runner.Output(ctx, "", []string{"false"})
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrTransport))
	})
}
