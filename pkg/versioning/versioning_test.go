package versioning_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/instaclone/pkg/config"
	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
	"github.com/arthur-debert/instaclone/pkg/versioning"
)

const emptySHA1 = "da39a3ee5e6b4b0d3255bfef95601890afd80709"

type fakeRunner struct {
	output string
	err    error
	calls  [][]string
}

func (f *fakeRunner) Run(_ context.Context, _ string, argv []string) error {
	f.calls = append(f.calls, argv)
	return f.err
}

func (f *fakeRunner) Output(_ context.Context, _ string, argv []string) (string, error) {
	f.calls = append(f.calls, argv)
	return f.output, f.err
}

func emptyHashable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lockfile")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	return path
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit version only", func(t *testing.T) {
		resolver := versioning.NewResolver(&fakeRunner{})
		version, err := resolver.Resolve(ctx, config.Item{Version: "42"})
		require.NoError(t, err)
		assert.Equal(t, "42", version)
	})

	t.Run("explicit plus content hash", func(t *testing.T) {
		resolver := versioning.NewResolver(&fakeRunner{})
		version, err := resolver.Resolve(ctx, config.Item{
			Version:         "1.2",
			VersionHashable: emptyHashable(t),
		})
		require.NoError(t, err)
		assert.Equal(t, "1.2-"+emptySHA1, version)
	})

	t.Run("probe output only", func(t *testing.T) {
		runner := &fakeRunner{output: "v2.1"}
		resolver := versioning.NewResolver(runner)
		version, err := resolver.Resolve(ctx, config.Item{VersionCommand: "git describe --tags"})
		require.NoError(t, err)
		assert.Equal(t, "v2.1", version)
		require.Len(t, runner.calls, 1)
		assert.Equal(t, []string{"git", "describe", "--tags"}, runner.calls[0])
	})

	t.Run("all three sources in fixed order", func(t *testing.T) {
		runner := &fakeRunner{output: "build7"}
		resolver := versioning.NewResolver(runner)
		version, err := resolver.Resolve(ctx, config.Item{
			Version:         "1.2",
			VersionHashable: emptyHashable(t),
			VersionCommand:  "print-build-id",
		})
		require.NoError(t, err)
		assert.Equal(t, "1.2-"+emptySHA1+"-build7", version)
	})

	t.Run("resolution is deterministic", func(t *testing.T) {
		resolver := versioning.NewResolver(&fakeRunner{output: "v1"})
		item := config.Item{Version: "3", VersionCommand: "probe"}
		first, err := resolver.Resolve(ctx, item)
		require.NoError(t, err)
		second, err := resolver.Resolve(ctx, item)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("probe output with spaces is a config error", func(t *testing.T) {
		resolver := versioning.NewResolver(&fakeRunner{output: "not a version"})
		_, err := resolver.Resolve(ctx, config.Item{VersionCommand: "probe"})
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrConfig))
	})

	t.Run("empty probe output is a config error", func(t *testing.T) {
		resolver := versioning.NewResolver(&fakeRunner{output: ""})
		_, err := resolver.Resolve(ctx, config.Item{VersionCommand: "probe"})
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrConfig))
	})

	t.Run("probe execution failure is a transport error", func(t *testing.T) {
		runner := &fakeRunner{err: apperrors.New(apperrors.ErrTransport, "exec failed")}
		resolver := versioning.NewResolver(runner)
		_, err := resolver.Resolve(ctx, config.Item{VersionCommand: "probe"})
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrTransport))
	})

	t.Run("unreadable hashable file", func(t *testing.T) {
		resolver := versioning.NewResolver(&fakeRunner{})
		_, err := resolver.Resolve(ctx, config.Item{
			VersionHashable: filepath.Join(t.TempDir(), "gone"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrNotFound))
	})

	t.Run("no sources at all", func(t *testing.T) {
		resolver := versioning.NewResolver(&fakeRunner{})
		_, err := resolver.Resolve(ctx, config.Item{LocalPath: "/tmp/x"})
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrConfig))
	})
}
