package transport_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
	"github.com/arthur-debert/instaclone/pkg/transport"
)

// fakeRunner records invocations and lets tests script the outcome.
type fakeRunner struct {
	calls [][]string
	onRun func(argv []string) error
}

func (f *fakeRunner) Run(_ context.Context, _ string, argv []string) error {
	f.calls = append(f.calls, argv)
	if f.onRun != nil {
		return f.onRun(argv)
	}
	return nil
}

func (f *fakeRunner) Output(_ context.Context, _ string, argv []string) (string, error) {
	f.calls = append(f.calls, argv)
	return "", nil
}

func TestAdapterUpload(t *testing.T) {
	t.Run("expands template and runs", func(t *testing.T) {
		runner := &fakeRunner{}
		adapter := transport.NewAdapter(runner)

		err := adapter.Upload(context.Background(), "aws s3 cp $LOCAL $REMOTE",
			"/tmp/payload", "s3://bucket/payload.$1$/payload")
		require.NoError(t, err)

		require.Len(t, runner.calls, 1)
		assert.Equal(t, []string{"aws", "s3", "cp", "/tmp/payload", "s3://bucket/payload.$1$/payload"},
			runner.calls[0])
	})

	t.Run("bad template never reaches the runner", func(t *testing.T) {
		runner := &fakeRunner{}
		adapter := transport.NewAdapter(runner)

		err := adapter.Upload(context.Background(), "cp $UNDEFINED_THING $REMOTE", "/a", "s3://b")
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrConfig))
		assert.Empty(t, runner.calls)
	})

	t.Run("runner failure propagates", func(t *testing.T) {
		runner := &fakeRunner{onRun: func([]string) error {
			return apperrors.New(apperrors.ErrTransport, "upload exited 1")
		}}
		adapter := transport.NewAdapter(runner)

		err := adapter.Upload(context.Background(), "cp $LOCAL $REMOTE", "/a", "s3://b")
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrTransport))
	})
}

func TestAdapterDownload(t *testing.T) {
	t.Run("writes through a temp sibling", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "entry", "payload")

		runner := &fakeRunner{onRun: func(argv []string) error {
			// argv is ["fetch", remote, tmpPath]
			tmp := argv[2]
			assert.NotEqual(t, target, tmp, "command must see the temp path, not the final one")
			assert.Equal(t, filepath.Dir(target), filepath.Dir(tmp))
			return os.WriteFile(tmp, []byte("blob"), 0644)
		}}
		adapter := transport.NewAdapter(runner)

		err := adapter.Download(context.Background(), "fetch $REMOTE $LOCAL", "s3://b/payload", target)
		require.NoError(t, err)

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, "blob", string(data))

		entries, err := os.ReadDir(filepath.Dir(target))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "no temp leftovers")
	})

	t.Run("failed download leaves nothing behind", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "payload")

		runner := &fakeRunner{onRun: func(argv []string) error {
			// Simulate a transfer that wrote half the file then died
			if err := os.WriteFile(argv[2], []byte("hal"), 0644); err != nil {
				return err
			}
			return apperrors.New(apperrors.ErrTransport, "connection reset")
		}}
		adapter := transport.NewAdapter(runner)

		err := adapter.Download(context.Background(), "fetch $REMOTE $LOCAL", "s3://b/payload", target)
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrTransport))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "failed download must not leave partial files")
	})
}
