package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
)

func TestLockerSerializesAcquirers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "root", ".lock")

	first := NewLocker(path)
	release, err := first.Acquire(context.Background())
	require.NoError(t, err)

	// A second acquirer on the same lock file must wait, so a short
	// deadline turns into a failed acquisition.
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	second := NewLocker(path)
	_, err = second.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrFileAccess))

	release()

	release2, err := second.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestLockerCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", ".lock")

	release, err := NewLocker(path).Acquire(context.Background())
	require.NoError(t, err)
	release()

	assert.FileExists(t, path)
}
