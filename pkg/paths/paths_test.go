package paths_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arthur-debert/instaclone/pkg/paths"
)

func TestVersionedSegment(t *testing.T) {
	assert.Equal(t, "x.$3$", paths.VersionedSegment("x", "3"))
	assert.Equal(t, "data.$1.2-abcd$", paths.VersionedSegment("data", "1.2-abcd"))
}

func TestVersionedPath(t *testing.T) {
	tests := []struct {
		name       string
		remotePath string
		base       string
		version    string
		suffix     string
		expected   string
	}{
		{
			name:     "plain file",
			base:     "x",
			version:  "3",
			expected: "x.$3$/x",
		},
		{
			name:     "archive variant",
			base:     "assets",
			version:  "20240101",
			suffix:   ".zip",
			expected: "assets.$20240101$/assets.zip",
		},
		{
			name:       "with remote subpath",
			remotePath: "team/shared",
			base:       "x",
			version:    "3",
			expected:   "team/shared/x.$3$/x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paths.VersionedPath(tt.remotePath, tt.base, tt.version, tt.suffix)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestVersionedPathIsDeterministic(t *testing.T) {
	first := paths.VersionedPath("sub", "item", "v1", ".zip")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, paths.VersionedPath("sub", "item", "v1", ".zip"))
	}
}

func TestDistinctVersionsNeverCollide(t *testing.T) {
	a := paths.CachePath("/root", "s3://bucket/proj", paths.VersionedPath("", "x", "1", ""))
	b := paths.CachePath("/root", "s3://bucket/proj", paths.VersionedPath("", "x", "2", ""))
	assert.NotEqual(t, a, b)
}

func TestRemoteLoc(t *testing.T) {
	vp := paths.VersionedPath("", "x", "3", "")
	assert.Equal(t, "s3://bucket/proj/x.$3$/x", paths.RemoteLoc("s3://bucket/proj", vp))

	// Trailing slash on the prefix must not double up
	assert.Equal(t, "s3://bucket/proj/x.$3$/x", paths.RemoteLoc("s3://bucket/proj/", vp))
}

func TestPathifyRemoteLoc(t *testing.T) {
	tests := []struct {
		name     string
		loc      string
		expected string
	}{
		{
			name:     "s3 url",
			loc:      "s3://bucket/proj",
			expected: filepath.Join("s3", "bucket", "proj"),
		},
		{
			name:     "rsync style",
			loc:      "user@host:/srv/blobs",
			expected: filepath.Join("user", "host", "srv", "blobs"),
		},
		{
			name:     "dots and dashes survive",
			loc:      "gs://my-bucket/v1.2",
			expected: filepath.Join("gs", "my-bucket", "v1.2"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, paths.PathifyRemoteLoc(tt.loc))
		})
	}
}

func TestCachePath(t *testing.T) {
	// {local="/tmp/x", remote_prefix="s3://bucket/proj", version="3"}
	vp := paths.VersionedPath("", "x", "3", "")
	got := paths.CachePath("/cache", "s3://bucket/proj", vp)
	assert.Equal(t, filepath.Join("/cache", "contents", "s3", "bucket", "proj", "x.$3$", "x"), got)
}

func TestCacheRoot(t *testing.T) {
	t.Run("environment variable wins", func(t *testing.T) {
		t.Setenv(paths.CacheDirEnvVar, "/env/cache")
		assert.Equal(t, "/env/cache", paths.CacheRoot("/configured/cache"))
	})

	t.Run("configured value next", func(t *testing.T) {
		t.Setenv(paths.CacheDirEnvVar, "")
		assert.Equal(t, "/configured/cache", paths.CacheRoot("/configured/cache"))
	})

	t.Run("xdg fallback", func(t *testing.T) {
		t.Setenv(paths.CacheDirEnvVar, "")
		root := paths.CacheRoot("")
		assert.True(t, strings.HasSuffix(root, "instaclone"), "got %s", root)
	})
}
