// Package archive serializes directories to and from zip archives for
// transport. Directory items travel as a single compressed file; the
// compress/extract round trip follows symlinks, so an installed tree
// carries full contents rather than links.
package archive

import "context"

// Archiver compresses a directory into an archive file and extracts an
// archive into a directory. Implementations must write their output
// through a temporary path renamed into place, so a failed run never
// leaves a partial archive or tree under the final name.
type Archiver interface {
	Compress(ctx context.Context, dir, archivePath string) error
	Extract(ctx context.Context, archivePath, dir string) error
}
