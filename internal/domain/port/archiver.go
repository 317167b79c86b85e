package port

import "context"

// Archiver bundles written sprite frames into one file for upload.
type Archiver interface {
	CreateArchive(ctx context.Context, framePaths []string, outputPath string) error
}
