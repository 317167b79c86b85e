package port

import "context"

type FrameExtractionResult struct {
	FramePaths    []string
	FrameCount    int
	VideoDuration float64
}

// FrameExtractor decodes a video into ordered raw frames under outputDir and
// can serve them back as a FrameSource.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath string, outputDir string) (*FrameExtractionResult, error)
	Source(result *FrameExtractionResult) FrameSource
}
