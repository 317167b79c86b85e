package port

import (
	"context"
	"image"
)

// FrameSource yields the frames of one video by zero-based position.
type FrameSource interface {
	Len() int
	Frame(ctx context.Context, index int) (image.Image, error)
}

// FrameProcessor turns one raw frame into one output sprite.
type FrameProcessor interface {
	Process(frame image.Image) (*image.NRGBA, error)
}

// FrameSink persists a processed frame under its source index and returns
// where it went.
type FrameSink interface {
	WriteFrame(ctx context.Context, index int, img image.Image) (string, error)
}

type FrameSinkOpener interface {
	OpenSink(dir string) (FrameSink, error)
}
