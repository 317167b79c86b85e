package ffmpeg

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/fiapx/chromakey-processing-service/internal/domain/port"
)

// FileFrameSource serves extracted frames in video order, decoding each
// file only when it is asked for.
type FileFrameSource struct {
	paths []string
}

func NewFileFrameSource(result *port.FrameExtractionResult) *FileFrameSource {
	return &FileFrameSource{paths: result.FramePaths}
}

func (s *FileFrameSource) Len() int {
	return len(s.paths)
}

func (s *FileFrameSource) Frame(ctx context.Context, index int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(s.paths) {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", index, len(s.paths))
	}
	img, err := imaging.Open(s.paths[index])
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", index, err)
	}
	return img, nil
}

func (e *Extractor) Source(result *port.FrameExtractionResult) port.FrameSource {
	return NewFileFrameSource(result)
}
