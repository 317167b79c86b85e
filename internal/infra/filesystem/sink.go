package filesystem

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/fiapx/chromakey-processing-service/internal/domain/port"
)

// FramePattern names processed frames by their zero-based source index.
const FramePattern = "frame_%04d.png"

var ErrFrameExists = errors.New("frame already exists")

// DirSink writes processed frames as PNG files into one directory.
type DirSink struct {
	dir       string
	overwrite bool
}

// NewDirSink creates dir if needed. Unless overwrite is set, existing
// frames are never replaced.
func NewDirSink(dir string, overwrite bool) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &DirSink{dir: dir, overwrite: overwrite}, nil
}

func (s *DirSink) Dir() string {
	return s.dir
}

func (s *DirSink) Path(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf(FramePattern, index))
}

func (s *DirSink) WriteFrame(ctx context.Context, index int, img image.Image) (_ string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := s.Path(index)
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if s.overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("%s: %w", path, ErrFrameExists)
	}
	if err != nil {
		return "", fmt.Errorf("create frame file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close frame file: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode frame %d: %w", index, err)
	}
	return path, nil
}

// Opener creates a DirSink per output directory.
type Opener struct {
	Overwrite bool
}

func (o Opener) OpenSink(dir string) (port.FrameSink, error) {
	return NewDirSink(dir, o.Overwrite)
}
