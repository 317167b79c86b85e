package usecase

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/fiapx/chromakey-processing-service/internal/chromakey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// widthTagger emits a 1x1 image whose red channel encodes the input width,
// finishing later frames first to scramble completion order.
type widthTagger struct {
	n int
}

func (p widthTagger) Process(frame image.Image) (*image.NRGBA, error) {
	w := frame.Bounds().Dx()
	time.Sleep(time.Duration(p.n-w) * time.Millisecond)
	out := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	out.SetNRGBA(0, 0, color.NRGBA{R: uint8(w), A: 255})
	return out, nil
}

func TestFrameRunnerKeepsIndexUnderConcurrency(t *testing.T) {
	const n = 16
	src := &memSource{}
	for i := 0; i < n; i++ {
		src.frames = append(src.frames, image.NewRGBA(image.Rect(0, 0, i+1, 4)))
	}
	sink := newMemSink()

	runner := NewFrameRunner(widthTagger{n: n}, FrameRunnerConfig{Workers: 4}, zap.NewNop())
	res, err := runner.Run(context.Background(), src, sink)
	require.NoError(t, err)

	require.Len(t, res.FramePaths, n)
	assert.Empty(t, res.Skipped)
	for i := 0; i < n; i++ {
		require.Contains(t, sink.frames, i)
		assert.Equal(t, uint8(i+1), sink.frames[i].Pix[0], "frame %d written under wrong index", i)
		assert.Equal(t, "mem://"+string(rune('a'+i)), res.FramePaths[i])
	}
}

func TestFrameRunnerSkipsInvalidGeometry(t *testing.T) {
	src := &memSource{frames: []image.Image{
		image.NewRGBA(image.Rect(0, 0, 64, 48)),
		image.NewRGBA(image.Rect(0, 0, 64, 1)),
		image.NewRGBA(image.Rect(0, 0, 64, 48)),
	}}
	processor := chromakey.NewProcessor(chromakey.RemovalSet{})

	sink := newMemSink()
	res, err := NewFrameRunner(processor, FrameRunnerConfig{Workers: 1, SkipInvalid: true}, zap.NewNop()).
		Run(context.Background(), src, sink)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.Skipped)
	assert.Len(t, res.FramePaths, 2)
	assert.NotContains(t, sink.frames, 1)
	assert.Equal(t, image.Rect(0, 0, chromakey.TargetSize, chromakey.TargetSize), sink.frames[2].Bounds())

	_, err = NewFrameRunner(processor, FrameRunnerConfig{Workers: 1}, zap.NewNop()).
		Run(context.Background(), src, newMemSink())
	assert.ErrorIs(t, err, chromakey.ErrInvalidGeometry)
}

func TestFrameRunnerStopsOnCancel(t *testing.T) {
	src := &memSource{frames: []image.Image{image.NewRGBA(image.Rect(0, 0, 8, 8))}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFrameRunner(widthTagger{}, FrameRunnerConfig{}, zap.NewNop()).Run(ctx, src, newMemSink())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrameRunnerEmptySource(t *testing.T) {
	res, err := NewFrameRunner(widthTagger{}, FrameRunnerConfig{Workers: 3}, zap.NewNop()).
		Run(context.Background(), &memSource{}, newMemSink())
	require.NoError(t, err)
	assert.Empty(t, res.FramePaths)
}
