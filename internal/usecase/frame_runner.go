package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fiapx/chromakey-processing-service/internal/chromakey"
	"github.com/fiapx/chromakey-processing-service/internal/domain/port"
	"github.com/fiapx/chromakey-processing-service/internal/infra/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type FrameRunnerConfig struct {
	Workers     int
	SkipInvalid bool
}

// FrameRunner pushes every frame of a source through a processor into a
// sink. Frames are handed out by index and written under that index, so
// output names follow video order whatever order workers finish in.
type FrameRunner struct {
	processor   port.FrameProcessor
	workers     int
	skipInvalid bool
	logger      *zap.Logger
}

type FrameRunResult struct {
	// FramePaths lists written frames in source order.
	FramePaths []string
	// Skipped lists source indices dropped for invalid geometry.
	Skipped []int
}

func NewFrameRunner(processor port.FrameProcessor, cfg FrameRunnerConfig, logger *zap.Logger) *FrameRunner {
	return &FrameRunner{
		processor:   processor,
		workers:     max(cfg.Workers, 1),
		skipInvalid: cfg.SkipInvalid,
		logger:      logger,
	}
}

func (r *FrameRunner) Run(ctx context.Context, src port.FrameSource, sink port.FrameSink) (*FrameRunResult, error) {
	n := src.Len()
	paths := make([]string, n)
	skipped := make([]bool, n)

	g, gctx := errgroup.WithContext(ctx)
	indices := make(chan int)

	g.Go(func() error {
		defer close(indices)
		for i := 0; i < n; i++ {
			select {
			case indices <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < r.workers; w++ {
		g.Go(func() error {
			for i := range indices {
				path, err := r.runOne(gctx, src, sink, i)
				switch {
				case err == nil:
					paths[i] = path
					metrics.FramesProcessedTotal.WithLabelValues("written").Inc()
				case r.skipInvalid && errors.Is(err, chromakey.ErrInvalidGeometry):
					skipped[i] = true
					metrics.FramesProcessedTotal.WithLabelValues("skipped").Inc()
					r.logger.Warn("skipping frame", zap.Int("index", i), zap.Error(err))
				default:
					metrics.FramesProcessedTotal.WithLabelValues("failed").Inc()
					return fmt.Errorf("frame %d: %w", i, err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &FrameRunResult{FramePaths: make([]string, 0, n)}
	for i := 0; i < n; i++ {
		if skipped[i] {
			result.Skipped = append(result.Skipped, i)
			continue
		}
		result.FramePaths = append(result.FramePaths, paths[i])
	}
	return result, nil
}

func (r *FrameRunner) runOne(ctx context.Context, src port.FrameSource, sink port.FrameSink, index int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()

	frame, err := src.Frame(ctx, index)
	if err != nil {
		return "", err
	}
	img, err := r.processor.Process(frame)
	if err != nil {
		return "", err
	}
	path, err := sink.WriteFrame(ctx, index, img)
	if err != nil {
		return "", err
	}

	metrics.FrameProcessingDuration.Observe(time.Since(start).Seconds())
	return path, nil
}
