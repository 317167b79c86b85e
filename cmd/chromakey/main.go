// Command chromakey processes one local video into a directory of 36x36
// transparent sprites named frame_0000.png, frame_0001.png, ...
//
// Settings come from the environment: VIDEO_PATH, OUTPUT_DIR, FFMPEG_FPS,
// FRAME_WORKERS, SKIP_INVALID_FRAMES, REMOVE_COLORS, OVERWRITE_OUTPUT,
// TEMP_DIR and LOG_LEVEL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiapx/chromakey-processing-service/internal/chromakey"
	"github.com/fiapx/chromakey-processing-service/internal/infra/config"
	"github.com/fiapx/chromakey-processing-service/internal/infra/ffmpeg"
	"github.com/fiapx/chromakey-processing-service/internal/infra/filesystem"
	"github.com/fiapx/chromakey-processing-service/internal/usecase"
	"github.com/fiapx/chromakey-processing-service/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("processing stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

// run extracts into a scratch directory under cfg.TempDir, which is removed
// on every return path. Frames already written to the output stay valid.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	removal, err := cfg.RemovalSet()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	rawDir, err := os.MkdirTemp(cfg.TempDir, "raw-")
	if err != nil {
		return fmt.Errorf("create raw frame dir: %w", err)
	}
	defer os.RemoveAll(rawDir)

	start := time.Now()
	extractor := ffmpeg.NewExtractor(cfg.FFmpegFPS, log)
	extracted, err := extractor.ExtractFrames(ctx, cfg.VideoPath, rawDir)
	if err != nil {
		return fmt.Errorf("extract frames: %w", err)
	}

	sink, err := filesystem.NewDirSink(cfg.OutputDir, cfg.OverwriteOutput)
	if err != nil {
		return err
	}

	runner := usecase.NewFrameRunner(chromakey.NewProcessor(removal), usecase.FrameRunnerConfig{
		Workers:     cfg.FrameWorkers,
		SkipInvalid: cfg.SkipInvalidFrames,
	}, log)
	result, err := runner.Run(ctx, extractor.Source(extracted), sink)
	if err != nil {
		return err
	}

	log.Info("video processed",
		zap.String("video", cfg.VideoPath),
		zap.String("output_dir", sink.Dir()),
		zap.Int("frames_written", len(result.FramePaths)),
		zap.Ints("frames_skipped", result.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
