package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fiapx/chromakey-processing-service/internal/domain/port"
	"go.uber.org/zap"
)

// RawFramePattern names extracted frames; ffmpeg numbers them from 1.
const RawFramePattern = "raw_%06d.png"

type Extractor struct {
	fps    int
	logger *zap.Logger
}

// NewExtractor returns an extractor that samples fps frames per second, or
// every frame at the native rate when fps is 0.
func NewExtractor(fps int, logger *zap.Logger) *Extractor {
	return &Extractor{fps: fps, logger: logger}
}

func (e *Extractor) ExtractFrames(ctx context.Context, videoPath string, outputDir string) (*port.FrameExtractionResult, error) {
	duration, err := e.getVideoDuration(ctx, videoPath)
	if err != nil {
		e.logger.Warn("could not get video duration", zap.Error(err))
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", e.args(videoPath, outputDir)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, string(output))
	}

	frames, err := filepath.Glob(filepath.Join(outputDir, "raw_*.png"))
	if err != nil {
		return nil, fmt.Errorf("glob frames: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted from video")
	}
	// Zero padding keeps lexical order equal to frame order up to 999999 frames.
	sort.Strings(frames)

	e.logger.Info("frames extracted",
		zap.Int("count", len(frames)),
		zap.Int("fps", e.fps),
		zap.Float64("video_duration", duration),
	)

	return &port.FrameExtractionResult{
		FramePaths:    frames,
		FrameCount:    len(frames),
		VideoDuration: duration,
	}, nil
}

func (e *Extractor) args(videoPath, outputDir string) []string {
	args := []string{"-v", "error", "-i", videoPath}
	if e.fps > 0 {
		args = append(args, "-vf", fmt.Sprintf("fps=%d", e.fps))
	} else {
		// Keep one image per decoded frame instead of duplicating or dropping
		// to match a nominal output rate.
		args = append(args, "-vsync", "passthrough")
	}
	return append(args, "-y", filepath.Join(outputDir, RawFramePattern))
}

func (e *Extractor) getVideoDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}
