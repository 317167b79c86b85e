package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fiapx/chromakey-processing-service/internal/chromakey"
	"github.com/fiapx/chromakey-processing-service/internal/domain/entity"
	"github.com/fiapx/chromakey-processing-service/internal/domain/port"
	"github.com/fiapx/chromakey-processing-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ProcessVideoUseCase struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	extractor port.FrameExtractor
	sinks     port.FrameSinkOpener
	archiver  port.Archiver
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	cfg       ProcessVideoConfig
}

type ProcessVideoConfig struct {
	TempDir     string
	MaxRetries  int
	Removal     chromakey.RemovalSet
	Workers     int
	SkipInvalid bool
}

func NewProcessVideoUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	extractor port.FrameExtractor,
	sinks port.FrameSinkOpener,
	archiver port.Archiver,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessVideoConfig,
) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		sinks:     sinks,
		archiver:  archiver,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
	}
}

// Execute handles one raw queue message. A nil return acks the message; an
// error requeues it for another attempt.
func (uc *ProcessVideoUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.VideoProcessingMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if errors.Is(err, port.ErrJobNotFound) {
		job = entity.NewJob(msg.UserID, msg.VideoKey, msg.FileSize, uc.cfg.MaxRetries)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	} else if err != nil {
		log.Error("failed to load job record", zap.Error(err))
		return fmt.Errorf("load job: %w", err)
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	removal, err := uc.removalSet(msg)
	if err != nil {
		log.Error("invalid remove_colors in message", zap.Error(err))
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "remove_colors: "+err.Error())
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.processVideoPipeline(ctx, job, msg, rawMsg, removal, log); err != nil {
		return err
	}

	if job.Status == entity.JobStatusCompleted {
		metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
		metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	}
	return nil
}

func (uc *ProcessVideoUseCase) removalSet(msg entity.VideoProcessingMessage) (chromakey.RemovalSet, error) {
	if msg.RemoveColors == nil {
		return uc.cfg.Removal, nil
	}
	return chromakey.RemovalSetFromTriples(msg.RemoveColors)
}

func (uc *ProcessVideoUseCase) processVideoPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.VideoProcessingMessage,
	rawMsg []byte,
	removal chromakey.RemovalSet,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	// Leftovers from a crashed attempt would collide with this run's frames.
	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.RemoveAll(workDir); err != nil {
		return fmt.Errorf("clear workdir: %w", err)
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download video from MinIO
	dlStart := time.Now()
	ctx2, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
	if err := uc.storage.DownloadVideo(ctx2, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Extract raw frames with FFmpeg
	exStart := time.Now()
	ctx3, spanEx := tracer.Start(ctx, "extract_frames")
	rawDir := filepath.Join(workDir, "raw")
	if err := os.MkdirAll(rawDir, 0755); err != nil {
		spanEx.End()
		return fmt.Errorf("create raw frames dir: %w", err)
	}
	extracted, err := uc.extractor.ExtractFrames(ctx3, videoPath, rawDir)
	if err != nil {
		spanEx.End()
		log.Error("frame extraction failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "extract_frames: "+err.Error(), log)
	}
	spanEx.End()
	metrics.JobProcessingDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())
	metrics.FramesExtractedTotal.Add(float64(extracted.FrameCount))

	// Key, crop and resize every frame
	keyStart := time.Now()
	ctx4, spanKey := tracer.Start(ctx, "chromakey_frames")
	sink, err := uc.sinks.OpenSink(filepath.Join(workDir, "frames"))
	if err != nil {
		spanKey.End()
		return fmt.Errorf("open frame sink: %w", err)
	}
	runner := NewFrameRunner(chromakey.NewProcessor(removal), FrameRunnerConfig{
		Workers:     uc.cfg.Workers,
		SkipInvalid: uc.cfg.SkipInvalid,
	}, log)
	frames, err := runner.Run(ctx4, uc.extractor.Source(extracted), sink)
	spanKey.SetAttributes(attribute.Int("frames.extracted", extracted.FrameCount))
	if err != nil {
		spanKey.End()
		log.Error("chroma key failed", zap.Error(err))
		if errors.Is(err, chromakey.ErrInvalidGeometry) || errors.Is(err, chromakey.ErrMalformedPixel) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "chromakey_frames: "+err.Error())
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "chromakey_frames: "+err.Error(), log)
	}
	spanKey.End()
	metrics.JobProcessingDuration.WithLabelValues("chromakey").Observe(time.Since(keyStart).Seconds())
	if len(frames.FramePaths) == 0 {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg,
			fmt.Sprintf("chromakey_frames: all %d frames have invalid geometry", len(frames.Skipped)))
	}

	// Create ZIP from processed frames
	zipStart := time.Now()
	ctx5, spanZip := tracer.Start(ctx, "create_zip")
	zipPath := filepath.Join(workDir, "sprites.zip")
	if err := uc.archiver.CreateArchive(ctx5, frames.FramePaths, zipPath); err != nil {
		spanZip.End()
		log.Error("zip creation failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "create_zip: "+err.Error(), log)
	}
	spanZip.End()
	metrics.JobProcessingDuration.WithLabelValues("zip").Observe(time.Since(zipStart).Seconds())

	// Upload ZIP to MinIO
	upStart := time.Now()
	ctx6, spanUp := tracer.Start(ctx, "upload_zip")
	zipKey := fmt.Sprintf("%s/sprites_%s.zip", msg.UserID, job.ID.String())
	if err := uc.uploadArchive(ctx6, zipKey, zipPath); err != nil {
		spanUp.End()
		log.Error("zip upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_zip: "+err.Error(), log)
	}
	spanUp.End()
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	job.MarkCompleted(zipKey, len(frames.FramePaths), len(frames.Skipped), extracted.VideoDuration)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed successfully",
		zap.Int("frame_count", job.FrameCount),
		zap.Int("skipped_frames", job.SkippedFrames),
		zap.Float64("duration_secs", job.VideoDuration),
		zap.String("zip_key", zipKey),
	)

	return nil
}

func (uc *ProcessVideoUseCase) uploadArchive(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return uc.storage.UploadArchive(ctx, key, f, info.Size())
}

func (uc *ProcessVideoUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.VideoProcessingMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	if err := ctx.Err(); err != nil {
		return uc.handleInterrupted(ctx, job, errMsg, log)
	}

	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return &port.RetryError{
		Attempt: job.Attempt,
		Err:     fmt.Errorf("attempt %d/%d: %s", job.Attempt, job.MaxAttempts, errMsg),
	}
}

// handleInterrupted returns the job to PENDING without spending an attempt
// and hands the message back for redelivery.
func (uc *ProcessVideoUseCase) handleInterrupted(ctx context.Context, job *entity.Job, errMsg string, log *zap.Logger) error {
	job.MarkInterrupted()
	if err := uc.repo.Update(context.WithoutCancel(ctx), job); err != nil {
		log.Error("failed to reset interrupted job", zap.Error(err))
	}
	log.Warn("job interrupted by shutdown", zap.String("stage", errMsg))
	return fmt.Errorf("interrupted: %w", ctx.Err())
}

func (uc *ProcessVideoUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.VideoProcessingMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	job.ExhaustRetries()
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, port.FailureNotice{
			UserEmail: msg.UserEmail,
			JobID:     job.ID.String(),
			VideoKey:  msg.VideoKey,
			Reason:    errMsg,
		})
	}

	return nil
}

func (uc *ProcessVideoUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	if err := uc.publisher.PublishStatus(ctx, entity.NewStatusMessage(job)); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
