package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/draw"
	_ "image/png"
	"testing"

	"github.com/fiapx/chromakey-processing-service/internal/chromakey"
	"github.com/fiapx/chromakey-processing-service/internal/domain/entity"
	"github.com/fiapx/chromakey-processing-service/internal/domain/port"
	"github.com/fiapx/chromakey-processing-service/internal/infra/archive"
	"github.com/fiapx/chromakey-processing-service/internal/infra/filesystem"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	repo      *fakeRepo
	storage   *fakeStorage
	extractor *fakeExtractor
	rec       *recorder
	uc        *ProcessVideoUseCase
}

func newHarness(t *testing.T, frames ...image.Image) *harness {
	h := &harness{
		repo:      newFakeRepo(),
		storage:   &fakeStorage{},
		extractor: &fakeExtractor{frames: frames},
		rec:       &recorder{},
	}
	h.uc = NewProcessVideoUseCase(
		h.repo, h.storage, h.extractor, filesystem.Opener{}, archive.NewZipCreator(),
		h.rec, h.rec, h.rec,
		zap.NewNop(),
		ProcessVideoConfig{
			TempDir:     t.TempDir(),
			MaxRetries:  3,
			Removal:     chromakey.DefaultRemovalSet(),
			Workers:     2,
			SkipInvalid: true,
		},
	)
	return h
}

func frameOf(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func message(t *testing.T, mutate func(*entity.VideoProcessingMessage)) (entity.VideoProcessingMessage, []byte) {
	msg := entity.VideoProcessingMessage{
		JobID:     uuid.New(),
		UserID:    "user-1",
		VideoKey:  "user-1/take.mp4",
		FileSize:  2048,
		UserEmail: "user@example.com",
	}
	if mutate != nil {
		mutate(&msg)
	}
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return msg, body
}

func TestExecuteCompletesJob(t *testing.T) {
	h := newHarness(t,
		frameOf(160, 120, color.RGBA{0, 255, 0, 255}),
		frameOf(160, 1, color.RGBA{255, 0, 0, 255}),
		frameOf(160, 120, color.RGBA{255, 0, 0, 255}),
	)
	msg, body := message(t, nil)

	require.NoError(t, h.uc.Execute(context.Background(), body))

	job := h.repo.get(msg.JobID)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.FrameCount)
	assert.Equal(t, 1, job.SkippedFrames)
	assert.Equal(t, 2.5, job.VideoDuration)

	wantKey := "user-1/sprites_" + msg.JobID.String() + ".zip"
	assert.Equal(t, wantKey, job.ZipKey)
	data, ok := h.storage.uploads[wantKey]
	require.True(t, ok, "archive not uploaded")

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"frame_0000.png", "frame_0002.png"}, names)

	status, err := h.rec.lastStatus()
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, status.Status)
	assert.Equal(t, 1, status.SkippedFrames)
	assert.Empty(t, h.rec.dlq)
}

func TestExecuteMalformedMessageGoesToDLQ(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.uc.Execute(context.Background(), []byte(`{invalid json`)))
	require.Len(t, h.rec.dlq, 1)
	assert.Contains(t, h.rec.dlq[0], "unmarshal_error")
}

func TestExecuteRetriesDownloadFailure(t *testing.T) {
	h := newHarness(t, frameOf(64, 64, color.RGBA{255, 0, 0, 255}))
	h.storage.downloadErr = errors.New("connection reset")
	msg, body := message(t, nil)

	err := h.uc.Execute(context.Background(), body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempt 1/3")
	var retry *port.RetryError
	require.ErrorAs(t, err, &retry)
	assert.Equal(t, 1, retry.Attempt)

	err = h.uc.Execute(context.Background(), body)
	require.ErrorAs(t, err, &retry)
	assert.Equal(t, 2, retry.Attempt, "backoff grows with the persisted attempt")

	job := h.repo.get(msg.JobID)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Equal(t, 2, job.Attempt)
	assert.Contains(t, job.ErrorMessage, "download_video")
	assert.Empty(t, h.rec.dlq)
	assert.Empty(t, h.rec.emails)
}

func TestExecuteGivesUpAfterMaxRetries(t *testing.T) {
	h := newHarness(t)
	h.extractor.err = errors.New("moov atom not found")
	msg, body := message(t, nil)

	for i := 0; i < 2; i++ {
		require.Error(t, h.uc.Execute(context.Background(), body))
	}
	require.NoError(t, h.uc.Execute(context.Background(), body))

	job := h.repo.get(msg.JobID)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Equal(t, 3, job.Attempt)
	assert.Len(t, h.rec.dlq, 1)
	assert.Equal(t, []string{"user@example.com"}, h.rec.emails)

	// Redelivery of an exhausted job goes straight to the DLQ.
	require.NoError(t, h.uc.Execute(context.Background(), body))
	assert.Len(t, h.rec.dlq, 2)
}

func TestExecuteRejectsBadRemoveColors(t *testing.T) {
	h := newHarness(t, frameOf(64, 64, color.RGBA{255, 0, 0, 255}))
	msg, body := message(t, func(m *entity.VideoProcessingMessage) {
		m.RemoveColors = [][]int{{0, 0, 999}}
	})

	require.NoError(t, h.uc.Execute(context.Background(), body))

	job := h.repo.get(msg.JobID)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.False(t, job.CanRetry())
	require.Len(t, h.rec.dlq, 1)
	assert.Contains(t, h.rec.dlq[0], "remove_colors")
}

func TestExecuteRejectsShortRemoveColors(t *testing.T) {
	h := newHarness(t, frameOf(64, 64, color.RGBA{255, 0, 0, 255}))
	msg, body := message(t, func(m *entity.VideoProcessingMessage) {
		m.RemoveColors = [][]int{{255, 0}}
	})

	require.NoError(t, h.uc.Execute(context.Background(), body))

	job := h.repo.get(msg.JobID)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Empty(t, h.storage.uploads, "no sprites for a job with a malformed palette")
	require.Len(t, h.rec.dlq, 1)
	assert.Contains(t, h.rec.dlq[0], "want 3 components")
}

func TestExecuteUsesMessagePalette(t *testing.T) {
	h := newHarness(t, frameOf(64, 64, color.RGBA{255, 0, 0, 255}))
	msg, body := message(t, func(m *entity.VideoProcessingMessage) {
		m.RemoveColors = [][]int{{255, 0, 0}}
	})

	require.NoError(t, h.uc.Execute(context.Background(), body))
	job := h.repo.get(msg.JobID)
	require.Equal(t, entity.JobStatusCompleted, job.Status)

	zr, err := zip.NewReader(bytes.NewReader(h.storage.uploads[job.ZipKey]), int64(len(h.storage.uploads[job.ZipKey])))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	f, err := zr.File[0].Open()
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	_, _, _, a := img.At(18, 18).RGBA()
	assert.Zero(t, a, "red was listed and should be transparent")
}

func TestExecuteAllFramesInvalid(t *testing.T) {
	h := newHarness(t, frameOf(64, 1, color.RGBA{255, 0, 0, 255}))
	msg, body := message(t, nil)

	require.NoError(t, h.uc.Execute(context.Background(), body))
	job := h.repo.get(msg.JobID)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "invalid geometry")
	assert.Len(t, h.rec.dlq, 1)
}

func TestExecuteRequeuesOnRepositoryError(t *testing.T) {
	h := newHarness(t)
	h.repo.findErr = errors.New("too many connections")
	_, body := message(t, nil)

	assert.Error(t, h.uc.Execute(context.Background(), body))
	assert.Empty(t, h.rec.dlq)
}

func TestExecuteShutdownKeepsAttempt(t *testing.T) {
	h := newHarness(t, frameOf(64, 64, color.RGBA{255, 0, 0, 255}))
	h.extractor.err = context.Canceled
	msg, body := message(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.uc.Execute(ctx, body)
	require.ErrorIs(t, err, context.Canceled)
	var retry *port.RetryError
	assert.False(t, errors.As(err, &retry))

	job := h.repo.get(msg.JobID)
	assert.Equal(t, entity.JobStatusPending, job.Status)
	assert.Zero(t, job.Attempt)
	assert.Empty(t, h.rec.dlq)
	assert.Empty(t, h.rec.statuses)

	h.extractor.err = nil
	require.NoError(t, h.uc.Execute(context.Background(), body))
	job = h.repo.get(msg.JobID)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.Attempt)
}
