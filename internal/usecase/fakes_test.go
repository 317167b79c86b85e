package usecase

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"

	"github.com/fiapx/chromakey-processing-service/internal/domain/entity"
	"github.com/fiapx/chromakey-processing-service/internal/domain/port"
	"github.com/google/uuid"
)

type memSource struct {
	frames []image.Image
}

func (s *memSource) Len() int { return len(s.frames) }

func (s *memSource) Frame(ctx context.Context, index int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.frames[index], nil
}

type memSink struct {
	mu     sync.Mutex
	frames map[int]*image.NRGBA
}

func newMemSink() *memSink {
	return &memSink{frames: make(map[int]*image.NRGBA)}
}

func (s *memSink) WriteFrame(_ context.Context, index int, img image.Image) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[index] = img.(*image.NRGBA)
	return "mem://" + string(rune('a'+index)), nil
}

type fakeRepo struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]entity.Job
	findErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: make(map[uuid.UUID]entity.Job)}
}

func (r *fakeRepo) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeRepo) Update(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return port.ErrJobNotFound
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	job, ok := r.jobs[id]
	if !ok {
		return nil, port.ErrJobNotFound
	}
	return &job, nil
}

func (r *fakeRepo) get(id uuid.UUID) entity.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

type fakeStorage struct {
	downloadErr error
	uploads     map[string][]byte
}

func (s *fakeStorage) DownloadVideo(_ context.Context, _ string, _ string) error {
	return s.downloadErr
}

func (s *fakeStorage) UploadArchive(_ context.Context, key string, r io.Reader, _ int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if s.uploads == nil {
		s.uploads = make(map[string][]byte)
	}
	s.uploads[key] = data
	return nil
}

type fakeExtractor struct {
	frames []image.Image
	err    error
}

func (e *fakeExtractor) ExtractFrames(_ context.Context, _ string, _ string) (*port.FrameExtractionResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &port.FrameExtractionResult{FrameCount: len(e.frames), VideoDuration: 2.5}, nil
}

func (e *fakeExtractor) Source(_ *port.FrameExtractionResult) port.FrameSource {
	return &memSource{frames: e.frames}
}

type recorder struct {
	mu       sync.Mutex
	statuses []entity.VideoStatusMessage
	dlq      []string
	emails   []string
}

func (r *recorder) PublishStatus(_ context.Context, status entity.VideoStatusMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *recorder) PublishToDLQ(_ context.Context, _ []byte, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dlq = append(r.dlq, reason)
	return nil
}

func (r *recorder) NotifyFailure(_ context.Context, notice port.FailureNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, notice.UserEmail)
	return nil
}

func (r *recorder) lastStatus() (entity.VideoStatusMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return entity.VideoStatusMessage{}, errors.New("no status published")
	}
	return r.statuses[len(r.statuses)-1], nil
}
