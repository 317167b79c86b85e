package entity

import "github.com/google/uuid"

// VideoProcessingMessage is the inbound message from the video.processing queue.
// RemoveColors, when set, replaces the worker's configured removal palette.
type VideoProcessingMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	UserID       string    `json:"user_id"`
	VideoKey     string    `json:"video_key"`
	FileSize     int64     `json:"file_size"`
	UserEmail    string    `json:"user_email"`
	RemoveColors [][]int   `json:"remove_colors,omitempty"`
}

// VideoStatusMessage is the outbound message published to the video.status queue.
type VideoStatusMessage struct {
	JobID         uuid.UUID `json:"job_id"`
	UserID        string    `json:"user_id"`
	Status        JobStatus `json:"status"`
	VideoKey      string    `json:"video_key"`
	ZipKey        string    `json:"zip_key,omitempty"`
	FrameCount    int       `json:"frame_count,omitempty"`
	SkippedFrames int       `json:"skipped_frames,omitempty"`
	Duration      float64   `json:"duration_seconds,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Attempt       int       `json:"attempt"`
	MaxAttempts   int       `json:"max_attempts"`
}

func NewStatusMessage(job *Job) VideoStatusMessage {
	return VideoStatusMessage{
		JobID:         job.ID,
		UserID:        job.UserID,
		Status:        job.Status,
		VideoKey:      job.VideoKey,
		ZipKey:        job.ZipKey,
		FrameCount:    job.FrameCount,
		SkippedFrames: job.SkippedFrames,
		Duration:      job.VideoDuration,
		ErrorMessage:  job.ErrorMessage,
		Attempt:       job.Attempt,
		MaxAttempts:   job.MaxAttempts,
	}
}
