package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chromakey_jobs_processed_total",
		Help: "Total number of jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chromakey_job_processing_duration_seconds",
		Help:    "Duration of video processing pipeline stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chromakey_frames_extracted_total",
		Help: "Total number of raw frames extracted across all jobs",
	})

	FramesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chromakey_frames_processed_total",
		Help: "Frames run through the chroma key pipeline, by result",
	}, []string{"result"})

	FrameProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chromakey_frame_processing_duration_seconds",
		Help:    "Time to decode, key, crop, resize and write one frame",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chromakey_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chromakey_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
