package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"voicepi/internal/audio"
)

// Metrics is the Prometheus metric set for the audio front end. Queue
// counters are read straight off the queue's atomics; everything else is
// driven by session events.
type Metrics struct {
	WakeDetections       prometheus.Counter
	DetectionsSuppressed *prometheus.CounterVec
	RecordingsCompleted  *prometheus.CounterVec
	RecordingsAborted    prometheus.Counter
	RecordingDuration    prometheus.Histogram
	FramesDiscarded      prometheus.Counter
	PipelineDuration     prometheus.Histogram
	PipelineFailures     prometheus.Counter
	SessionState         prometheus.Gauge
	AudioLevel           prometheus.Gauge
}

// New registers the metric set, wiring the queue-backed collectors to q.
func New(reg prometheus.Registerer, q *audio.Queue) *Metrics {
	factory := promauto.With(reg)

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "voicepi_frames_accepted_total",
		Help: "Frames accepted onto the capture queue",
	}, func() float64 { return float64(q.Stats().Accepted) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "voicepi_frames_dropped_total",
		Help: "Frames lost to queue overflow",
	}, func() float64 { return float64(q.Stats().Dropped) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "voicepi_queue_depth",
		Help: "Frames currently buffered on the capture queue",
	}, func() float64 { return float64(q.Len()) })

	return &Metrics{
		WakeDetections: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicepi_wake_detections_total",
			Help: "Accepted wake-word triggers",
		}),
		DetectionsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicepi_detections_suppressed_total",
			Help: "Wake-word scores suppressed by gate state",
		}, []string{"reason"}),
		RecordingsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicepi_recordings_completed_total",
			Help: "Recordings handed to the pipeline, by endpoint reason",
		}, []string{"reason"}),
		RecordingsAborted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicepi_recordings_aborted_total",
			Help: "Recordings discarded because the capture device failed",
		}),
		RecordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicepi_recording_duration_seconds",
			Help:    "Audio duration of completed recordings",
			Buckets: prometheus.LinearBuckets(0.5, 1, 12),
		}),
		FramesDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicepi_frames_discarded_total",
			Help: "Frames drained and discarded while processing",
		}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicepi_pipeline_duration_seconds",
			Help:    "Wall time of the transcribe/respond/speak pipeline",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		PipelineFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicepi_pipeline_failures_total",
			Help: "Pipeline runs that returned an error",
		}),
		SessionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicepi_session_state",
			Help: "Current session state (0=listen, 1=record, 2=processing)",
		}),
		AudioLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicepi_audio_level_rms",
			Help: "RMS level of the most recent frame",
		}),
	}
}

// ObserveSession records one session event. Installed as (part of) the
// session listener.
func (m *Metrics) ObserveSession(ev audio.Event) {
	switch ev.Kind {
	case audio.EventState:
		m.SessionState.Set(float64(ev.State))
	case audio.EventLevel:
		m.AudioLevel.Set(ev.RMS)
	case audio.EventWake:
		m.WakeDetections.Inc()
	case audio.EventSuppressed:
		m.DetectionsSuppressed.WithLabelValues(ev.Reason).Inc()
	case audio.EventEndpoint:
		m.RecordingsCompleted.WithLabelValues(ev.Reason).Inc()
		m.RecordingDuration.Observe(ev.Duration.Seconds())
	case audio.EventAborted:
		m.RecordingsAborted.Inc()
	case audio.EventDiscarded:
		m.FramesDiscarded.Inc()
	case audio.EventPipelineDone:
		m.PipelineDuration.Observe(ev.Duration.Seconds())
		if ev.Reason == "error" {
			m.PipelineFailures.Inc()
		}
	}
}
