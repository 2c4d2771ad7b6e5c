package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HotkeyPresses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pasteimagepath_hotkey_presses_total",
		Help: "no. of hotkey presses handled",
	})
	Pastes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pasteimagepath_pastes_total",
			Help: "no. of paste attempts by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)
	ForcedPastes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pasteimagepath_forced_pastes_total",
		Help: "no. of pastes forced by the release timeout",
	})
	ImagesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pasteimagepath_images_saved_total",
		Help: "no. of clipboard images written to disk",
	})
	PipelineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pasteimagepath_pipeline_failures_total",
			Help: "no. of degraded presses by failing stage",
		},
		[]string{"stage"},
	)
	Restores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pasteimagepath_clipboard_restores_total",
			Help: "no. of clipboard restores by outcome",
		},
		[]string{"outcome"},
	)
	SweptFiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pasteimagepath_swept_files_total",
		Help: "no. of expired images deleted",
	})
	PasteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pasteimagepath_paste_latency_seconds",
		Help:    "time from hotkey press to paste injection",
		Buckets: []float64{.01, .025, .05, .1, .2, .4, .8, 1.6},
	})
	HotkeyRegistrationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pasteimagepath_hotkey_registration_failures_total",
		Help: "no. of rejected hotkey registrations",
	})
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pasteimagepath_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)
)
