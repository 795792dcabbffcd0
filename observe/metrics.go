// Package observe holds the OpenTelemetry instruments for push-to-talk
// sessions and the Prometheus bridge that exposes them on /metrics.
package observe

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "ptt"

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	SessionsStarted metric.Int64Counter
	// SessionOutcomes counts finished sessions by attribute "outcome":
	// empty_audio, typed, no_text, stt_error, encode_error, inject_error.
	SessionOutcomes metric.Int64Counter
	STTDuration     metric.Float64Histogram
	STTErrors       metric.Int64Counter
	RecordedSeconds metric.Float64Histogram
	DroppedEvents   metric.Int64Counter
}

var latencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30}

var lengthBuckets = []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionsStarted, err = m.Int64Counter("ptt.sessions.started",
		metric.WithDescription("Recording sessions started by a hotkey press.")); err != nil {
		return nil, err
	}
	if met.SessionOutcomes, err = m.Int64Counter("ptt.sessions.outcome",
		metric.WithDescription("Finished sessions by outcome.")); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("ptt.stt.duration",
		metric.WithDescription("Latency of speech-to-text requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...)); err != nil {
		return nil, err
	}
	if met.STTErrors, err = m.Int64Counter("ptt.stt.errors",
		metric.WithDescription("Failed speech-to-text requests.")); err != nil {
		return nil, err
	}
	if met.RecordedSeconds, err = m.Float64Histogram("ptt.recording.length",
		metric.WithDescription("Length of captured audio per session."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(lengthBuckets...)); err != nil {
		return nil, err
	}
	if met.DroppedEvents, err = m.Int64Counter("ptt.ui.dropped_events",
		metric.WithDescription("UI notifications dropped because the queue was full.")); err != nil {
		return nil, err
	}
	return met, nil
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Add(context.Background(), 1)
}

func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.SessionOutcomes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) STT(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	m.STTDuration.Record(context.Background(), d.Seconds(), attrs)
	if err != nil {
		m.STTErrors.Add(context.Background(), 1, attrs)
	}
}

func (m *Metrics) Recorded(d time.Duration) {
	if m == nil {
		return
	}
	m.RecordedSeconds.Record(context.Background(), d.Seconds())
}

func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.DroppedEvents.Add(context.Background(), 1)
}

// InitProvider installs a global MeterProvider backed by the Prometheus
// exporter. The returned function flushes and shuts it down.
func InitProvider() (shutdown func(context.Context) error, err error) {
	exp, err := promexporter.New()
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// Handler serves /metrics plus the pprof endpoints.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
