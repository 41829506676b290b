// Package observe provides application-wide observability primitives for
// voxtype: OpenTelemetry metrics with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter is wired up via [InitProvider] so that metrics can be scraped from
// the standard /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxtype metrics.
const meterName = "github.com/voxtype/voxtype"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// TranscriptionDuration tracks recognizer latency per utterance.
	TranscriptionDuration metric.Float64Histogram

	// UtteranceDuration tracks the audio length of finalized utterances.
	UtteranceDuration metric.Float64Histogram

	// Utterances counts finalized utterances. Use with attribute:
	//   attribute.String("status", "transcribed"|"empty"|"failed"|"rejected")
	Utterances metric.Int64Counter

	// WakeWordDetections counts wake-word matches.
	WakeWordDetections metric.Int64Counter

	// CommandExecutions counts executed voice commands. Use with attributes:
	//   attribute.String("command", ...), attribute.String("status", ...)
	CommandExecutions metric.Int64Counter

	// CharsTyped counts characters injected as dictation output.
	CharsTyped metric.Int64Counter

	// Backspaces counts delete operations issued by the corrector.
	Backspaces metric.Int64Counter

	// InjectionErrors counts failed key injections.
	InjectionErrors metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for recognizer and utterance durations.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscriptionDuration, err = m.Float64Histogram("voxtype.stt.duration",
		metric.WithDescription("Latency of utterance transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtteranceDuration, err = m.Float64Histogram("voxtype.utterance.duration",
		metric.WithDescription("Audio length of finalized utterances."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("voxtype.utterances",
		metric.WithDescription("Finalized utterances by outcome."),
	); err != nil {
		return nil, err
	}
	if met.WakeWordDetections, err = m.Int64Counter("voxtype.wakeword.detections",
		metric.WithDescription("Wake-word matches in recognized text."),
	); err != nil {
		return nil, err
	}
	if met.CommandExecutions, err = m.Int64Counter("voxtype.command.executions",
		metric.WithDescription("Voice command executions by name and status."),
	); err != nil {
		return nil, err
	}
	if met.CharsTyped, err = m.Int64Counter("voxtype.output.chars_typed",
		metric.WithDescription("Characters injected as dictation output."),
	); err != nil {
		return nil, err
	}
	if met.Backspaces, err = m.Int64Counter("voxtype.output.backspaces",
		metric.WithDescription("Delete operations issued by the corrector."),
	); err != nil {
		return nil, err
	}
	if met.InjectionErrors, err = m.Int64Counter("voxtype.output.injection_errors",
		metric.WithDescription("Failed key injections."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide [Metrics] instance backed by the
// global OTel meter provider. Call [InitProvider] first so the instruments
// bind to the Prometheus exporter.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordUtterance records a finalized utterance with its outcome.
func (m *Metrics) RecordUtterance(ctx context.Context, status string, audioSeconds float64) {
	m.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	if audioSeconds > 0 {
		m.UtteranceDuration.Record(ctx, audioSeconds)
	}
}

// RecordCommand records a voice command execution.
func (m *Metrics) RecordCommand(ctx context.Context, command, status string) {
	m.CommandExecutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", status),
	))
}
