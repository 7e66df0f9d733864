package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/fbicca/ai-heart-failure-predictor/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	cycleCounter, _ = meter.Int64Counter("voice.cycles",
		metric.WithDescription("Voice cycles started by stopping a capture"),
		metric.WithUnit("{cycle}"))
	failureCounter, _ = meter.Int64Counter("voice.failures",
		metric.WithDescription("Voice cycle failures by step"),
		metric.WithUnit("{failure}"))
	abandonCounter, _ = meter.Int64Counter("voice.playback.abandoned",
		metric.WithDescription("Playbacks cut short by a new capture session"),
		metric.WithUnit("{playback}"))
)
