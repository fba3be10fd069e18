package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-calendar/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)

	sessionRestarts, _ = meter.Int64Counter("voice.session.restarts",
		metric.WithDescription("Automatic recognition restarts after an unexpected session end"))
	sessionErrors, _ = meter.Int64Counter("voice.session.errors",
		metric.WithDescription("Recognition errors by severity"))
	commandCounter, _ = meter.Int64Counter("voice.commands",
		metric.WithDescription("Commands handled by origin"))
	speechRequests, _ = meter.Int64Counter("voice.speech.requests",
		metric.WithDescription("Speech output requests"))
)
