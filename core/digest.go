package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/ema-calendar/core/events"
	"github.com/koscakluka/ema-calendar/core/settings"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const digestCheckInterval = time.Minute

// CheckDigest delivers the daily digest if now is the configured digest
// minute and it was not delivered yet today. Calling it repeatedly within the
// same day is harmless.
func (o *Orchestrator) CheckDigest(now time.Time) {
	o.dispatcher.dispatch(func() { o.checkDigest(now) })
}

func (o *Orchestrator) checkDigest(now time.Time) {
	if !o.settings.DigestEnabled || o.closed.Load() {
		return
	}
	if now.Format(settings.DigestTimeLayout) != o.settings.DigestTime {
		return
	}

	day := now.Format(time.DateOnly)
	if day == o.lastDigestDay {
		return
	}
	// Marked before generation so a slow summary is not requested twice.
	o.lastDigestDay = day
	o.deliverDigest(now)
}

func (o *Orchestrator) deliverDigest(now time.Time) {
	if !o.busy.CompareAndSwap(false, true) {
		logger.Info("deferring daily digest until the current command finishes")
		o.digestPending = true
		o.pendingDigestAt = now
		return
	}

	ctx, span := tracer.Start(o.baseContext, "deliver daily digest")
	commandCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", "digest")))
	o.emitEvent(events.NewCommandStarted(events.OriginVoice, "daily digest"))

	o.config.runAsync(func() {
		defer span.End()
		summary := o.summarize(ctx, now)
		if !o.dispatcher.dispatch(func() { o.handleDigest(now, summary) }) {
			o.busy.Store(false)
		}
	})
}

func (o *Orchestrator) summarize(ctx context.Context, day time.Time) (summary string) {
	if o.executor == nil {
		return ""
	}

	if err := panicSafeNamedWorker("digest", func(ctx context.Context) error {
		summary = o.executor.DailySummary(ctx, day)
		return nil
	})(ctx); err != nil {
		logger.Error("daily summary failed", "error", err)
		return ""
	}
	return summary
}

// handleDigest announces the summary the same way a voice response is
// announced, listening always resumes afterwards.
func (o *Orchestrator) handleDigest(day time.Time, summary string) {
	if summary == "" {
		o.finishTurn(events.OriginVoice, "")
		return
	}

	o.emitEvent(events.NewDigestDelivered(day.Format(time.DateOnly), summary))
	o.emitEvent(events.NewMessage(events.SenderAssistant, summary, ""))
	o.respondBySpeech("Here is today's summary: "+summary, true, func() {
		o.finishTurn(events.OriginVoice, summary)
	})
}

func (o *Orchestrator) runDigestTicker(ctx context.Context) {
	ticker := time.NewTicker(digestCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if o.closed.Load() {
				return
			}
			o.CheckDigest(o.config.clock.Now())
		}
	}
}
