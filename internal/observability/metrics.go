package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "memovault"

var (
	metricsOnce       sync.Once
	loginCounter      metric.Int64Counter
	shareCreateCount  metric.Int64Counter
	shareResolveCount metric.Int64Counter
	cleanupCounter    metric.Int64Counter
)

func initCounters() {
	metricsOnce.Do(func() {
		meter := otel.Meter(meterName)
		loginCounter, _ = meter.Int64Counter("auth.login.attempts")
		shareCreateCount, _ = meter.Int64Counter("share.links.created")
		shareResolveCount, _ = meter.Int64Counter("share.links.resolutions")
		cleanupCounter, _ = meter.Int64Counter("share.cleanup.sweeps")
	})
}

func RecordLoginAttempt(ctx context.Context, mode string, success bool) {
	initCounters()
	if loginCounter == nil {
		return
	}
	loginCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Bool("success", success),
	))
}

func RecordShareCreated(ctx context.Context, burnAfterRead bool) {
	initCounters()
	if shareCreateCount == nil {
		return
	}
	shareCreateCount.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("burn_after_read", burnAfterRead),
	))
}

// RecordShareResolution tags each public link hit with its terminal
// state machine branch.
func RecordShareResolution(ctx context.Context, outcome string) {
	initCounters()
	if shareResolveCount == nil {
		return
	}
	shareResolveCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func RecordCleanupSweep(ctx context.Context, outcome string) {
	initCounters()
	if cleanupCounter == nil {
		return
	}
	cleanupCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}
