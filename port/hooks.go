package port

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Hooks carries the optional observability instruments a port records
// against. The zero value is a safe no-op, mirroring how the teacher SDK
// treats an unset tracer as optional rather than requiring a nil check at
// every call site.
type Hooks struct {
	writes metric.Int64Counter
}

// NewHooks builds Hooks backed by an otel meter, registering a counter of
// write outcomes labeled "ok"/"dropped". Pass a nil meter to get a no-op
// Hooks (as when no MeterProvider is configured).
func NewHooks(meter metric.Meter) Hooks {
	if meter == nil {
		return Hooks{}
	}
	counter, err := meter.Int64Counter(
		"coco.port.writes",
		metric.WithDescription("outcomes of OutputPort.Write, by connection"),
	)
	if err != nil {
		return Hooks{}
	}
	return Hooks{writes: counter}
}

func (h Hooks) observeWrite(ok bool) {
	if h.writes == nil {
		return
	}
	outcome := "dropped"
	if ok {
		outcome = "ok"
	}
	h.writes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
