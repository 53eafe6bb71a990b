package coco

import (
	"context"
	"log/slog"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/otel"

	"github.com/cocomr/coco/assembly"
	"github.com/cocomr/coco/descriptor"
	"github.com/cocomr/coco/registry"
)

// Option configures New.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	registry   *registry.Registry
	singleShot bool
}

// WithLogger overrides the default slog logger threaded through the
// registry, every task, and every activity.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegistry supplies a pre-populated registry (already carrying
// RegisterSpec calls for the application's task types) instead of an
// empty one.
func WithRegistry(reg *registry.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithSingleShot forces single-shot mode regardless of what the
// descriptor's launch section says.
func WithSingleShot() Option {
	return func(o *options) { o.singleShot = true }
}

// New loads the descriptor at path and assembles it into a ready-to-start
// App.
func New(path string, opts ...Option) (*assembly.App, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	d, err := descriptor.Load(path)
	if err != nil {
		return nil, err
	}
	if o.singleShot {
		if d.Launch == nil {
			d.Launch = &descriptor.Launch{}
		}
		d.Launch.SingleShot = true
	}

	reg := o.registry
	if reg == nil {
		reg = registry.New(o.logger)
	}

	return assembly.Build(reg, d, o.logger)
}

// SetupObservability installs a process-wide otel TracerProvider and
// MeterProvider so every port write, engine step, and future exporter a
// caller attaches has somewhere to record against. It returns a shutdown
// function to call during graceful exit. Without an exporter configured
// by the embedding program, the providers record but export nowhere — the
// same "safe to leave unconfigured" default the port package's Hooks
// assumes.
func SetupObservability(ctx context.Context) (shutdown func(context.Context) error, err error) {
	tp := sdktrace.NewTracerProvider()
	mp := sdkmetric.NewMeterProvider()

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}, nil
}
