package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Telemetry owns the OpenTelemetry providers of a sparkd process. Services
// never see it: they call otel.Tracer and otel.Meter, which resolve to the
// providers installed here. An exporter that cannot be built leaves the
// process on no-op providers and is reported by Degraded.
type Telemetry struct {
	cfg *Config

	tracers *sdktrace.TracerProvider
	meters  *sdkmetric.MeterProvider
	logs    *sdklog.LoggerProvider

	failures []error
}

// New validates cfg and, when telemetry is enabled, builds and installs the
// global providers.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}
	t := &Telemetry{cfg: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	res := newResource(cfg)
	if tp, err := newTracerProvider(ctx, cfg, res); err != nil {
		t.failures = append(t.failures, fmt.Errorf("traces: %w", err))
	} else {
		t.tracers = tp
	}
	if mp, err := newMeterProvider(ctx, cfg, res); err != nil {
		t.failures = append(t.failures, fmt.Errorf("metrics: %w", err))
	} else {
		t.meters = mp
	}
	if lp, err := newLoggerProvider(ctx, cfg, res); err != nil {
		t.failures = append(t.failures, fmt.Errorf("logs: %w", err))
	} else {
		t.logs = lp
	}
	t.install()
	return t, nil
}

func (t *Telemetry) install() {
	if t.tracers != nil {
		otel.SetTracerProvider(t.tracers)
	}
	if t.meters != nil {
		otel.SetMeterProvider(t.meters)
	}
	if t.logs != nil {
		global.SetLoggerProvider(t.logs)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// LoggerProvider returns the OTLP log provider for the zap bridge, or nil
// when log export is off.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil || t.logs == nil {
		return nil
	}
	return t.logs
}

// Degraded reports whether any exporter failed to start, and why.
func (t *Telemetry) Degraded() (bool, error) {
	if t == nil {
		return false, nil
	}
	err := errors.Join(t.failures...)
	return err != nil, err
}

// Shutdown flushes and stops the providers. Without a deadline on ctx the
// configured ShutdownWait applies.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && t.cfg != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.ShutdownWait)
		defer cancel()
	}

	var errs []error
	if t.tracers != nil {
		if err := t.tracers.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}
	if t.meters != nil {
		if err := t.meters.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if t.logs != nil {
		if err := t.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logger provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
