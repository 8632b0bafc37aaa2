// Package telemetry wires OpenTelemetry tracing and metrics for sparkd.
//
// A disabled or degraded Telemetry hands out the global no-op providers, so
// callers never need to nil-check before starting spans or creating
// instruments. NewTestTelemetry records spans and metrics in memory.
package telemetry
