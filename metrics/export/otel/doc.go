// Package otel provides OpenTelemetry metric bindings for engine counters
// and histograms. [NewExporter] registers observable instruments on a
// caller-supplied Meter; the package never owns the MeterProvider.
package otel
