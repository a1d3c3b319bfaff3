// Package prometheus renders engine metrics in Prometheus text exposition
// format. [NewExporter] wraps an [authkit.Engine] and exposes an
// http.Handler; nothing is registered in a global registry, callers mount
// the handler themselves.
package prometheus
