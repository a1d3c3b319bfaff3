package internaldefs

import (
	authkit "github.com/mvassor/authkit"
)

// CounterDef binds a core metric ID to its exported name and help text.
type CounterDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// HistogramDef binds a core histogram ID to its exported name and help text.
type HistogramDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter the exporters render, in a stable order.
var CounterDefs = []CounterDef{
	{ID: authkit.MetricLoginSuccess, Name: "authkit_login_success_total", Help: "Successful login operations."},
	{ID: authkit.MetricLoginFailure, Name: "authkit_login_failure_total", Help: "Failed login operations."},
	{ID: authkit.MetricSessionCreated, Name: "authkit_session_created_total", Help: "Created sessions."},
	{ID: authkit.MetricSessionEvicted, Name: "authkit_session_evicted_total", Help: "Sessions evicted by the per-subject cap."},
	{ID: authkit.MetricSessionInvalidated, Name: "authkit_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: authkit.MetricRefreshSuccess, Name: "authkit_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authkit.MetricRefreshFailure, Name: "authkit_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: authkit.MetricReuseDetected, Name: "authkit_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: authkit.MetricValidateSuccess, Name: "authkit_validate_success_total", Help: "Successful access validations."},
	{ID: authkit.MetricValidateFailure, Name: "authkit_validate_failure_total", Help: "Denied access validations."},
	{ID: authkit.MetricTokenRevoked, Name: "authkit_token_revoked_total", Help: "Explicit token revocations."},
	{ID: authkit.MetricStoreUnavailable, Name: "authkit_store_unavailable_total", Help: "Operations denied because the store was unreachable."},
	{ID: authkit.MetricLogout, Name: "authkit_logout_total", Help: "Single-session logout operations."},
	{ID: authkit.MetricLogoutAll, Name: "authkit_logout_all_total", Help: "Logout-all operations."},
}

// HistogramDefs lists every histogram the exporters render.
var HistogramDefs = []HistogramDef{
	{ID: authkit.MetricValidateLatency, Name: "authkit_validate_latency_seconds", Help: "Access validation latency histogram."},
}

// HistogramBounds are the upper bucket bounds, in seconds, matching the core
// histogram layout.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are the bounds rewritten as instrument-name-safe
// suffixes, in the same order as HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms require.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
