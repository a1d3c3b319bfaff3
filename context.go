package authkit

import "context"

type originAddressContextKey struct{}
type agentFingerprintContextKey struct{}

// WithOriginAddress attaches the caller's network address to ctx. Login
// stamps it into the created session for audit and introspection.
func WithOriginAddress(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, originAddressContextKey{}, addr)
}

// WithAgentFingerprint attaches a client agent fingerprint (typically a
// User-Agent hash) to ctx for the same purpose.
func WithAgentFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, agentFingerprintContextKey{}, fingerprint)
}

func originAddressFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	addr, _ := ctx.Value(originAddressContextKey{}).(string)
	return addr
}

func agentFingerprintFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	fp, _ := ctx.Value(agentFingerprintContextKey{}).(string)
	return fp
}
