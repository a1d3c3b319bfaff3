package authkit

import (
	"errors"
	"time"
)

// Config groups every tunable of the engine. Build a value with
// DefaultConfig, override what differs, and hand it to the Builder; after
// Build the configuration is immutable.
type Config struct {
	Token      TokenConfig
	Session    SessionConfig
	Revocation RevocationConfig
	Timeouts   TimeoutConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// TokenConfig configures the token codec and claim validator.
type TokenConfig struct {
	// SigningMethod is "hs256" or "ed25519".
	SigningMethod string
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
}

// SessionConfig configures session persistence and the concurrency cap.
type SessionConfig struct {
	RedisPrefix           string
	AbsoluteLifetime      time.Duration
	MaxSessionsPerSubject int
}

// RevocationConfig configures the revocation registry and its local
// read-through cache. CacheTTL is clamped to one second: cached answers may
// never be staler than that.
type RevocationConfig struct {
	RedisPrefix string
	CacheSize   int
	CacheTTL    time.Duration
}

// TimeoutConfig bounds every store round-trip. A timeout is a fail-secure
// deny, never a pass.
type TimeoutConfig struct {
	Validate time.Duration
	Refresh  time.Duration
	Login    time.Duration
	Logout   time.Duration
}

// AuditConfig controls the asynchronous audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events under backpressure instead of blocking the
	// request path; drops are counted and exported.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

const (
	maxValidateTimeout = 250 * time.Millisecond
	maxRefreshTimeout  = time.Second
)

// DefaultConfig returns the baseline configuration: one-hour access tokens,
// seven-day refresh tokens, thirty-day session cap, five concurrent sessions
// per subject.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod: "hs256",
			AccessTTL:     time.Hour,
			RefreshTTL:    7 * 24 * time.Hour,
			Leeway:        30 * time.Second,
			MaxFutureIAT:  10 * time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix:           "session",
			AbsoluteLifetime:      30 * 24 * time.Hour,
			MaxSessionsPerSubject: 5,
		},
		Revocation: RevocationConfig{
			RedisPrefix: "revoked",
			CacheSize:   4096,
			CacheTTL:    500 * time.Millisecond,
		},
		Timeouts: TimeoutConfig{
			Validate: maxValidateTimeout,
			Refresh:  maxRefreshTimeout,
			Login:    maxRefreshTimeout,
			Logout:   maxRefreshTimeout,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations that would weaken the security posture or
// violate the latency contract.
func (c Config) Validate() error {
	if c.Token.AccessTTL <= 0 {
		return errors.New("token: access TTL must be positive")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("token: refresh TTL must not be shorter than access TTL")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("token: leeway out of range")
	}
	if c.Token.MaxFutureIAT < 0 || c.Token.MaxFutureIAT > 24*time.Hour {
		return errors.New("token: max future iat out of range")
	}
	if c.Session.AbsoluteLifetime <= 0 {
		return errors.New("session: absolute lifetime must be positive")
	}
	if c.Session.MaxSessionsPerSubject < 0 {
		return errors.New("session: max sessions must not be negative")
	}
	if c.Revocation.CacheTTL < 0 {
		return errors.New("revocation: cache TTL must not be negative")
	}
	if c.Timeouts.Validate <= 0 || c.Timeouts.Validate > maxValidateTimeout {
		return errors.New("timeouts: validate must be in (0, 250ms]")
	}
	if c.Timeouts.Refresh <= 0 || c.Timeouts.Refresh > maxRefreshTimeout {
		return errors.New("timeouts: refresh must be in (0, 1s]")
	}
	if c.Timeouts.Login <= 0 || c.Timeouts.Logout <= 0 {
		return errors.New("timeouts: login and logout must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
