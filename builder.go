package authkit

import (
	"errors"
	"log"

	"github.com/mvassor/authkit/internal/flows"
	"github.com/mvassor/authkit/revocation"
	"github.com/mvassor/authkit/session"
	"github.com/mvassor/authkit/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Construction is allocation-only; no I/O
// happens until the first Engine call.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	auditSink AuditSink
	built     bool
}

// New starts a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing sessions and revocations. The
// distributed store is the sole source of truth for both; the engine keeps
// no authoritative state in process.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder is
// single-use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(token.Config{
		SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
	})
	if err != nil {
		return nil, err
	}

	validator := &token.Validator{
		Leeway:       cfg.Token.Leeway,
		MaxFutureIAT: cfg.Token.MaxFutureIAT,
	}

	sessions := session.NewStore(b.redis, cfg.Session.RedisPrefix)
	limiter := session.NewLimiter(sessions, cfg.Session.MaxSessionsPerSubject)
	revocations := revocation.NewRegistry(
		b.redis,
		cfg.Revocation.RedisPrefix,
		cfg.Revocation.CacheSize,
		cfg.Revocation.CacheTTL,
	)

	engine := &Engine{
		config:      cfg,
		codec:       codec,
		validator:   validator,
		sessions:    sessions,
		limiter:     limiter,
		revocations: revocations,
		audit:       newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:     NewMetrics(cfg.Metrics),
	}
	engine.deps = flows.Deps{
		Codec:           codec,
		Validator:       validator,
		Sessions:        sessions,
		Limiter:         limiter,
		Revocations:     revocations,
		SessionLifetime: cfg.Session.AbsoluteLifetime,
		Warn:            log.Printf,
	}

	b.built = true
	return engine, nil
}
