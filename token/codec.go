package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the signature algorithm a Codec is pinned to.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256 using a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with Ed25519 key pairs.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrMalformed reports a token string that is not a structurally valid JWS.
	ErrMalformed = errors.New("malformed token")
	// ErrSignatureInvalid reports a token whose signature does not verify.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrUnsupportedAlgorithm reports a token asserting a signature algorithm
	// other than the one the codec is pinned to, including "none".
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)

// Config holds the immutable codec parameters. Exactly one signing method is
// pinned for the codec's lifetime; tokens asserting any other algorithm are
// rejected at decode.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Codec mints and decodes signed compact tokens. It is a pure component:
// no I/O, safe for concurrent use.
type Codec struct {
	config Config
	method jwt.SigningMethod
}

// NewCodec validates the configuration and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("access TTL must be positive")
	}
	if cfg.RefreshTTL <= 0 {
		return nil, errors.New("refresh TTL must be positive")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}

	var method jwt.SigningMethod
	switch cfg.SigningMethod {
	case MethodHS256:
		if !trimmedSecret(cfg.PrivateKey) {
			return nil, errors.New("hs256 requires a signing secret")
		}
		method = jwt.SigningMethodHS256
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
		method = jwt.SigningMethodEdDSA
	default:
		return nil, fmt.Errorf("unknown signing method %q", cfg.SigningMethod)
	}

	return &Codec{config: cfg, method: method}, nil
}

// MintAccess issues an access token bound to a session. The tenant and role
// ride in the claims so resource services can authorize without a lookup.
func (c *Codec) MintAccess(subjectID, tenantID, role, sessionID string) (string, error) {
	return c.mint(Claims{
		SubjectID: subjectID,
		TenantID:  tenantID,
		Role:      role,
		SessionID: sessionID,
		TokenType: TypeAccess,
	}, c.config.AccessTTL)
}

// MintRefresh issues a single-use refresh token bound to a session. Refresh
// tokens deliberately omit tenant and role: they grant nothing by themselves.
func (c *Codec) MintRefresh(subjectID, sessionID string) (string, error) {
	return c.mint(Claims{
		SubjectID: subjectID,
		SessionID: sessionID,
		TokenType: TypeRefresh,
	}, c.config.RefreshTTL)
}

func (c *Codec) mint(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.SubjectID,
		Issuer:    c.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	tok := jwt.NewWithClaims(c.method, claims)

	signKey, err := c.signKey()
	if err != nil {
		return "", err
	}
	return tok.SignedString(signKey)
}

// Decode verifies the signature and algorithm of a compact token string and
// returns its claims. Expiry, type, and subject checks are the Validator's
// job, so Decode succeeds on an expired token with a valid signature.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("%w: got %q, pinned %q", ErrUnsupportedAlgorithm, t.Method.Alg(), c.method.Alg())
		}
		return c.verifyKey()
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedAlgorithm):
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok {
		return nil, ErrMalformed
	}
	if claims.ID == "" || claims.SessionID == "" || claims.SubjectID == "" {
		return nil, fmt.Errorf("%w: missing required claims", ErrMalformed)
	}
	if claims.TokenType != TypeAccess && claims.TokenType != TypeRefresh {
		return nil, fmt.Errorf("%w: unknown token type %q", ErrMalformed, claims.TokenType)
	}

	return claims, nil
}

func (c *Codec) signKey() (interface{}, error) {
	if c.config.SigningMethod == MethodHS256 {
		return c.config.PrivateKey, nil
	}
	return parseEdPrivateKey(c.config.PrivateKey)
}

func (c *Codec) verifyKey() (interface{}, error) {
	if c.config.SigningMethod == MethodHS256 {
		return c.config.PrivateKey, nil
	}
	return parseEdPublicKey(c.config.PublicKey)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}

// trimmedSecret guards against accidentally configured whitespace secrets.
func trimmedSecret(secret []byte) bool {
	return len(strings.TrimSpace(string(secret))) > 0
}
