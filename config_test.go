package authkit

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig must validate, got %v", err)
	}
}

func TestConfigValidateRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero access ttl", func(c *Config) { c.Token.AccessTTL = 0 }},
		{"refresh shorter than access", func(c *Config) { c.Token.RefreshTTL = c.Token.AccessTTL / 2 }},
		{"negative leeway", func(c *Config) { c.Token.Leeway = -time.Second }},
		{"oversized leeway", func(c *Config) { c.Token.Leeway = 5 * time.Minute }},
		{"zero session lifetime", func(c *Config) { c.Session.AbsoluteLifetime = 0 }},
		{"negative session cap", func(c *Config) { c.Session.MaxSessionsPerSubject = -1 }},
		{"oversized validate timeout", func(c *Config) { c.Timeouts.Validate = time.Second }},
		{"zero validate timeout", func(c *Config) { c.Timeouts.Validate = 0 }},
		{"oversized refresh timeout", func(c *Config) { c.Timeouts.Refresh = 2 * time.Second }},
		{"zero logout timeout", func(c *Config) { c.Timeouts.Logout = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestCloneConfigDetachesKeyMaterial(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.PrivateKey = []byte("secret")

	clone := cloneConfig(cfg)
	clone.Token.PrivateKey[0] = 'X'

	if cfg.Token.PrivateKey[0] != 's' {
		t.Fatal("clone must not alias the original key bytes")
	}
}
