package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
provider:
  domain: "tenant.example.com"
  client_id: "cid"
session:
  secret: "s3cret"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Env != "dev" {
		t.Fatalf("env = %q", cfg.App.Env)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Session.CookieName != "ssogate_session" {
		t.Fatalf("cookie = %q", cfg.Session.CookieName)
	}
	if got := cfg.SessionTTL(); got != 24*time.Hour {
		t.Fatalf("ttl = %v", got)
	}
	if got := cfg.FlowCookieTTL(); got != 10*time.Minute {
		t.Fatalf("flow ttl = %v", got)
	}
	// callback derivado del base_url
	if cfg.Provider.CallbackURL != "http://localhost:8080/api/auth/callback" {
		t.Fatalf("callback = %q", cfg.Provider.CallbackURL)
	}
	if cfg.Cache.Kind != "memory" {
		t.Fatalf("cache = %q", cfg.Cache.Kind)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing domain", "provider:\n  client_id: cid\nsession:\n  secret: s\n"},
		{"missing client_id", "provider:\n  domain: d.com\nsession:\n  secret: s\n"},
		{"missing secret", "provider:\n  domain: d.com\n  client_id: cid\n"},
		{"bad ttl", minimalYAML + "  ttl: \"soon\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PROVIDER_CLIENT_SECRET", "from-env")
	t.Setenv("SESSION_SECRET", "env-secret")
	t.Setenv("PROVIDER_CONNECTIONS", "corp.example.com=corp-saml;other.com=google-oauth2")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProd() {
		t.Fatal("APP_ENV override ignored")
	}
	if cfg.Provider.ClientSecret != "from-env" {
		t.Fatalf("client secret = %q", cfg.Provider.ClientSecret)
	}
	if cfg.Session.Secret != "env-secret" {
		t.Fatalf("session secret = %q", cfg.Session.Secret)
	}
	if got := cfg.ConnectionForEmail("ana@corp.example.com"); got != "corp-saml" {
		t.Fatalf("connection = %q", got)
	}
	// prod fuerza Secure aunque el YAML no lo pida
	if !cfg.SessionSecure() {
		t.Fatal("prod must force secure cookies")
	}
}

func TestConnectionForEmail(t *testing.T) {
	cfg := &Config{}
	cfg.Provider.Connections = map[string]string{"corp.example.com": "corp-saml"}

	if got := cfg.ConnectionForEmail("Ana@CORP.example.COM"); got != "corp-saml" {
		t.Fatalf("case-insensitive domain lookup failed: %q", got)
	}
	if got := cfg.ConnectionForEmail("ana@elsewhere.com"); got != "" {
		t.Fatalf("unknown domain = %q, want empty", got)
	}
	if got := cfg.ConnectionForEmail("not-an-email"); got != "" {
		t.Fatalf("malformed email = %q, want empty", got)
	}
}
