package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda "dev".
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL pública del servicio (para returnTo de logout).
		BaseURL            string   `yaml:"base_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	// Provider es el identity provider externo (authorize/token/userinfo
	// + management API). Sólo conocemos su contrato HTTP.
	Provider struct {
		Domain       string `yaml:"domain"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		CallbackURL  string `yaml:"callback_url"`
		Audience     string `yaml:"audience"`

		Management struct {
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
		} `yaml:"management"`

		// Connections mapea dominio de email -> connection del IdP.
		// Si un dominio no está, el IdP resuelve por home-realm discovery.
		Connections map[string]string `yaml:"connections"`
		// Organizations mapea dominio de email -> organization hint.
		Organizations map[string]string `yaml:"organizations"`
	} `yaml:"provider"`

	Session struct {
		CookieName string `yaml:"cookie_name"`
		Domain     string `yaml:"domain"`
		SameSite   string `yaml:"samesite"`
		Secure     bool   `yaml:"secure"`
		TTL        string `yaml:"ttl"`
		Secret     string `yaml:"secret"`
	} `yaml:"session"`

	// Flow controla las cookies transitorias del login (state/verifier/return_to).
	Flow struct {
		CookieTTL string `yaml:"cookie_ttl"`
	} `yaml:"flow"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Rate struct {
		Enabled bool `yaml:"enabled"`

		Login struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`

		Invite struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"invite"`
	} `yaml:"rate"`

	// RBAC.Seed son asignaciones (user, org) -> rol cargadas al arranque.
	// El store vive en memoria; en producción esto iría a una DB.
	RBAC struct {
		Seed []RoleSeed `yaml:"seed"`
	} `yaml:"rbac"`

	// Apps son los slugs de las internal apps servidas detrás del SSO.
	Apps []string `yaml:"apps"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

type RoleSeed struct {
	UserID string `yaml:"user_id"`
	OrgID  string `yaml:"org_id"`
	Role   string `yaml:"role"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "ssogate_session"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "lax"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "24h"
	}
	if c.Flow.CookieTTL == "" {
		c.Flow.CookieTTL = "10m"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Invite.Limit == 0 {
		c.Rate.Invite.Limit = 20
	}
	if c.Rate.Invite.Window == "" {
		c.Rate.Invite.Window = "10m"
	}
	if c.Provider.CallbackURL == "" {
		c.Provider.CallbackURL = strings.TrimRight(c.Server.BaseURL, "/") + "/api/auth/callback"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate chequea lo crítico para poder levantar el servicio.
func (c *Config) Validate() error {
	if c.Provider.Domain == "" {
		return fmt.Errorf("provider.domain es requerido")
	}
	if c.Provider.ClientID == "" {
		return fmt.Errorf("provider.client_id es requerido")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret es requerido (openssl rand -base64 32)")
	}
	if _, err := time.ParseDuration(c.Session.TTL); err != nil {
		return fmt.Errorf("session.ttl inválido: %w", err)
	}
	if _, err := time.ParseDuration(c.Flow.CookieTTL); err != nil {
		return fmt.Errorf("flow.cookie_ttl inválido: %w", err)
	}
	return nil
}

func (c *Config) IsProd() bool {
	return strings.EqualFold(c.App.Env, "prod")
}

// SessionTTL ya validado en Load.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Session.TTL)
	return d
}

func (c *Config) FlowCookieTTL() time.Duration {
	d, _ := time.ParseDuration(c.Flow.CookieTTL)
	return d
}

// SessionSecure fuerza Secure fuera de dev aunque el YAML diga false.
func (c *Config) SessionSecure() bool {
	return c.Session.Secure || c.IsProd()
}

// ConnectionForEmail devuelve la connection del IdP para el dominio del email,
// o "" para dejar que el provider haga home-realm discovery.
func (c *Config) ConnectionForEmail(email string) string {
	return c.Provider.Connections[emailDomain(email)]
}

// OrganizationForEmail devuelve el organization hint para el dominio, o "".
func (c *Config) OrganizationForEmail(email string) string {
	return c.Provider.Organizations[emailDomain(email)]
}

func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 && i < len(email)-1 {
		return strings.ToLower(email[i+1:])
	}
	return ""
}

func getEnvStr(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && strings.TrimSpace(v) != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// parse env of form "k1=v1<sep>k2=v2" into map
func parseKVList(s, sep string) map[string]string {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]string{}
	}
	items := strings.Split(s, sep)
	out := make(map[string]string, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if i := strings.IndexRune(it, '='); i > 0 {
			k := strings.TrimSpace(it[:i])
			v := strings.TrimSpace(it[i+1:])
			if k != "" && v != "" {
				out[strings.ToLower(k)] = v
			}
		}
	}
	return out
}

func getEnvKVList(key, sep string) (map[string]string, bool) {
	if s, ok := getEnvStr(key); ok {
		return parseKVList(s, sep), true
	}
	return nil, false
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}

	// Provider
	if v, ok := getEnvStr("PROVIDER_DOMAIN"); ok {
		c.Provider.Domain = v
	}
	if v, ok := getEnvStr("PROVIDER_CLIENT_ID"); ok {
		c.Provider.ClientID = v
	}
	if v, ok := getEnvStr("PROVIDER_CLIENT_SECRET"); ok {
		c.Provider.ClientSecret = v
	}
	if v, ok := getEnvStr("PROVIDER_CALLBACK_URL"); ok {
		c.Provider.CallbackURL = v
	}
	if v, ok := getEnvStr("PROVIDER_AUDIENCE"); ok {
		c.Provider.Audience = v
	}
	if v, ok := getEnvStr("PROVIDER_MGMT_CLIENT_ID"); ok {
		c.Provider.Management.ClientID = v
	}
	if v, ok := getEnvStr("PROVIDER_MGMT_CLIENT_SECRET"); ok {
		c.Provider.Management.ClientSecret = v
	}
	// PROVIDER_CONNECTIONS="company1.com=google-oauth2;company2.com=microsoft"
	if m, ok := getEnvKVList("PROVIDER_CONNECTIONS", ";"); ok {
		if c.Provider.Connections == nil {
			c.Provider.Connections = map[string]string{}
		}
		for k, v := range m {
			c.Provider.Connections[k] = v
		}
	}
	if m, ok := getEnvKVList("PROVIDER_ORGANIZATIONS", ";"); ok {
		if c.Provider.Organizations == nil {
			c.Provider.Organizations = map[string]string{}
		}
		for k, v := range m {
			c.Provider.Organizations[k] = v
		}
	}

	// Session
	if v, ok := getEnvStr("SESSION_COOKIE_NAME"); ok {
		c.Session.CookieName = v
	}
	if v, ok := getEnvStr("SESSION_COOKIE_DOMAIN"); ok {
		c.Session.Domain = v
	}
	if v, ok := getEnvStr("SESSION_SAMESITE"); ok {
		c.Session.SameSite = strings.ToLower(v)
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}
	if v, ok := getEnvStr("SESSION_TTL"); ok {
		c.Session.TTL = v
	}
	if v, ok := getEnvStr("SESSION_SECRET"); ok {
		c.Session.Secret = v
	}

	// Cache / rate
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}

	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}
