// Package session es dueño del ciclo de vida de la sesión autenticada.
//
// La sesión viaja como credencial firmada (JWT HS256) en una cookie HttpOnly.
// Nunca se confía en una credencial sin verificar: firma inválida, claims
// ilegibles o expiración vencida se tratan igual que "no hay sesión".
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoSession indica que el request no trae credencial de sesión.
	ErrNoSession = errors.New("session: no session")
	// ErrInvalid indica credencial presente pero inverificable o expirada.
	ErrInvalid = errors.New("session: invalid or expired")
)

// User es el usuario autenticado dentro de la sesión.
// Sub es inmutable; OrgID/OrgName sólo cambian via Manager.Update después de
// verificar membresía server-side.
type User struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	OrgID   string `json:"org_id,omitempty"`
	OrgName string `json:"org_name,omitempty"`
}

// Session es el estado autenticado completo.
type Session struct {
	User        User      `json:"user"`
	AccessToken string    `json:"access_token"`
	IDToken     string    `json:"id_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type sessionClaims struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	jwt.RegisteredClaims
}

// Options configura el Manager (viene de config).
type Options struct {
	CookieName string
	Domain     string
	SameSite   string
	Secure     bool
	TTL        time.Duration
	Secret     []byte
}

// Manager crea, lee, actualiza y destruye sesiones.
type Manager struct {
	opts Options
	now  func() time.Time
}

func NewManager(opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "ssogate_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Manager{opts: opts, now: time.Now}
}

// Write firma la sesión y setea la cookie. Si ExpiresAt está en cero, se
// asigna now+TTL. Es también el único camino de mutación (Update == Write
// con la sesión completa): reemplaza la credencial entera, atómico para
// cualquier lectura posterior del mismo request.
func (m *Manager) Write(w http.ResponseWriter, s *Session) error {
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = m.now().Add(m.opts.TTL)
	}
	claims := sessionClaims{
		User:        s.User,
		AccessToken: s.AccessToken,
		IDToken:     s.IDToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(m.now()),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.opts.Secret)
	if err != nil {
		return err
	}
	ttl := s.ExpiresAt.Sub(m.now())
	http.SetCookie(w, m.buildCookie(signed, ttl))
	return nil
}

// Update reescribe la sesión completa. Alias semántico de Write.
func (m *Manager) Update(w http.ResponseWriter, s *Session) error {
	return m.Write(w, s)
}

// Read verifica la credencial del request y devuelve la sesión.
// Errores: ErrNoSession (sin cookie) o ErrInvalid (firma/claims/expiración).
func (m *Manager) Read(r *http.Request) (*Session, error) {
	ck, err := r.Cookie(m.opts.CookieName)
	if err != nil || ck.Value == "" {
		return nil, ErrNoSession
	}
	var claims sessionClaims
	tok, err := jwt.ParseWithClaims(ck.Value, &claims,
		func(t *jwt.Token) (any, error) { return m.opts.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalid
	}
	exp := claims.ExpiresAt
	if exp == nil || !m.now().Before(exp.Time) {
		return nil, ErrInvalid
	}
	return &Session{
		User:        claims.User,
		AccessToken: claims.AccessToken,
		IDToken:     claims.IDToken,
		ExpiresAt:   exp.Time,
	}, nil
}

// Clear destruye la sesión sobreescribiendo la cookie con expiración pasada.
func (m *Manager) Clear(w http.ResponseWriter) {
	ck := m.buildCookie("", 0)
	ck.Expires = time.Unix(0, 0).UTC()
	ck.MaxAge = -1
	http.SetCookie(w, ck)
}

func (m *Manager) buildCookie(value string, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: parseSameSite(m.opts.SameSite),
	}
	if m.opts.Domain != "" {
		ck.Domain = m.opts.Domain
	}
	if ttl > 0 {
		ck.Expires = m.now().Add(ttl).UTC()
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

func parseSameSite(s string) http.SameSite {
	switch s {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
