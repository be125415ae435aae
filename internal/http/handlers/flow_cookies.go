package handlers

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/ssogate/internal/app"
	"github.com/dropDatabas3/ssogate/internal/http/helpers"
	"github.com/dropDatabas3/ssogate/internal/security/pkce"
)

// Cookies transitorias de un intento de login. SameSite=Lax siempre: el
// callback llega por navegación top-level desde el provider y Lax las deja
// pasar; Strict las perdería.
const (
	cookieState        = "auth_state"
	cookieCodeVerifier = "auth_code_verifier"
	cookieReturnTo     = "auth_return_to"

	defaultReturnTo = "/dashboard"
)

func setFlowCookies(w http.ResponseWriter, c *app.Container, f *pkce.Flow) {
	secure := c.Cfg.SessionSecure()
	ttl := c.Cfg.FlowCookieTTL()
	http.SetCookie(w, helpers.BuildCookie(cookieState, f.State, "", "lax", secure, ttl))
	http.SetCookie(w, helpers.BuildCookie(cookieCodeVerifier, f.CodeVerifier, "", "lax", secure, ttl))
	http.SetCookie(w, helpers.BuildCookie(cookieReturnTo, f.ReturnTo, "", "lax", secure, ttl))
}

func clearFlowCookies(w http.ResponseWriter, c *app.Container) {
	secure := c.Cfg.SessionSecure()
	http.SetCookie(w, helpers.BuildDeletionCookie(cookieState, "", "lax", secure))
	http.SetCookie(w, helpers.BuildDeletionCookie(cookieCodeVerifier, "", "lax", secure))
	http.SetCookie(w, helpers.BuildDeletionCookie(cookieReturnTo, "", "lax", secure))
}

// safeReturnTo sólo acepta paths relativos al propio sitio; cualquier otra
// cosa (URLs absolutas, protocol-relative "//") cae al default.
func safeReturnTo(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultReturnTo
	}
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.Contains(s, "\\") {
		return defaultReturnTo
	}
	return s
}
