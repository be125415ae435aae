package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/ssogate/internal/app"
	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/http/helpers"
)

// NewInternalAppHandler representa una internal app detrás del gateway. Sin
// sesión redirige al login con returnTo de vuelta a la app marcada sso=true,
// así la app sabe que el usuario entró por el flujo SSO y no por navegación
// directa.
func NewInternalAppHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "app")
		if !knownApp(c, name) {
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("unknown app"))
			return
		}

		sess, err := c.Sessions.Read(r)
		if err != nil {
			returnTo := "/apps/" + name + "?sso=true"
			http.Redirect(w, r, "/api/auth/login?returnTo="+url.QueryEscape(returnTo), http.StatusSeeOther)
			return
		}

		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"app":      name,
			"user":     sess.User,
			"ssoLogin": r.URL.Query().Get("sso") == "true",
		})
	}
}

func knownApp(c *app.Container, name string) bool {
	for _, a := range c.Cfg.Apps {
		if a == name {
			return true
		}
	}
	return false
}
