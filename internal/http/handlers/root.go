package handlers

import (
	"net/http"
	"net/url"

	"github.com/dropDatabas3/ssogate/internal/app"
	"github.com/dropDatabas3/ssogate/internal/http/helpers"
)

// NewRootHandler es el front door. Con sesión va directo al dashboard; los
// params invitation/organization (links de invitación del provider) se
// preservan hacia el login para que el flujo los reenvíe en el authorize.
// Un error de flujo previo se muestra como JSON en vez de re-disparar login,
// para no entrar en loop de redirects.
func NewRootHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if code := q.Get("error"); code != "" {
			helpers.WriteJSON(w, http.StatusOK, map[string]any{
				"error":   code,
				"message": "authentication failed, retry from /api/auth/login",
			})
			return
		}

		if _, err := c.Sessions.Read(r); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}

		login := "/api/auth/login"
		if inv, org := q.Get("invitation"), q.Get("organization"); inv != "" || org != "" {
			v := url.Values{}
			if inv != "" {
				v.Set("invitation", inv)
			}
			if org != "" {
				v.Set("organization", org)
			}
			login += "?" + v.Encode()
		}
		http.Redirect(w, r, login, http.StatusSeeOther)
	}
}
