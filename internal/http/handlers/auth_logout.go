package handlers

import (
	"net/http"

	"github.com/dropDatabas3/ssogate/internal/app"
	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/http/helpers"
)

// NewAuthLogoutHandler destruye la sesión local y deriva al logout del
// provider (que cierra la sesión SSO upstream y vuelve al BaseURL).
//
//   - GET: redirect 303 directo a la URL de logout del provider.
//   - POST: responde {logoutUrl} para que el cliente navegue él mismo.
func NewAuthLogoutHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.Sessions.Clear(w)
		logoutURL := c.IdP.LogoutURL(c.Cfg.Server.BaseURL)

		switch r.Method {
		case http.MethodGet:
			http.Redirect(w, r, logoutURL, http.StatusSeeOther)
		case http.MethodPost:
			helpers.WriteJSON(w, http.StatusOK, map[string]string{"logoutUrl": logoutURL})
		default:
			httperrors.WriteError(w, httperrors.New(http.StatusMethodNotAllowed, "method_not_allowed", "GET o POST"))
		}
	}
}
