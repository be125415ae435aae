package handlers

import (
	"net/http"

	"github.com/dropDatabas3/ssogate/internal/app"
	"github.com/dropDatabas3/ssogate/internal/http/helpers"
)

// NewHealthzHandler responde liveness: el proceso está arriba.
func NewHealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// NewReadyzHandler responde readiness: configuración cargada y dependencias
// construidas. No hace round-trips al provider; un provider caído se reporta
// por request (y métricas), no tumbando el pod.
func NewReadyzHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c.Cfg == nil || c.IdP == nil || c.Sessions == nil {
			helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		helpers.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ready",
			"env":    c.Cfg.App.Env,
		})
	}
}
