package handlers

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/ssogate/internal/app"
	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/session"
)

// requireSession lee y verifica la sesión del request. Sin sesión válida
// escribe 401 (unauthorized) y devuelve nil; una credencial expirada o
// inverificable se destruye proactivamente además.
func requireSession(w http.ResponseWriter, r *http.Request, c *app.Container) *session.Session {
	sess, err := c.Sessions.Read(r)
	if err != nil {
		if errors.Is(err, session.ErrInvalid) {
			c.Sessions.Clear(w)
		}
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return nil
	}
	return sess
}
