package handlers

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/ssogate/internal/app"
	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/http/helpers"
	"github.com/dropDatabas3/ssogate/internal/idp"
	"github.com/dropDatabas3/ssogate/internal/metrics"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
	"github.com/dropDatabas3/ssogate/internal/security/pkce"
)

type loginRequest struct {
	Email    string `json:"email"`
	ReturnTo string `json:"returnTo"`
}

// NewAuthLoginHandler inicia el flujo Authorization Code + PKCE.
//
//   - GET: entrada directa desde las internal apps. Acepta returnTo, email y
//     los params invitation/organization que el front door preserva.
//     Redirige 302 al provider.
//   - POST: variante JSON para clientes browser. Responde la authorization
//     URL en vez de redirigir.
func NewAuthLoginHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			authURL, err := beginFlow(w, c, flowInput{
				Email:        strings.TrimSpace(q.Get("email")),
				ReturnTo:     q.Get("returnTo"),
				Invitation:   q.Get("invitation"),
				Organization: q.Get("organization"),
			})
			if err != nil {
				logger.From(r.Context()).Error("login init failed", logger.Err(err))
				httperrors.WriteError(w, err)
				return
			}
			http.Redirect(w, r, authURL, http.StatusFound)

		case http.MethodPost:
			var req loginRequest
			if !helpers.ReadJSON(w, r, &req) {
				return
			}
			req.Email = strings.TrimSpace(strings.ToLower(req.Email))
			if req.Email == "" {
				httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("email is required"))
				return
			}
			authURL, err := beginFlow(w, c, flowInput{Email: req.Email, ReturnTo: req.ReturnTo})
			if err != nil {
				logger.From(r.Context()).Error("login init failed", logger.Err(err))
				httperrors.WriteError(w, err)
				return
			}
			helpers.WriteJSON(w, http.StatusOK, map[string]string{"authorizationUrl": authURL})

		default:
			httperrors.WriteError(w, httperrors.New(http.StatusMethodNotAllowed, "method_not_allowed", "GET o POST"))
		}
	}
}

type flowInput struct {
	Email        string
	ReturnTo     string
	Invitation   string
	Organization string
}

// beginFlow genera los parámetros PKCE, los guarda en cookies transitorias y
// arma la authorization URL. Connection y organization son hints derivados
// del dominio del email; si faltan, el provider resuelve por home-realm
// discovery (nunca bloquean el login).
func beginFlow(w http.ResponseWriter, c *app.Container, in flowInput) (string, error) {
	flow, err := pkce.NewFlow(safeReturnTo(in.ReturnTo))
	if err != nil {
		return "", httperrors.ErrInternal.WithCause(err)
	}
	setFlowCookies(w, c, flow)

	opts := idp.AuthorizeOptions{
		Invitation:   in.Invitation,
		Organization: in.Organization,
	}
	if in.Email != "" {
		opts.LoginHint = in.Email
		opts.Connection = c.Cfg.ConnectionForEmail(in.Email)
		if opts.Organization == "" {
			opts.Organization = c.Cfg.OrganizationForEmail(in.Email)
		}
	}

	metrics.LoginStarted.Inc()
	return c.IdP.AuthorizationURL(flow, opts), nil
}
