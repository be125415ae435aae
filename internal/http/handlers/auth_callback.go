package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/ssogate/internal/app"
	"github.com/dropDatabas3/ssogate/internal/idp"
	"github.com/dropDatabas3/ssogate/internal/metrics"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
	"github.com/dropDatabas3/ssogate/internal/session"
)

// Códigos de error del flujo. Viajan como query param en el redirect de
// falla; el detalle upstream queda sólo en logs.
const (
	errInvalidState         = "invalid_state"
	errMissingParameters    = "missing_parameters"
	errTokenExchangeFailed  = "token_exchange_failed"
	errUserInfoFailed       = "userinfo_failed"
	errAuthenticationFailed = "authentication_failed"
)

// NewAuthCallbackHandler procesa el retorno del provider: valida state
// (anti-CSRF), canjea el code con el verifier, trae userinfo y establece la
// sesión. Cualquier falla aborta el intento completo y limpia el estado
// transitorio; nunca se avanza al canje con un state inválido.
func NewAuthCallbackHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.From(ctx)
		q := r.URL.Query()

		fail := func(code string) {
			clearFlowCookies(w, c)
			metrics.LoginFailed.WithLabelValues(code).Inc()
			http.Redirect(w, r, "/?error="+url.QueryEscape(code), http.StatusSeeOther)
		}

		// Error devuelto por el propio provider (ej: access_denied).
		if provErr := q.Get("error"); provErr != "" {
			log.Warn("provider returned error",
				logger.ErrorCode(provErr),
				logger.String("description", q.Get("error_description")))
			fail(provErr)
			return
		}

		// Validación de state: mismatch o ausencia se trata como posible
		// CSRF. Abortamos acá, antes de tocar el endpoint de token.
		state := q.Get("state")
		storedState := cookieValue(r, cookieState)
		if state == "" || storedState == "" || state != storedState {
			log.Warn("state mismatch on callback", logger.ErrorCode(errInvalidState))
			fail(errInvalidState)
			return
		}

		code := q.Get("code")
		verifier := cookieValue(r, cookieCodeVerifier)
		if code == "" || verifier == "" {
			fail(errMissingParameters)
			return
		}

		start := time.Now()
		tokens, err := c.IdP.ExchangeCode(ctx, code, verifier)
		metrics.TokenExchangeLatency.Observe(float64(time.Since(start).Milliseconds()))
		if err != nil {
			logExchangeFailure(log, err)
			fail(errTokenExchangeFailed)
			return
		}

		ui, err := c.IdP.FetchUserInfo(ctx, tokens.AccessToken)
		if err != nil {
			logUserInfoFailure(log, err)
			fail(errUserInfoFailed)
			return
		}

		sess := &session.Session{
			User: session.User{
				Sub:     ui.Sub,
				Email:   ui.Email,
				Name:    ui.Name,
				Picture: ui.Picture,
				// org_id/org_name pueden venir ya en el token si el login
				// entró por una organización del provider.
				OrgID:   ui.OrgID,
				OrgName: ui.OrgName,
			},
			AccessToken: tokens.AccessToken,
			IDToken:     tokens.IDToken,
			ExpiresAt:   tokens.ExpiresAt,
		}
		if err := c.Sessions.Write(w, sess); err != nil {
			log.Error("writing session failed", logger.Err(err))
			fail(errAuthenticationFailed)
			return
		}

		returnTo := safeReturnTo(cookieValue(r, cookieReturnTo))
		clearFlowCookies(w, c)
		metrics.LoginCompleted.Inc()
		log.Info("login completed",
			logger.UserID(ui.Sub),
			logger.OrgID(ui.OrgID),
			logger.ReturnTo(returnTo))
		http.Redirect(w, r, returnTo, http.StatusSeeOther)
	}
}

func cookieValue(r *http.Request, name string) string {
	if ck, err := r.Cookie(name); err == nil {
		return ck.Value
	}
	return ""
}

// Las fallas upstream se loguean con el body crudo; al usuario sólo le llega
// el código opaco.
func logExchangeFailure(log *zap.Logger, err error) {
	var te *idp.TokenExchangeError
	if errors.As(err, &te) {
		log.Error("token exchange failed",
			logger.Int("status", te.StatusCode),
			logger.String("upstream_body", te.Body))
		return
	}
	log.Error("token exchange failed", logger.Err(err))
}

func logUserInfoFailure(log *zap.Logger, err error) {
	var ue *idp.UserInfoError
	if errors.As(err, &ue) {
		log.Error("userinfo failed",
			logger.Int("status", ue.StatusCode),
			logger.String("upstream_body", ue.Body))
		return
	}
	log.Error("userinfo failed", logger.Err(err))
}
