// Package router arma el árbol de rutas del gateway sobre chi, con la
// cadena de middlewares global y los limiters por endpoint.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/ssogate/internal/app"
	"github.com/dropDatabas3/ssogate/internal/http/handlers"
	mw "github.com/dropDatabas3/ssogate/internal/http/middlewares"
)

// New construye el router completo. El orden de la cadena global importa:
// request-id primero (para que logging lo vea), recover al final para
// capturar panics de todo lo interior.
func New(c *app.Container, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	global := []mw.Middleware{
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithSecurityHeaders(),
		mw.WithCORS(c.Cfg.Server.CORSAllowedOrigins),
		mw.WithRecover(),
	}

	noStore := mw.WithNoStore()
	loginLimited := mw.WithRateLimit(c.LoginLimiter, "login")
	inviteLimited := mw.WithRateLimit(c.InviteLimiter, "invite")

	r.Method(http.MethodGet, "/", wrap(handlers.NewRootHandler(c), global))

	r.Route("/api", func(api chi.Router) {
		api.Handle("/auth/login", wrap(handlers.NewAuthLoginHandler(c), global, noStore, loginLimited))
		api.Method(http.MethodGet, "/auth/callback", wrap(handlers.NewAuthCallbackHandler(c), global, noStore))
		api.Handle("/auth/logout", wrap(handlers.NewAuthLogoutHandler(c), global, noStore))

		api.Method(http.MethodPost, "/select-organization", wrap(handlers.NewSelectOrganizationHandler(c), global, noStore))
		api.Method(http.MethodPost, "/invite", wrap(handlers.NewInviteHandler(c), global, noStore, inviteLimited))
		api.Method(http.MethodPost, "/users", wrap(handlers.NewCreateUserHandler(c), global, noStore))

		api.Method(http.MethodGet, "/dashboard", wrap(handlers.NewDashboardHandler(c), global, noStore))
		api.Method(http.MethodGet, "/admin", wrap(handlers.NewAdminHandler(c), global, noStore))
	})

	// Alias navegable del dashboard (destino default de returnTo).
	r.Method(http.MethodGet, "/dashboard", wrap(handlers.NewDashboardHandler(c), global, noStore))

	r.Method(http.MethodGet, "/apps/{app}", wrap(handlers.NewInternalAppHandler(c), global))

	r.Get("/healthz", handlers.NewHealthzHandler())
	r.Get("/readyz", handlers.NewReadyzHandler(c))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}

func wrap(h http.HandlerFunc, global []mw.Middleware, extra ...mw.Middleware) http.Handler {
	return mw.ChainFunc(h, append(append([]mw.Middleware{}, global...), extra...)...)
}
