package handlers

import (
	"net/http"

	"github.com/dropDatabas3/ssogate/internal/app"
	"github.com/dropDatabas3/ssogate/internal/http/helpers"
	"github.com/dropDatabas3/ssogate/internal/mgmt"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
	"github.com/dropDatabas3/ssogate/internal/orgs"
)

// NewDashboardHandler arma la vista principal post-login: usuario, sus
// organizaciones con member count, y si hace falta selección explícita. La
// lista de organizaciones degrada a vacía si la management API falla; el
// dashboard siempre responde.
func NewDashboardHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := requireSession(w, r, c)
		if sess == nil {
			return
		}

		candidates, err := c.Mgmt.ListUserOrganizations(ctx, sess.User.Sub)
		if err != nil {
			logger.From(ctx).Warn("listing user organizations failed",
				logger.UserID(sess.User.Sub), logger.Err(err))
			candidates = []mgmt.Organization{}
		}

		res := c.Orgs.Decide(sess, candidates)
		if res.State == orgs.StateAutoSelected {
			// Única candidata: queda fijada en la sesión sin interacción.
			if err := c.Sessions.Update(w, sess); err != nil {
				logger.From(ctx).Error("persisting auto-selected organization failed", logger.Err(err))
			}
		}

		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"user":              sess.User,
			"organizations":     c.Orgs.WithMemberCounts(ctx, candidates),
			"selectionRequired": res.State == orgs.StateSelectionRequired,
		})
	}
}
