package handlers

import (
	"net/http"

	"github.com/dropDatabas3/ssogate/internal/app"
	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/http/helpers"
	"github.com/dropDatabas3/ssogate/internal/mgmt"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
)

// NewAdminHandler es el panel de administración: requiere rol admin en al
// menos una organización del usuario. A diferencia del dashboard, acá la
// lista de organizaciones no degrada: sin ella no se puede decidir acceso, y
// adivinar sería conceder de más o de menos.
func NewAdminHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := requireSession(w, r, c)
		if sess == nil {
			return
		}

		organizations, err := c.Mgmt.ListUserOrganizations(ctx, sess.User.Sub)
		if err != nil {
			logger.From(ctx).Error("listing user organizations failed",
				logger.UserID(sess.User.Sub), logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrUpstream.WithDetail("could not verify admin access"))
			return
		}

		var adminOrgs []mgmt.Organization
		for _, org := range organizations {
			if c.Roles.IsAdmin(sess.User.Sub, org.ID) {
				adminOrgs = append(adminOrgs, org)
			}
		}
		if len(adminOrgs) == 0 {
			logger.From(ctx).Warn("admin access denied",
				logger.UserID(sess.User.Sub), logger.ErrorCode("access_denied"))
			httperrors.WriteError(w, httperrors.New(http.StatusForbidden, "access_denied", "admin role required"))
			return
		}

		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"user":               sess.User,
			"adminOrganizations": adminOrgs,
			"roles":              c.Roles.ListUserRoles(sess.User.Sub),
		})
	}
}
