package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/ssogate/internal/app"
	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/http/helpers"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
	"github.com/dropDatabas3/ssogate/internal/orgs"
)

type selectOrgRequest struct {
	OrganizationID string `json:"organizationId"`
}

// NewSelectOrganizationHandler fija la organización activa de la sesión. El
// id viene del cliente, así que la membresía se re-verifica server-side; un
// rechazo deja la sesión tal como estaba.
func NewSelectOrganizationHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := requireSession(w, r, c)
		if sess == nil {
			return
		}

		var req selectOrgRequest
		if !helpers.ReadJSON(w, r, &req) {
			return
		}
		req.OrganizationID = strings.TrimSpace(req.OrganizationID)
		if req.OrganizationID == "" {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("organizationId is required"))
			return
		}

		org, err := c.Orgs.Select(ctx, sess, req.OrganizationID)
		if err != nil {
			switch {
			case errors.Is(err, orgs.ErrNotMember):
				logger.From(ctx).Warn("organization selection rejected",
					logger.UserID(sess.User.Sub),
					logger.OrgID(req.OrganizationID))
				httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("not a member of this organization"))
			case errors.Is(err, orgs.ErrNotFound):
				httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("organization not found"))
			default:
				logger.From(ctx).Error("organization selection failed", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrUpstream.WithCause(err))
			}
			return
		}

		if err := c.Sessions.Update(w, sess); err != nil {
			logger.From(ctx).Error("persisting session failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternal.WithCause(err))
			return
		}

		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"organization": org,
		})
	}
}
