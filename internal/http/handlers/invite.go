package handlers

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/ssogate/internal/app"
	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/http/helpers"
	"github.com/dropDatabas3/ssogate/internal/metrics"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
)

type inviteRequest struct {
	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
}

// NewInviteHandler crea una invitación de organización vía management API.
// Dos chequeos independientes antes de tocar el provider: que el que invita
// sea miembro de la org, y que su rol alcance (user o admin; viewer no
// invita).
func NewInviteHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := requireSession(w, r, c)
		if sess == nil {
			return
		}

		var req inviteRequest
		if !helpers.ReadJSON(w, r, &req) {
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		req.OrganizationID = strings.TrimSpace(req.OrganizationID)
		if req.Email == "" || req.OrganizationID == "" {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("email and organizationId are required"))
			return
		}

		member, err := c.Orgs.VerifyMembership(ctx, sess.User.Sub, req.OrganizationID)
		if err != nil {
			logger.From(ctx).Error("membership check failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrUpstream.WithCause(err))
			return
		}
		if !member {
			httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("not a member of this organization"))
			return
		}
		if !c.Roles.CanInviteUsers(sess.User.Sub, req.OrganizationID) {
			httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("insufficient role to invite users"))
			return
		}

		inviter := sess.User.Name
		if inviter == "" {
			inviter = sess.User.Email
		}
		if err := c.Mgmt.InviteMember(ctx, req.OrganizationID, inviter, req.Email); err != nil {
			logger.From(ctx).Error("creating invitation failed",
				logger.OrgID(req.OrganizationID), logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrUpstream.WithDetail("could not create invitation"))
			return
		}

		metrics.InvitationsSent.Inc()
		logger.From(ctx).Info("invitation sent",
			logger.UserID(sess.User.Sub),
			logger.OrgID(req.OrganizationID),
			logger.Email(req.Email))
		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "invitation sent to " + req.Email,
		})
	}
}
