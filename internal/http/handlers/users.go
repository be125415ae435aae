package handlers

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/ssogate/internal/app"
	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/http/helpers"
	"github.com/dropDatabas3/ssogate/internal/mgmt"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
)

type createUserRequest struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Password       string `json:"password,omitempty"`
	OrganizationID string `json:"organizationId"`
}

// NewCreateUserHandler da de alta un usuario en el provider y lo agrega a la
// organización indicada. Sólo admins de esa organización; sin password el
// provider manda un ticket de seteo inicial.
func NewCreateUserHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := requireSession(w, r, c)
		if sess == nil {
			return
		}

		var req createUserRequest
		if !helpers.ReadJSON(w, r, &req) {
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		req.Name = strings.TrimSpace(req.Name)
		req.OrganizationID = strings.TrimSpace(req.OrganizationID)
		if req.Email == "" || req.Name == "" || req.OrganizationID == "" {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("email, name and organizationId are required"))
			return
		}

		if !c.Roles.IsAdmin(sess.User.Sub, req.OrganizationID) {
			httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("admin role required"))
			return
		}

		userID, err := c.Mgmt.CreateUser(ctx, mgmt.CreateUserParams{
			Email:                 req.Email,
			Name:                  req.Name,
			Password:              req.Password,
			OrganizationID:        req.OrganizationID,
			SendVerificationEmail: true,
		})
		if err != nil {
			logger.From(ctx).Error("creating user failed",
				logger.OrgID(req.OrganizationID), logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrUpstream.WithDetail("could not create user"))
			return
		}

		logger.From(ctx).Info("user created",
			logger.UserID(userID),
			logger.OrgID(req.OrganizationID),
			logger.Email(req.Email))
		helpers.WriteJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"userId":  userID,
		})
	}
}
