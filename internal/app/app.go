package app

import (
	"context"

	"github.com/dropDatabas3/ssogate/internal/config"
	"github.com/dropDatabas3/ssogate/internal/idp"
	"github.com/dropDatabas3/ssogate/internal/mgmt"
	"github.com/dropDatabas3/ssogate/internal/orgs"
	"github.com/dropDatabas3/ssogate/internal/rate"
	"github.com/dropDatabas3/ssogate/internal/rbac"
	"github.com/dropDatabas3/ssogate/internal/session"
)

// Management es la superficie de la management API que usan los handlers.
// *mgmt.Client la implementa; los tests usan fakes.
type Management interface {
	orgs.Directory
	InviteMember(ctx context.Context, orgID, inviterName, inviteeEmail string) error
	CreateUser(ctx context.Context, p mgmt.CreateUserParams) (string, error)
	AddMember(ctx context.Context, orgID, userID string) error
	RemoveMember(ctx context.Context, orgID, userID string) error
}

// Container es el contenedor DI simple que usamos en los handlers.
// Se construye una vez en main y se pasa por referencia.
type Container struct {
	Cfg      *config.Config
	Sessions *session.Manager
	IdP      *idp.Client
	Mgmt     Management
	Roles    *rbac.Store
	Orgs     *orgs.Resolver

	// Limiters por endpoint; nil => sin rate limit.
	LoginLimiter  rate.Limiter
	InviteLimiter rate.Limiter
}
