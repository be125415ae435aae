// Package orgs resuelve el contexto organizacional de una sesión: org ya
// seleccionada, auto-selección con candidata única, selección explícita
// pendiente, o usuario sin organizaciones.
package orgs

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/ssogate/internal/mgmt"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
	"github.com/dropDatabas3/ssogate/internal/session"
)

var (
	// ErrNotMember: el usuario no pertenece a la organización pedida.
	ErrNotMember = errors.New("orgs: user is not a member of organization")
	// ErrNotFound: la organización no existe en el provider.
	ErrNotFound = errors.New("orgs: organization not found")
)

// Directory es lo que necesitamos de la management API.
type Directory interface {
	ListUserOrganizations(ctx context.Context, userID string) ([]mgmt.Organization, error)
	GetOrganization(ctx context.Context, orgID string) (*mgmt.Organization, error)
	ListOrganizationMembers(ctx context.Context, orgID string) ([]mgmt.Member, error)
}

// State es el resultado de la resolución.
type State int

const (
	// StateResolved: la sesión ya traía org_id.
	StateResolved State = iota
	// StateAutoSelected: candidata única, seleccionada sin interacción.
	StateAutoSelected
	// StateSelectionRequired: múltiples candidatas, el caller debe presentar
	// la selección y no adivinar.
	StateSelectionRequired
	// StateNone: cero organizaciones; features org-scoped no disponibles.
	StateNone
)

// Resolution es el contexto resuelto (o pendiente) para una sesión.
type Resolution struct {
	State        State
	Organization *mgmt.Organization
	Candidates   []mgmt.Organization
}

type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve decide el contexto de organización para la sesión. En
// StateAutoSelected muta sess.User in-place; persistir la sesión queda a
// cargo del caller (única vía: session.Manager.Update).
func (r *Resolver) Resolve(ctx context.Context, sess *session.Session) (Resolution, error) {
	if sess.User.OrgID != "" {
		return Resolution{State: StateResolved}, nil
	}

	candidates, err := r.dir.ListUserOrganizations(ctx, sess.User.Sub)
	if err != nil {
		return Resolution{}, err
	}
	return r.Decide(sess, candidates), nil
}

// Decide es la parte pura de Resolve: dada la lista de organizaciones que
// reporta el provider, decide el estado del contexto. En auto-selección muta
// sess.User in-place.
func (r *Resolver) Decide(sess *session.Session, candidates []mgmt.Organization) Resolution {
	if sess.User.OrgID != "" {
		return Resolution{State: StateResolved}
	}
	switch len(candidates) {
	case 0:
		return Resolution{State: StateNone}
	case 1:
		org := candidates[0]
		sess.User.OrgID = org.ID
		sess.User.OrgName = displayName(&org)
		return Resolution{State: StateAutoSelected, Organization: &org}
	default:
		return Resolution{State: StateSelectionRequired, Candidates: candidates}
	}
}

// Select aplica una selección explícita del usuario. El orgID viene del
// cliente y es una intención, no un hecho: la membresía se re-verifica
// server-side antes de tocar la sesión.
func (r *Resolver) Select(ctx context.Context, sess *session.Session, orgID string) (*mgmt.Organization, error) {
	member, err := r.VerifyMembership(ctx, sess.User.Sub, orgID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotMember
	}

	org, err := r.dir.GetOrganization(ctx, orgID)
	if err != nil {
		var apiErr *mgmt.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sess.User.OrgID = org.ID
	sess.User.OrgName = displayName(org)
	return org, nil
}

// VerifyMembership chequea contra el provider si el usuario pertenece a la
// organización.
func (r *Resolver) VerifyMembership(ctx context.Context, userID, orgID string) (bool, error) {
	orgs, err := r.dir.ListUserOrganizations(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, o := range orgs {
		if o.ID == orgID {
			return true, nil
		}
	}
	return false, nil
}

// OrganizationWithMembers enriquece una organización con su member count.
type OrganizationWithMembers struct {
	mgmt.Organization
	MemberCount int `json:"memberCount"`
}

// WithMemberCounts trae el member count de cada organización en paralelo.
// Son lecturas independientes: el orden entre ellas no es observable, y una
// falla individual degrada a 0 con log (no tumba la página).
func (r *Resolver) WithMemberCounts(ctx context.Context, organizations []mgmt.Organization) []OrganizationWithMembers {
	out := make([]OrganizationWithMembers, len(organizations))
	g, gctx := errgroup.WithContext(ctx)
	for i, org := range organizations {
		i, org := i, org
		g.Go(func() error {
			members, err := r.dir.ListOrganizationMembers(gctx, org.ID)
			if err != nil {
				logger.From(ctx).Warn("listing organization members failed",
					logger.OrgID(org.ID), logger.Err(err))
				members = nil
			}
			out[i] = OrganizationWithMembers{Organization: org, MemberCount: len(members)}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func displayName(org *mgmt.Organization) string {
	if org.DisplayName != "" {
		return org.DisplayName
	}
	return org.Name
}
