package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/ssogate/internal/app"
	"github.com/dropDatabas3/ssogate/internal/config"
	"github.com/dropDatabas3/ssogate/internal/idp"
	"github.com/dropDatabas3/ssogate/internal/mgmt"
	"github.com/dropDatabas3/ssogate/internal/orgs"
	"github.com/dropDatabas3/ssogate/internal/rbac"
	"github.com/dropDatabas3/ssogate/internal/session"
)

// fakeMgmt implementa app.Management en memoria y registra las mutaciones.
type fakeMgmt struct {
	userOrgs map[string][]mgmt.Organization
	orgsByID map[string]*mgmt.Organization
	members  map[string][]mgmt.Member

	listErr   error
	inviteErr error

	invites []string // "org|inviter|invitee"
	created []mgmt.CreateUserParams
}

func (f *fakeMgmt) ListUserOrganizations(_ context.Context, userID string) ([]mgmt.Organization, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.userOrgs[userID], nil
}

func (f *fakeMgmt) GetOrganization(_ context.Context, orgID string) (*mgmt.Organization, error) {
	if org, ok := f.orgsByID[orgID]; ok {
		return org, nil
	}
	return nil, &mgmt.APIError{StatusCode: 404, Body: "not found"}
}

func (f *fakeMgmt) ListOrganizationMembers(_ context.Context, orgID string) ([]mgmt.Member, error) {
	return f.members[orgID], nil
}

func (f *fakeMgmt) InviteMember(_ context.Context, orgID, inviterName, inviteeEmail string) error {
	if f.inviteErr != nil {
		return f.inviteErr
	}
	f.invites = append(f.invites, orgID+"|"+inviterName+"|"+inviteeEmail)
	return nil
}

func (f *fakeMgmt) CreateUser(_ context.Context, p mgmt.CreateUserParams) (string, error) {
	f.created = append(f.created, p)
	return "auth0|new", nil
}

func (f *fakeMgmt) AddMember(_ context.Context, orgID, userID string) error    { return nil }
func (f *fakeMgmt) RemoveMember(_ context.Context, orgID, userID string) error { return nil }

var errUpstreamDown = errors.New("upstream down")

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "dev"
	cfg.Server.BaseURL = "http://localhost:3000"
	cfg.Provider.Domain = "tenant.example.com"
	cfg.Provider.ClientID = "cid"
	cfg.Provider.Connections = map[string]string{"corp.example.com": "corp-saml"}
	cfg.Provider.Organizations = map[string]string{"corp.example.com": "org_corp"}
	cfg.Session.CookieName = "sess"
	cfg.Session.Secret = "test-secret-0123456789abcdef0123"
	cfg.Session.TTL = "1h"
	cfg.Flow.CookieTTL = "10m"
	cfg.Apps = []string{"wiki", "reports"}
	return cfg
}

// newTestContainer arma un Container con fakes y un IdP apuntando al domain
// dado (puede ser un httptest.Server.URL).
func newTestContainer(t *testing.T, fm *fakeMgmt, seed []rbac.Assignment, idpDomain string) *app.Container {
	t.Helper()
	cfg := testConfig()
	if idpDomain != "" {
		cfg.Provider.Domain = idpDomain
	}
	if fm == nil {
		fm = &fakeMgmt{}
	}
	return &app.Container{
		Cfg: cfg,
		Sessions: session.NewManager(session.Options{
			CookieName: cfg.Session.CookieName,
			TTL:        time.Hour,
			Secret:     []byte(cfg.Session.Secret),
		}),
		IdP: idp.New(idp.Config{
			Domain:      cfg.Provider.Domain,
			ClientID:    cfg.Provider.ClientID,
			CallbackURL: cfg.Server.BaseURL + "/api/auth/callback",
		}, nil),
		Mgmt:  fm,
		Roles: rbac.NewStore(seed),
		Orgs:  orgs.NewResolver(fm),
	}
}

// loginAs emite una cookie de sesión válida para el request.
func loginAs(t *testing.T, c *app.Container, r *http.Request, user session.User) {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := c.Sessions.Write(rec, &session.Session{User: user, AccessToken: "at"}); err != nil {
		t.Fatalf("minting session: %v", err)
	}
	for _, ck := range rec.Result().Cookies() {
		r.AddCookie(ck)
	}
}

func jsonBody(s string) io.Reader { return strings.NewReader(s) }

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}
