package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/ssogate/internal/mgmt"
	"github.com/dropDatabas3/ssogate/internal/session"
)

func selectOrgRequestFor(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/select-organization", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestSelectOrganization_Unauthorized(t *testing.T) {
	c := newTestContainer(t, nil, nil, "")
	h := NewSelectOrganizationHandler(c)

	rec := httptest.NewRecorder()
	h(rec, selectOrgRequestFor(`{"organizationId":"org_1"}`))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "unauthorized", resp["code"])
}

func TestSelectOrganization_RequiresID(t *testing.T) {
	c := newTestContainer(t, nil, nil, "")
	h := NewSelectOrganizationHandler(c)

	r := selectOrgRequestFor(`{}`)
	loginAs(t, c, r, session.User{Sub: "auth0|u1"})
	rec := httptest.NewRecorder()
	h(rec, r)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelectOrganization_NotMember(t *testing.T) {
	fm := &fakeMgmt{
		userOrgs: map[string][]mgmt.Organization{
			"auth0|u1": {{ID: "org_1", Name: "acme", DisplayName: "Acme"}},
		},
	}
	c := newTestContainer(t, fm, nil, "")
	h := NewSelectOrganizationHandler(c)

	r := selectOrgRequestFor(`{"organizationId":"org_other"}`)
	loginAs(t, c, r, session.User{Sub: "auth0|u1"})
	rec := httptest.NewRecorder()
	h(rec, r)

	// membresía manda: 403, no 404, y sin cookie de sesión nueva
	require.Equal(t, http.StatusForbidden, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "forbidden", resp["code"])
	require.Nil(t, cookieByName(rec, c.Cfg.Session.CookieName))
}

func TestSelectOrganization_NotFound(t *testing.T) {
	// miembro según el listado, pero la org ya no existe en el provider
	fm := &fakeMgmt{
		userOrgs: map[string][]mgmt.Organization{
			"auth0|u1": {{ID: "org_ghost", Name: "ghost"}},
		},
	}
	c := newTestContainer(t, fm, nil, "")
	h := NewSelectOrganizationHandler(c)

	r := selectOrgRequestFor(`{"organizationId":"org_ghost"}`)
	loginAs(t, c, r, session.User{Sub: "auth0|u1"})
	rec := httptest.NewRecorder()
	h(rec, r)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectOrganization_Success(t *testing.T) {
	acme := &mgmt.Organization{ID: "org_1", Name: "acme", DisplayName: "Acme"}
	fm := &fakeMgmt{
		userOrgs: map[string][]mgmt.Organization{"auth0|u1": {*acme}},
		orgsByID: map[string]*mgmt.Organization{"org_1": acme},
	}
	c := newTestContainer(t, fm, nil, "")
	h := NewSelectOrganizationHandler(c)

	r := selectOrgRequestFor(`{"organizationId":"org_1"}`)
	loginAs(t, c, r, session.User{Sub: "auth0|u1", Email: "ana@example.com"})
	rec := httptest.NewRecorder()
	h(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success      bool              `json:"success"`
		Organization mgmt.Organization `json:"organization"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "org_1", resp.Organization.ID)

	// la sesión reescrita lleva la org seleccionada
	sessCk := cookieByName(rec, c.Cfg.Session.CookieName)
	require.NotNil(t, sessCk)
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(sessCk)
	sess, err := c.Sessions.Read(r2)
	require.NoError(t, err)
	require.Equal(t, "org_1", sess.User.OrgID)
	require.Equal(t, "Acme", sess.User.OrgName)
}
