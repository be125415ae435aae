package mgmt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient levanta un fake de la management API y devuelve un Client
// autenticado contra él.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "m2m-token", "token_type": "Bearer", "expires_in": 3600,
		})
	})
	mux.HandleFunc("/api/v2/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer m2m-token" {
			t.Errorf("authorization = %q", got)
		}
		handler(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tokens := NewTokenProvider(srv.URL, "mcid", "msecret", "https://api/", srv.Client())
	return NewClient(srv.URL, "app-cid", tokens, srv.Client()), srv
}

func TestClient_ListUserOrganizations(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// el user id va path-escaped ("|" -> %7C)
		if r.URL.EscapedPath() != "/api/v2/users/auth0%7Cu1/organizations" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		_ = json.NewEncoder(w).Encode([]Organization{{ID: "org_1", Name: "acme"}})
	})

	orgs, err := c.ListUserOrganizations(context.Background(), "auth0|u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(orgs) != 1 || orgs[0].ID != "org_1" {
		t.Fatalf("orgs = %+v", orgs)
	}
}

func TestClient_InviteMember_Body(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v2/organizations/org_1/invitations" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	})

	if err := c.InviteMember(context.Background(), "org_1", "Ana", "new@example.com"); err != nil {
		t.Fatal(err)
	}
	if got["client_id"] != "app-cid" {
		t.Fatalf("client_id = %v", got["client_id"])
	}
	if got["send_invitation_email"] != true {
		t.Fatal("send_invitation_email must be true")
	}
	inviter := got["inviter"].(map[string]any)
	invitee := got["invitee"].(map[string]any)
	if inviter["name"] != "Ana" || invitee["email"] != "new@example.com" {
		t.Fatalf("inviter/invitee = %v / %v", inviter, invitee)
	}
}

func TestClient_CreateUser_NoPasswordIssuesTicket(t *testing.T) {
	var paths []string
	var ticketBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/api/v2/users":
			_ = json.NewEncoder(w).Encode(map[string]string{"user_id": "auth0|new"})
		case "/api/v2/tickets/password-change":
			_ = json.NewDecoder(r.Body).Decode(&ticketBody)
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusCreated)
		}
	})

	userID, err := c.CreateUser(context.Background(), CreateUserParams{
		Email: "new@example.com", Name: "New", OrganizationID: "org_1",
		SendVerificationEmail: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if userID != "auth0|new" {
		t.Fatalf("userID = %q", userID)
	}

	want := []string{
		"POST /api/v2/users",
		"POST /api/v2/organizations/org_1/members",
		"POST /api/v2/tickets/password-change",
	}
	if len(paths) != len(want) {
		t.Fatalf("calls = %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, paths[i], want[i])
		}
	}
	if ticketBody["ttl_sec"] != float64(86400) {
		t.Fatalf("ttl_sec = %v", ticketBody["ttl_sec"])
	}
	if ticketBody["user_id"] != "auth0|new" {
		t.Fatalf("ticket user_id = %v", ticketBody["user_id"])
	}
}

func TestClient_CreateUser_WithPasswordSkipsTicket(t *testing.T) {
	var paths []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/api/v2/users" {
			_ = json.NewEncoder(w).Encode(map[string]string{"user_id": "auth0|new"})
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	if _, err := c.CreateUser(context.Background(), CreateUserParams{
		Email: "new@example.com", Name: "New", Password: "s3cr3t!", OrganizationID: "org_1",
	}); err != nil {
		t.Fatal(err)
	}
	for _, p := range paths {
		if p == "POST /api/v2/tickets/password-change" {
			t.Fatal("ticket must not be issued when password was supplied")
		}
	}
}

func TestClient_RemoveMember(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.EscapedPath() != "/api/v2/organizations/org_1/members/auth0%7Cu1" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.RemoveMember(context.Background(), "org_1", "auth0|u1"); err != nil {
		t.Fatal(err)
	}
}

func TestClient_APIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"insufficient_scope"}`, http.StatusForbidden)
	})

	_, err := c.GetOrganization(context.Background(), "org_1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
}
