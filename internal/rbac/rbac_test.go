package rbac

import "testing"

func TestStore_DefaultViewer(t *testing.T) {
	s := NewStore(nil)
	if got := s.GetRole("u1", "org_1"); got != RoleViewer {
		t.Fatalf("GetRole = %q, want viewer", got)
	}
	if s.CanInviteUsers("u1", "org_1") {
		t.Fatal("viewer must not invite")
	}
	if s.IsAdmin("u1", "org_1") {
		t.Fatal("viewer must not be admin")
	}
}

func TestStore_Hierarchy(t *testing.T) {
	s := NewStore([]Assignment{
		{UserID: "admin", OrgID: "org_1", Role: RoleAdmin},
		{UserID: "member", OrgID: "org_1", Role: RoleUser},
	})

	// admin satisface todo requisito inferior
	for _, req := range []Role{RoleViewer, RoleUser, RoleAdmin} {
		if !s.HasRole("admin", "org_1", req) {
			t.Fatalf("admin should satisfy %q", req)
		}
	}
	// user invita pero no administra
	if !s.CanInviteUsers("member", "org_1") {
		t.Fatal("user should invite")
	}
	if s.IsAdmin("member", "org_1") {
		t.Fatal("user is not admin")
	}
}

func TestStore_ScopedPerOrg(t *testing.T) {
	s := NewStore([]Assignment{{UserID: "u1", OrgID: "org_1", Role: RoleAdmin}})

	if !s.IsAdmin("u1", "org_1") {
		t.Fatal("expected admin in org_1")
	}
	// mismo usuario, otra org: cae al default
	if s.IsAdmin("u1", "org_2") {
		t.Fatal("role must not leak across orgs")
	}
}

func TestStore_SetUserRole_Upsert(t *testing.T) {
	s := NewStore(nil)

	s.SetUserRole("u1", "org_1", RoleUser)
	s.SetUserRole("u1", "org_1", RoleAdmin)

	if got := s.GetRole("u1", "org_1"); got != RoleAdmin {
		t.Fatalf("GetRole = %q, want admin after upsert", got)
	}
	// a lo sumo una entrada por (user, org)
	if n := len(s.ListUserRoles("u1")); n != 1 {
		t.Fatalf("assignments = %d, want 1", n)
	}

	// rol desconocido: no-op
	s.SetUserRole("u1", "org_1", Role("owner"))
	if got := s.GetRole("u1", "org_1"); got != RoleAdmin {
		t.Fatalf("invalid role overwrote assignment: %q", got)
	}
}

func TestStore_ListUserRoles_Sorted(t *testing.T) {
	s := NewStore([]Assignment{
		{UserID: "u1", OrgID: "org_b", Role: RoleUser},
		{UserID: "u1", OrgID: "org_a", Role: RoleAdmin},
		{UserID: "u2", OrgID: "org_a", Role: RoleViewer},
	})

	got := s.ListUserRoles("u1")
	if len(got) != 2 {
		t.Fatalf("assignments = %d, want 2", len(got))
	}
	if got[0].OrgID != "org_a" || got[1].OrgID != "org_b" {
		t.Fatalf("not sorted by org: %+v", got)
	}
}

func TestRole_Rank(t *testing.T) {
	if !(RoleAdmin.Rank() > RoleUser.Rank() && RoleUser.Rank() > RoleViewer.Rank()) {
		t.Fatal("rank order broken")
	}
	if Role("bogus").Rank() != 0 {
		t.Fatal("unknown role must rank below viewer")
	}
}
