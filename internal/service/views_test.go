package service

import (
	"testing"

	"github.com/Audricteel/client-voice-tracker/internal/models"
)

func TestNavigationForCoversEveryRole(t *testing.T) {
	cases := []struct {
		role      models.Role
		wantPaths []string
	}{
		{models.RoleSuperadmin, []string{"/dashboard", "/users", "/profile"}},
		{models.RoleAuditor, []string{"/dashboard", "/profile"}},
		{models.RoleUser, []string{"/dashboard", "/profile"}},
	}
	for _, tc := range cases {
		items := NavigationFor(tc.role)
		if len(items) != len(tc.wantPaths) {
			t.Fatalf("%s: expected %d items, got %d", tc.role, len(tc.wantPaths), len(items))
		}
		for i, p := range tc.wantPaths {
			if items[i].Path != p {
				t.Fatalf("%s: item %d = %q, want %q", tc.role, i, items[i].Path, p)
			}
		}
	}
}

func TestNavigationForUnknownRoleIsEmpty(t *testing.T) {
	if items := NavigationFor(models.Role("overlord")); items != nil {
		t.Fatalf("unknown role must map to no views, got %v", items)
	}
}

func TestRoleGates(t *testing.T) {
	if !CanManageUsers(models.RoleSuperadmin) {
		t.Fatalf("superadmin must manage users")
	}
	if CanManageUsers(models.RoleAuditor) || CanManageUsers(models.RoleUser) {
		t.Fatalf("only superadmin manages users")
	}
	if !CanReadFeedback(models.RoleSuperadmin) || !CanReadFeedback(models.RoleAuditor) {
		t.Fatalf("superadmin and auditor read feedback")
	}
	if CanReadFeedback(models.RoleUser) {
		t.Fatalf("plain users must not read the feedback table")
	}
}
