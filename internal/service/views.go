package service

import "github.com/Audricteel/client-voice-tracker/internal/models"

// NavigationFor maps a role to its reachable views. The switch is exhaustive
// over the closed role set so adding a role is a compile-visible change here
// rather than a silent fallthrough.
func NavigationFor(role models.Role) []models.NavItem {
	switch role {
	case models.RoleSuperadmin:
		return []models.NavItem{
			{Path: "/dashboard", Label: "Home"},
			{Path: "/users", Label: "User Management"},
			{Path: "/profile", Label: "Profile Information"},
		}
	case models.RoleAuditor:
		return []models.NavItem{
			{Path: "/dashboard", Label: "Feedback Reports"},
			{Path: "/profile", Label: "Profile Information"},
		}
	case models.RoleUser:
		return []models.NavItem{
			{Path: "/dashboard", Label: "Home"},
			{Path: "/profile", Label: "Profile Information"},
		}
	}
	return nil
}

// CanManageUsers gates the user-management view and its API.
func CanManageUsers(role models.Role) bool {
	return role == models.RoleSuperadmin
}

// CanReadFeedback gates the all-feedback table. Plain users only ever see the
// submission form, never the stored rows.
func CanReadFeedback(role models.Role) bool {
	switch role {
	case models.RoleSuperadmin, models.RoleAuditor:
		return true
	case models.RoleUser:
		return false
	}
	return false
}
