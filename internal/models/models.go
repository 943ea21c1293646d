package models

import "time"

type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAuditor    Role = "auditor"
	RoleUser       Role = "user"
)

// ValidRole reports whether v names a member of the closed role set.
func ValidRole(v Role) bool {
	switch v {
	case RoleSuperadmin, RoleAuditor, RoleUser:
		return true
	}
	return false
}

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

func ValidUserStatus(v UserStatus) bool {
	return v == UserActive || v == UserInactive
}

type User struct {
	ID           string
	FirstName    string
	MiddleName   *string
	LastName     string
	Email        string
	PasswordHash string
	Birthday     string
	Company      string
	Role         Role
	Status       UserStatus
	CreatedAt    time.Time
}

// DisplayName is the submitter label stamped onto feedback rows.
func (u User) DisplayName() string {
	if u.MiddleName != nil && *u.MiddleName != "" {
		return u.FirstName + " " + *u.MiddleName + " " + u.LastName
	}
	return u.FirstName + " " + u.LastName
}

type FeedbackType string

const (
	FeedbackPositive FeedbackType = "positive"
	FeedbackNegative FeedbackType = "negative"
)

func ValidFeedbackType(v FeedbackType) bool {
	return v == FeedbackPositive || v == FeedbackNegative
}

type FeedbackStatus string

const (
	FeedbackOpen FeedbackStatus = "open"
	FeedbackDone FeedbackStatus = "done"
)

func ValidFeedbackStatus(v FeedbackStatus) bool {
	return v == FeedbackOpen || v == FeedbackDone
}

// Feedback rows are immutable once written: there is no update or delete
// surface, only append and list.
type Feedback struct {
	ID               int64          `json:"id"`
	ServiceProvider  string         `json:"service_provider"`
	BrandPlatform    string         `json:"brand_platform"`
	Month            string         `json:"month"`
	CustomerEmail    *string        `json:"customer_email,omitempty"`
	FeedbackType     FeedbackType   `json:"feedback_type"`
	Particulars      string         `json:"particulars"`
	DateTimeReceived string         `json:"date_time_received"`
	ActionTaken      string         `json:"action_taken"`
	HoursToAction    string         `json:"hours_to_action"`
	Status           FeedbackStatus `json:"status"`
	SubmittedBy      string         `json:"submitted_by"`
	SubmittedAt      time.Time      `json:"submitted_at"`
}

type Session struct {
	ID            string
	UserID        string
	TokenHash     string
	IPHint        string
	UserAgentHash string
	ExpiresAt     time.Time
	IdleExpiresAt time.Time
	CreatedAt     time.Time
	LastSeenAt    time.Time
	RevokedAt     *time.Time
}

// NavItem is one sidebar entry of the role-gated view set.
type NavItem struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}
