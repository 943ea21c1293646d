package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Audricteel/client-voice-tracker/internal/auth"
	"github.com/Audricteel/client-voice-tracker/internal/config"
	"github.com/Audricteel/client-voice-tracker/internal/models"
	"github.com/Audricteel/client-voice-tracker/internal/store"
)

var (
	// ErrInvalidCredentials deliberately covers both unknown email and wrong
	// password so the login surface cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrForbidden          = errors.New("forbidden")
)

type Service struct {
	cfg config.Config
	st  *store.Store
}

func New(cfg config.Config, st *store.Store) *Service {
	return &Service{cfg: cfg, st: st}
}

func (s *Service) Store() *store.Store { return s.st }

func hashUA(ua string) string {
	sum := sha256.Sum256([]byte(ua))
	return hex.EncodeToString(sum[:])
}

// Profile is a user record minus the credential hash; it is the only user
// shape that ever leaves the service.
type Profile struct {
	ID         string            `json:"id"`
	FirstName  string            `json:"fname"`
	MiddleName *string           `json:"mname,omitempty"`
	LastName   string            `json:"lname"`
	Email      string            `json:"email"`
	Birthday   string            `json:"bday"`
	Company    string            `json:"company"`
	Role       models.Role       `json:"role"`
	Status     models.UserStatus `json:"status"`
}

func ProfileOf(u models.User) Profile {
	return Profile{
		ID:         u.ID,
		FirstName:  u.FirstName,
		MiddleName: u.MiddleName,
		LastName:   u.LastName,
		Email:      u.Email,
		Birthday:   u.Birthday,
		Company:    u.Company,
		Role:       u.Role,
		Status:     u.Status,
	}
}

func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (rawToken string, user models.User, err error) {
	u, err := s.st.GetUserByEmail(ctx, email)
	if err != nil {
		return "", models.User{}, ErrInvalidCredentials
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return "", models.User{}, ErrInvalidCredentials
	}
	raw, err := s.createSession(ctx, u, ip, userAgent)
	if err != nil {
		return "", models.User{}, err
	}
	return raw, u, nil
}

type RegisterRequest struct {
	FirstName       string
	MiddleName      string
	LastName        string
	Email           string
	Birthday        string
	Company         string
	Password        string
	ConfirmPassword string
}

// Register creates a user account with the default role and signs it in.
// Failures never mutate the store.
func (s *Service) Register(ctx context.Context, req RegisterRequest, ip, userAgent string) (rawToken string, user models.User, err error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Birthday == "" || req.Company == "" {
		return "", models.User{}, errors.New("all profile fields are required")
	}
	if _, err := netmail.ParseAddress(req.Email); err != nil {
		return "", models.User{}, errors.New("invalid email address")
	}
	if req.Password != req.ConfirmPassword {
		return "", models.User{}, errors.New("passwords do not match")
	}
	if err := s.ValidatePassword(req.Password); err != nil {
		return "", models.User{}, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", models.User{}, err
	}
	u := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		Birthday:     req.Birthday,
		Company:      req.Company,
		Role:         models.RoleUser,
		Status:       models.UserActive,
	}
	if m := strings.TrimSpace(req.MiddleName); m != "" {
		u.MiddleName = &m
	}
	created, err := s.st.CreateUser(ctx, u)
	if err == store.ErrConflict {
		return "", models.User{}, ErrEmailTaken
	}
	if err != nil {
		return "", models.User{}, err
	}
	raw, err := s.createSession(ctx, created, ip, userAgent)
	if err != nil {
		return "", models.User{}, err
	}
	return raw, created, nil
}

func (s *Service) createSession(ctx context.Context, u models.User, ip, userAgent string) (string, error) {
	raw, tokenHash, err := auth.NewOpaqueToken()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	sess := models.Session{
		ID:            uuid.NewString(),
		UserID:        u.ID,
		TokenHash:     tokenHash,
		IPHint:        ip,
		UserAgentHash: hashUA(userAgent),
		ExpiresAt:     now.Add(s.cfg.SessionAbsoluteDuration()),
		IdleExpiresAt: now.Add(s.cfg.SessionIdleDuration()),
		CreatedAt:     now,
		LastSeenAt:    now,
	}
	if err := s.st.CreateSession(ctx, sess); err != nil {
		return "", err
	}
	return raw, nil
}

func (s *Service) ValidateSession(ctx context.Context, rawToken string) (models.User, models.Session, error) {
	sess, err := s.st.GetSessionByTokenHash(ctx, auth.HashToken(rawToken))
	if err != nil {
		return models.User{}, models.Session{}, ErrInvalidCredentials
	}
	now := time.Now().UTC()
	if sess.RevokedAt != nil || now.After(sess.ExpiresAt) || now.After(sess.IdleExpiresAt) {
		return models.User{}, models.Session{}, ErrInvalidCredentials
	}
	if err := s.st.TouchSession(ctx, sess.ID, now.Add(s.cfg.SessionIdleDuration())); err != nil {
		// The session stays valid for this request; a touch that keeps
		// failing would let idle expiry fire under active use.
		log.Printf("session touch failed session_id=%s err=%v", sess.ID, err)
	}

	u, err := s.st.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return models.User{}, models.Session{}, ErrInvalidCredentials
	}
	return u, sess, nil
}

// Logout always succeeds; an unknown token is a no-op.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	sess, err := s.st.GetSessionByTokenHash(ctx, auth.HashToken(rawToken))
	if err != nil {
		return nil
	}
	return s.st.RevokeSession(ctx, sess.ID)
}

func (s *Service) ValidatePassword(pw string) error {
	if len(pw) < s.cfg.PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters", s.cfg.PasswordMinLength)
	}
	if len(pw) > s.cfg.PasswordMaxLength {
		return fmt.Errorf("password must be at most %d characters", s.cfg.PasswordMaxLength)
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.st.ListUsers(ctx)
}

type UserWrite struct {
	FirstName  string
	MiddleName string
	LastName   string
	Email      string
	Password   string
	Birthday   string
	Company    string
	Role       models.Role
	Status     models.UserStatus
}

func (s *Service) CreateUser(ctx context.Context, req UserWrite) (models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Birthday == "" || req.Company == "" || req.Password == "" {
		return models.User{}, errors.New("all user fields are required")
	}
	if _, err := netmail.ParseAddress(req.Email); err != nil {
		return models.User{}, errors.New("invalid email address")
	}
	if !models.ValidRole(req.Role) {
		return models.User{}, fmt.Errorf("unknown role %q", req.Role)
	}
	if !models.ValidUserStatus(req.Status) {
		return models.User{}, fmt.Errorf("unknown status %q", req.Status)
	}
	if err := s.ValidatePassword(req.Password); err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.User{}, err
	}
	u := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		Birthday:     req.Birthday,
		Company:      req.Company,
		Role:         req.Role,
		Status:       req.Status,
	}
	if m := strings.TrimSpace(req.MiddleName); m != "" {
		u.MiddleName = &m
	}
	created, err := s.st.CreateUser(ctx, u)
	if err == store.ErrConflict {
		return models.User{}, ErrEmailTaken
	}
	return created, err
}

type UserPatch struct {
	FirstName  *string
	MiddleName *string
	LastName   *string
	Email      *string
	Password   *string
	Birthday   *string
	Company    *string
	Role       *models.Role
	Status     *models.UserStatus
}

func (s *Service) UpdateUser(ctx context.Context, id string, patch UserPatch) (models.User, error) {
	upd := store.UserUpdate{
		FirstName:  patch.FirstName,
		MiddleName: patch.MiddleName,
		LastName:   patch.LastName,
		Birthday:   patch.Birthday,
		Company:    patch.Company,
	}
	if patch.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*patch.Email))
		if _, err := netmail.ParseAddress(e); err != nil {
			return models.User{}, errors.New("invalid email address")
		}
		upd.Email = &e
	}
	if patch.Role != nil {
		if !models.ValidRole(*patch.Role) {
			return models.User{}, fmt.Errorf("unknown role %q", *patch.Role)
		}
		upd.Role = patch.Role
	}
	if patch.Status != nil {
		if !models.ValidUserStatus(*patch.Status) {
			return models.User{}, fmt.Errorf("unknown status %q", *patch.Status)
		}
		upd.Status = patch.Status
	}
	if patch.Password != nil && *patch.Password != "" {
		if err := s.ValidatePassword(*patch.Password); err != nil {
			return models.User{}, err
		}
		hash, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return models.User{}, err
		}
		upd.PasswordHash = &hash
	}
	u, err := s.st.UpdateUser(ctx, id, upd)
	if err == store.ErrConflict {
		return models.User{}, ErrEmailTaken
	}
	return u, err
}

// DeleteUser removes the account and revokes its live sessions.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.st.DeleteUser(ctx, id); err != nil {
		return err
	}
	return s.st.RevokeUserSessions(ctx, id)
}

type FeedbackSubmission struct {
	ServiceProvider  string
	BrandPlatform    string
	Month            string
	CustomerEmail    string
	FeedbackType     models.FeedbackType
	Particulars      string
	DateTimeReceived string
	ActionTaken      string
	HoursToAction    string
	Status           models.FeedbackStatus
}

// SubmitFeedback appends one immutable feedback row on behalf of submitter.
func (s *Service) SubmitFeedback(ctx context.Context, submitter models.User, req FeedbackSubmission) (models.Feedback, error) {
	if req.ServiceProvider == "" || req.BrandPlatform == "" || req.Month == "" ||
		req.Particulars == "" || req.DateTimeReceived == "" || req.ActionTaken == "" || req.HoursToAction == "" {
		return models.Feedback{}, errors.New("all required feedback fields must be filled")
	}
	if !models.ValidFeedbackType(req.FeedbackType) {
		return models.Feedback{}, fmt.Errorf("unknown feedback type %q", req.FeedbackType)
	}
	if req.Status == "" {
		req.Status = models.FeedbackOpen
	}
	if !models.ValidFeedbackStatus(req.Status) {
		return models.Feedback{}, fmt.Errorf("unknown status %q", req.Status)
	}
	f := models.Feedback{
		ServiceProvider:  req.ServiceProvider,
		BrandPlatform:    req.BrandPlatform,
		Month:            req.Month,
		FeedbackType:     req.FeedbackType,
		Particulars:      req.Particulars,
		DateTimeReceived: req.DateTimeReceived,
		ActionTaken:      req.ActionTaken,
		HoursToAction:    req.HoursToAction,
		Status:           req.Status,
		SubmittedBy:      submitter.DisplayName(),
		SubmittedAt:      time.Now().UTC(),
	}
	if e := strings.TrimSpace(req.CustomerEmail); e != "" {
		if _, err := netmail.ParseAddress(e); err != nil {
			return models.Feedback{}, errors.New("invalid customer email")
		}
		f.CustomerEmail = &e
	}
	id, err := s.st.AppendFeedback(ctx, f)
	if err != nil {
		return models.Feedback{}, err
	}
	f.ID = id
	return f, nil
}

func (s *Service) ListFeedback(ctx context.Context) ([]models.Feedback, error) {
	return s.st.ListFeedback(ctx)
}
