package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Audricteel/client-voice-tracker/internal/models"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

// UserUpdate carries the partial-update fields of the admin edit form.
// Nil pointers leave the stored value untouched.
type UserUpdate struct {
	FirstName    *string
	MiddleName   *string
	LastName     *string
	Email        *string
	PasswordHash *string
	Birthday     *string
	Company      *string
	Role         *models.Role
	Status       *models.UserStatus
}

// CreateUser assigns the identifier and enforces email uniqueness. The
// uniqueness invariant lives here, not in the callers, so the admin create
// path cannot bypass it.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id,fname,mname,lname,email,password_hash,bday,company,role,status,created_at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.FirstName, u.MiddleName, u.LastName, u.Email, u.PasswordHash, u.Birthday, u.Company, u.Role, u.Status, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return models.User{}, ErrConflict
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// SeedDefaultUsers installs the three fixed accounts (one per role) the first
// time the store is used. passwordHash is shared by all three.
func (s *Store) SeedDefaultUsers(ctx context.Context, passwordHash string) error {
	n, err := s.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	mname := func(v string) *string { return &v }
	seeds := []models.User{
		{FirstName: "John", MiddleName: mname("A"), LastName: "Doe", Email: "superadmin@example.com", Birthday: "1985-01-01", Company: "PAGCOR", Role: models.RoleSuperadmin, Status: models.UserActive},
		{FirstName: "Jane", MiddleName: mname("B"), LastName: "Smith", Email: "user@example.com", Birthday: "1990-05-15", Company: "Gaming Corp", Role: models.RoleUser, Status: models.UserActive},
		{FirstName: "Mike", MiddleName: mname("C"), LastName: "Johnson", Email: "auditor@example.com", Birthday: "1988-08-20", Company: "Audit Firm", Role: models.RoleAuditor, Status: models.UserActive},
	}
	for _, u := range seeds {
		u.PasswordHash = passwordHash
		if _, err := s.CreateUser(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUser(ctx, `WHERE email=?`, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return s.getUser(ctx, `WHERE id=?`, id)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (models.User, error) {
	var u models.User
	var mname sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id,fname,mname,lname,email,password_hash,bday,company,role,status,created_at FROM users `+where,
		arg,
	).Scan(&u.ID, &u.FirstName, &mname, &u.LastName, &u.Email, &u.PasswordHash, &u.Birthday, &u.Company, &u.Role, &u.Status, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	if mname.Valid && strings.TrimSpace(mname.String) != "" {
		v := mname.String
		u.MiddleName = &v
	}
	return u, nil
}

// ListUsers returns users in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,fname,mname,lname,email,password_hash,bday,company,role,status,created_at FROM users ORDER BY rowid ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		var mname sql.NullString
		if err := rows.Scan(&u.ID, &u.FirstName, &mname, &u.LastName, &u.Email, &u.PasswordHash, &u.Birthday, &u.Company, &u.Role, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		if mname.Valid && strings.TrimSpace(mname.String) != "" {
			v := mname.String
			u.MiddleName = &v
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// UpdateUser applies the non-nil fields of upd to the user. Email changes go
// through the same uniqueness invariant as creation.
func (s *Store) UpdateUser(ctx context.Context, id string, upd UserUpdate) (models.User, error) {
	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.MiddleName != nil {
		if strings.TrimSpace(*upd.MiddleName) == "" {
			u.MiddleName = nil
		} else {
			u.MiddleName = upd.MiddleName
		}
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Birthday != nil {
		u.Birthday = *upd.Birthday
	}
	if upd.Company != nil {
		u.Company = *upd.Company
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET fname=?,mname=?,lname=?,email=?,password_hash=?,bday=?,company=?,role=?,status=? WHERE id=?`,
		u.FirstName, u.MiddleName, u.LastName, u.Email, u.PasswordHash, u.Birthday, u.Company, u.Role, u.Status, u.ID,
	)
	if isUniqueViolation(err) {
		return models.User{}, ErrConflict
	}
	if err != nil {
		return models.User{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.User{}, err
	}
	if n == 0 {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

// DeleteUser removes the row itself; there is no soft delete.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendFeedback inserts the record and returns its identifier. SQLite
// AUTOINCREMENT keeps identifiers monotonic even if a delete path is ever
// added; on the current append-only surface the id equals prior-count+1.
func (s *Store) AppendFeedback(ctx context.Context, f models.Feedback) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback(service_provider,brand_platform,month,customer_email,feedback_type,particulars,date_time_received,action_taken,hours_to_action,status,submitted_by,submitted_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		f.ServiceProvider, f.BrandPlatform, f.Month, f.CustomerEmail, f.FeedbackType, f.Particulars, f.DateTimeReceived, f.ActionTaken, f.HoursToAction, f.Status, f.SubmittedBy, f.SubmittedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListFeedback returns all rows oldest first.
func (s *Store) ListFeedback(ctx context.Context) ([]models.Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,service_provider,brand_platform,month,customer_email,feedback_type,particulars,date_time_received,action_taken,hours_to_action,status,submitted_by,submitted_at FROM feedback ORDER BY id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Feedback
	for rows.Next() {
		var f models.Feedback
		var email sql.NullString
		if err := rows.Scan(&f.ID, &f.ServiceProvider, &f.BrandPlatform, &f.Month, &email, &f.FeedbackType, &f.Particulars, &f.DateTimeReceived, &f.ActionTaken, &f.HoursToAction, &f.Status, &f.SubmittedBy, &f.SubmittedAt); err != nil {
			return nil, err
		}
		if email.Valid && email.String != "" {
			v := email.String
			f.CustomerEmail = &v
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) CountFeedback(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM feedback`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id,user_id,token_hash,ip_hint,user_agent_hash,expires_at,idle_expires_at,created_at,last_seen_at) VALUES(?,?,?,?,?,?,?,?,?)`,
		sess.ID, sess.UserID, sess.TokenHash, sess.IPHint, sess.UserAgentHash, sess.ExpiresAt, sess.IdleExpiresAt, sess.CreatedAt, sess.LastSeenAt,
	)
	return err
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (models.Session, error) {
	var sess models.Session
	var revoked sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,token_hash,ip_hint,user_agent_hash,expires_at,idle_expires_at,created_at,last_seen_at,revoked_at FROM sessions WHERE token_hash=?`,
		tokenHash,
	).Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.IPHint, &sess.UserAgentHash, &sess.ExpiresAt, &sess.IdleExpiresAt, &sess.CreatedAt, &sess.LastSeenAt, &revoked)
	if err == sql.ErrNoRows {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	if revoked.Valid {
		t := revoked.Time
		sess.RevokedAt = &t
	}
	return sess, nil
}

func (s *Store) TouchSession(ctx context.Context, id string, idleExpiry time.Time) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at=?, idle_expires_at=? WHERE id=?`, now, idleExpiry, id)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked_at=? WHERE id=?`, now, id)
	return err
}

func (s *Store) RevokeUserSessions(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL`, now, userID)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) IncrementRateEvent(ctx context.Context, key, route string, windowStart time.Time) (int, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rate_limit_events(id,key,route,window_start,count,created_at,updated_at)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(key, route, window_start)
		 DO UPDATE SET count = rate_limit_events.count + 1, updated_at = excluded.updated_at`,
		uuid.NewString(), key, route, windowStart, 1, now, now,
	)
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count FROM rate_limit_events WHERE key=? AND route=? AND window_start=?`, key, route, windowStart).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) DeleteRateEvents(ctx context.Context, key, route string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rate_limit_events WHERE key=? AND route=?`, key, route)
	return err
}

func (s *Store) CleanupRateEventsBefore(ctx context.Context, before time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rate_limit_events WHERE window_start < ?`, before)
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
