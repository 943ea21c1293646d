package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Audricteel/client-voice-tracker/internal/auth"
	"github.com/Audricteel/client-voice-tracker/internal/config"
	"github.com/Audricteel/client-voice-tracker/internal/middleware"
	"github.com/Audricteel/client-voice-tracker/internal/models"
	"github.com/Audricteel/client-voice-tracker/internal/rate"
	"github.com/Audricteel/client-voice-tracker/internal/service"
	"github.com/Audricteel/client-voice-tracker/internal/store"
	"github.com/Audricteel/client-voice-tracker/internal/util"
	"github.com/Audricteel/client-voice-tracker/internal/version"
)

type Handlers struct {
	cfg     config.Config
	svc     *service.Service
	limiter *rate.Limiter
}

func NewRouter(cfg config.Config, svc *service.Service) http.Handler {
	h := &Handlers{
		cfg:     cfg,
		svc:     svc,
		limiter: rate.NewLimiter(),
	}
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.SecurityHeaders)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
			AllowCredentials: true,
		}))
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ready := map[string]any{
			"checked_at": time.Now().UTC().Format(time.RFC3339),
			"components": map[string]any{},
		}
		comps := ready["components"].(map[string]any)
		if err := h.svc.Store().Ping(r.Context()); err != nil {
			comps["sqlite"] = map[string]any{"ok": false, "error": err.Error()}
			ready["status"] = "degraded"
			util.WriteJSON(w, 503, ready)
			return
		}
		comps["sqlite"] = map[string]any{"ok": true}
		ready["status"] = "ready"
		util.WriteJSON(w, 200, ready)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			util.WriteJSON(w, 200, version.Current())
		})
		r.With(middleware.RateLimit(h.limiter, "login", 20, time.Minute, h.cfg.TrustProxy)).Post("/login", h.Login)
		r.With(middleware.RateLimit(h.limiter, "register", 10, time.Minute, h.cfg.TrustProxy)).Post("/register", h.Register)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authn(h.svc, h.cfg.SessionCookieName))
			r.Get("/me", h.Me)
			r.Get("/navigation", h.Navigation)

			r.With(middleware.FeedbackReadersOnly).Get("/feedback", h.ListFeedback)
			r.Group(func(r chi.Router) {
				r.Use(middleware.ActiveOnly)
				r.Use(middleware.CSRFFromCookie(h.cfg.CSRFCookieName))
				r.With(middleware.RateLimit(h.limiter, "feedback", 30, time.Minute, h.cfg.TrustProxy)).Post("/feedback", h.SubmitFeedback)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.SuperadminOnly)
				r.Get("/", h.ListUsers)
				r.Group(func(r chi.Router) {
					r.Use(middleware.CSRFFromCookie(h.cfg.CSRFCookieName))
					r.Post("/", h.CreateUser)
					r.Put("/{id}", h.UpdateUser)
					r.Delete("/{id}", h.DeleteUser)
				})
			})
		})
	})

	// Role-gated view router. The gate runs on every navigation, not just the
	// first render, and failures redirect without surfacing an error.
	r.Get("/", h.page(models.Role(""), false))
	r.Get("/login", h.loginPage)
	r.Get("/dashboard", h.page(models.Role(""), true))
	r.Get("/profile", h.page(models.Role(""), true))
	r.Get("/users", h.page(models.RoleSuperadmin, true))

	fs := http.FileServer(http.Dir("web"))
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/health/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})

	return r
}

// sessionUser resolves the cookie session without writing a response, for the
// page routes that redirect instead of erroring.
func (h *Handlers) sessionUser(r *http.Request) (models.User, bool) {
	c, err := r.Cookie(h.cfg.SessionCookieName)
	if err != nil || c.Value == "" {
		return models.User{}, false
	}
	u, _, err := h.svc.ValidateSession(r.Context(), c.Value)
	if err != nil {
		return models.User{}, false
	}
	return u, true
}

// page builds a handler for one protected view. requiredRole narrows access
// beyond authentication; the zero role admits every authenticated user.
func (h *Handlers) page(requiredRole models.Role, protected bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := h.sessionUser(r)
		if protected && !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if r.URL.Path == "/" {
			if ok {
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			} else {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
			}
			return
		}
		if requiredRole != "" && u.Role != requiredRole {
			// Authorization boundary: silent redirect, no error body.
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		h.serveShell(w, r)
	}
}

func (h *Handlers) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessionUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.serveShell(w, r)
}

func (h *Handlers) serveShell(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join("web", "index.html"))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	token, user, err := h.svc.Login(r.Context(), req.Email, req.Password, r.RemoteAddr, r.UserAgent())
	if err != nil {
		normalizedEmail := strings.ToLower(strings.TrimSpace(req.Email))
		ip := middleware.ClientIP(r, h.cfg.TrustProxy)
		key := ip + "|" + normalizedEmail
		windowStart := time.Now().UTC().Truncate(15 * time.Minute)
		failCount, _ := h.svc.Store().IncrementRateEvent(r.Context(), key, "login_failed", windowStart)
		_ = h.svc.Store().CleanupRateEventsBefore(r.Context(), time.Now().UTC().Add(-24*time.Hour))
		if failCount > 6 {
			// Past the backoff ladder the attempt is refused outright; holding
			// the connection open any longer only ties up a worker.
			util.WriteError(w, 429, "rate_limited", service.ErrInvalidCredentials.Error(), middleware.RequestID(r.Context()))
			return
		}
		if failCount > 3 {
			// 2s, 4s, 8s; stays well under the server write timeout.
			backoff := time.Duration(1<<(failCount-3)) * time.Second
			select {
			case <-time.After(backoff):
			case <-r.Context().Done():
			}
		}
		util.WriteError(w, 401, "invalid_credentials", service.ErrInvalidCredentials.Error(), middleware.RequestID(r.Context()))
		return
	}
	normalizedEmail := strings.ToLower(strings.TrimSpace(req.Email))
	ip := middleware.ClientIP(r, h.cfg.TrustProxy)
	_ = h.svc.Store().DeleteRateEvents(r.Context(), ip+"|"+normalizedEmail, "login_failed")

	csrfToken, _, err := auth.NewOpaqueToken()
	if err != nil {
		util.WriteError(w, 500, "internal_error", "token generation failed", middleware.RequestID(r.Context()))
		return
	}
	h.setAuthCookies(w, r, token, csrfToken)
	util.WriteJSON(w, 200, map[string]any{"user": service.ProfileOf(user), "csrf_token": csrfToken})
}

type registerRequest struct {
	FirstName       string `json:"fname"`
	MiddleName      string `json:"mname"`
	LastName        string `json:"lname"`
	Email           string `json:"email"`
	Birthday        string `json:"bday"`
	Company         string `json:"company"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	token, user, err := h.svc.Register(r.Context(), service.RegisterRequest{
		FirstName:       req.FirstName,
		MiddleName:      req.MiddleName,
		LastName:        req.LastName,
		Email:           req.Email,
		Birthday:        req.Birthday,
		Company:         req.Company,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}, r.RemoteAddr, r.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			util.WriteError(w, 409, "email_taken", err.Error(), middleware.RequestID(r.Context()))
			return
		}
		util.WriteError(w, 400, "register_failed", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	csrfToken, _, err := auth.NewOpaqueToken()
	if err != nil {
		util.WriteError(w, 500, "internal_error", "token generation failed", middleware.RequestID(r.Context()))
		return
	}
	h.setAuthCookies(w, r, token, csrfToken)
	util.WriteJSON(w, 201, map[string]any{"user": service.ProfileOf(user), "csrf_token": csrfToken})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	c, _ := r.Cookie(h.cfg.SessionCookieName)
	if c != nil && c.Value != "" {
		_ = h.svc.Logout(r.Context(), c.Value)
	}
	h.clearAuthCookies(w, r)
	util.WriteJSON(w, 200, map[string]string{"status": "ok"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r.Context())
	util.WriteJSON(w, 200, service.ProfileOf(u))
}

func (h *Handlers) Navigation(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r.Context())
	util.WriteJSON(w, 200, map[string]any{"role": u.Role, "items": service.NavigationFor(u.Role)})
}

type feedbackRequest struct {
	ServiceProvider  string `json:"service_provider"`
	BrandPlatform    string `json:"brand_platform"`
	Month            string `json:"month"`
	CustomerEmail    string `json:"customer_email"`
	FeedbackType     string `json:"feedback_type"`
	Particulars      string `json:"particulars"`
	DateTimeReceived string `json:"date_time_received"`
	ActionTaken      string `json:"action_taken"`
	HoursToAction    string `json:"hours_to_action"`
	Status           string `json:"status"`
}

func (h *Handlers) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r.Context())
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	f, err := h.svc.SubmitFeedback(r.Context(), u, service.FeedbackSubmission{
		ServiceProvider:  req.ServiceProvider,
		BrandPlatform:    req.BrandPlatform,
		Month:            req.Month,
		CustomerEmail:    req.CustomerEmail,
		FeedbackType:     models.FeedbackType(req.FeedbackType),
		Particulars:      req.Particulars,
		DateTimeReceived: req.DateTimeReceived,
		ActionTaken:      req.ActionTaken,
		HoursToAction:    req.HoursToAction,
		Status:           models.FeedbackStatus(req.Status),
	})
	if err != nil {
		util.WriteError(w, 400, "submit_failed", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 201, f)
}

func (h *Handlers) ListFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListFeedback(r.Context())
	if err != nil {
		util.WriteError(w, 500, "internal_error", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	if items == nil {
		items = []models.Feedback{}
	}
	util.WriteJSON(w, 200, map[string]any{"items": items})
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		util.WriteError(w, 500, "internal_error", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	out := make([]service.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, service.ProfileOf(u))
	}
	util.WriteJSON(w, 200, map[string]any{"items": out})
}

type userWriteRequest struct {
	FirstName  string `json:"fname"`
	MiddleName string `json:"mname"`
	LastName   string `json:"lname"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Birthday   string `json:"bday"`
	Company    string `json:"company"`
	Role       string `json:"role"`
	Status     string `json:"status"`
}

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	u, err := h.svc.CreateUser(r.Context(), service.UserWrite{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Email:      req.Email,
		Password:   req.Password,
		Birthday:   req.Birthday,
		Company:    req.Company,
		Role:       models.Role(req.Role),
		Status:     models.UserStatus(req.Status),
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			util.WriteError(w, 409, "email_taken", err.Error(), middleware.RequestID(r.Context()))
			return
		}
		util.WriteError(w, 400, "create_failed", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 201, service.ProfileOf(u))
}

type userPatchRequest struct {
	FirstName  *string `json:"fname"`
	MiddleName *string `json:"mname"`
	LastName   *string `json:"lname"`
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	Birthday   *string `json:"bday"`
	Company    *string `json:"company"`
	Role       *string `json:"role"`
	Status     *string `json:"status"`
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req userPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	patch := service.UserPatch{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Email:      req.Email,
		Password:   req.Password,
		Birthday:   req.Birthday,
		Company:    req.Company,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		patch.Role = &role
	}
	if req.Status != nil {
		status := models.UserStatus(*req.Status)
		patch.Status = &status
	}
	u, err := h.svc.UpdateUser(r.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			util.WriteError(w, 404, "not_found", "no such user", middleware.RequestID(r.Context()))
		case errors.Is(err, service.ErrEmailTaken):
			util.WriteError(w, 409, "email_taken", err.Error(), middleware.RequestID(r.Context()))
		default:
			util.WriteError(w, 400, "update_failed", err.Error(), middleware.RequestID(r.Context()))
		}
		return
	}
	util.WriteJSON(w, 200, service.ProfileOf(u))
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.WriteError(w, 404, "not_found", "no such user", middleware.RequestID(r.Context()))
			return
		}
		util.WriteError(w, 400, "delete_failed", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, map[string]string{"status": "deleted"})
}

func (h *Handlers) setAuthCookies(w http.ResponseWriter, r *http.Request, sessionToken, csrfToken string) {
	secure := h.cfg.ResolveCookieSecure(r)
	maxAge := int(h.cfg.SessionAbsoluteDuration().Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CSRFCookieName,
		Value:    csrfToken,
		Path:     "/",
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (h *Handlers) clearAuthCookies(w http.ResponseWriter, r *http.Request) {
	secure := h.cfg.ResolveCookieSecure(r)
	expiredAt := time.Unix(1, 0).UTC()
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  expiredAt,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CSRFCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  expiredAt,
	})
}
