package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"encantar/internal/auth/models"
	"encantar/pkg/platform/httputil"
)

// Service is the auth behavior the HTTP layer depends on.
type Service interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error)
	Refresh(ctx context.Context, req *models.RefreshRequest) (*models.AuthResult, error)
	Me(ctx context.Context) (*models.AdminResponse, error)
	Logout(ctx context.Context)
	CreateInvite(ctx context.Context, req *models.CreateInviteRequest) (*models.InviteResult, error)
	ActiveInvite(ctx context.Context) (*models.InviteResult, error)
	ValidateInvite(ctx context.Context, token string) (*models.InviteValidation, error)
}

type Middleware = func(http.Handler) http.Handler

// Handler serves /api/auth and /api/invites.
type Handler struct {
	auth        Service
	logger      *slog.Logger
	requireAuth Middleware
	authLimit   Middleware
}

// New creates the auth handler. requireAuth guards the session endpoints and
// authLimit throttles login and registration; nil means no middleware.
func New(auth Service, logger *slog.Logger, requireAuth, authLimit Middleware) *Handler {
	if requireAuth == nil {
		requireAuth = passthrough
	}
	if authLimit == nil {
		authLimit = passthrough
	}
	return &Handler{auth: auth, logger: logger, requireAuth: requireAuth, authLimit: authLimit}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.With(h.authLimit).Post("/login", h.HandleLogin)
		r.With(h.authLimit).Post("/register", h.HandleRegister)
		r.Post("/refresh", h.HandleRefresh)
		r.With(h.requireAuth).Get("/me", h.HandleMe)
		r.With(h.requireAuth).Post("/logout", h.HandleLogout)
	})
	r.Route("/api/invites", func(r chi.Router) {
		r.With(h.requireAuth).Post("/", h.HandleCreateInvite)
		r.With(h.requireAuth).Get("/active", h.HandleActiveInvite)
		r.Get("/{token}", h.HandleValidateInvite)
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err, "login failed")
		return
	}
	httputil.WriteMessage(w, res, "login successful")
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.auth.Register(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err, "registration failed")
		return
	}
	httputil.WriteCreated(w, res, "admin registered")
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.auth.Refresh(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err, "token refresh failed")
		return
	}
	httputil.WriteData(w, res)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	me, err := h.auth.Me(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to load current admin")
		return
	}
	httputil.WriteData(w, me)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(r.Context())
	httputil.WriteMessage(w, nil, "logout successful")
}

func (h *Handler) HandleCreateInvite(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInviteRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.auth.CreateInvite(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err, "failed to create invite")
		return
	}
	httputil.WriteCreated(w, res, "invite created")
}

func (h *Handler) HandleActiveInvite(w http.ResponseWriter, r *http.Request) {
	res, err := h.auth.ActiveInvite(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to load active invite")
		return
	}
	// data:null is part of the contract when there is no active invite.
	httputil.WriteJSON(w, http.StatusOK, struct {
		Success bool                 `json:"success"`
		Data    *models.InviteResult `json:"data"`
	}{Success: true, Data: res})
}

func (h *Handler) HandleValidateInvite(w http.ResponseWriter, r *http.Request) {
	res, err := h.auth.ValidateInvite(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, err, "invite validation failed")
		return
	}
	httputil.WriteData(w, res)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return httputil.Decode(w, r, h.logger, dst)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	httputil.Fail(w, r, h.logger, err, msg)
}

func passthrough(next http.Handler) http.Handler { return next }
