package accounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/webstore/webstore/internal/platform/httpx"
	"github.com/webstore/webstore/internal/token"
)

const sessionCookieName = "token"

// Handler wires HTTP endpoints for the account lifecycle.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/activate-account", h.handleActivate)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/request-recovery", h.handleRequestRecovery)
	r.Post("/recovery", h.handleRecovery)
}

// MountAdminRoutes registers account management routes. The caller is
// responsible for gating them behind the admin middleware.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.handleList)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.service.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		h.logger.Warn("register", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"msg": "User successfully created."})
}

type activateRequest struct {
	ActivationToken string `json:"activationToken"`
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.service.Activate(r.Context(), req.ActivationToken); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"msg": "Your account's been activated. Now you can proceed to log in.",
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	attachSessionCookie(w, session)
	httpx.JSON(w, http.StatusOK, map[string]string{
		"token": session,
		"msg":   "Login successful.",
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Stateless tokens: logout just tells the client to drop its cookie.
	clearSessionCookie(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"msg": "Logged out successfully."})
}

type recoveryRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleRequestRecovery(w http.ResponseWriter, r *http.Request) {
	var req recoveryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.service.RequestRecovery(r.Context(), req.Email); err != nil {
		httpx.RespondError(w, err)
		return
	}
	// Identical response whether or not the email exists.
	httpx.JSON(w, http.StatusOK, map[string]string{
		"msg": "Recovery email sent. It expires in 10 minutes.",
	})
}

type completeRecoveryRequest struct {
	RecoveryToken      string `json:"recoveryToken"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

func (h *Handler) handleRecovery(w http.ResponseWriter, r *http.Request) {
	var req completeRecoveryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.service.CompleteRecovery(r.Context(), req.RecoveryToken, req.NewPassword, req.ConfirmNewPassword); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"msg": "Password changed successfully."})
}

type accountView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	State    string `json:"state"`
	Role     string `json:"role"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	accts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]accountView, 0, len(accts))
	for _, acct := range accts {
		views = append(views, accountView{
			ID:       acct.ID,
			Username: acct.Username,
			Email:    acct.Email,
			State:    acct.State,
			Role:     acct.Role,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": views})
}

func attachSessionCookie(w http.ResponseWriter, session string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session,
		Path:     "/",
		MaxAge:   int(token.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
