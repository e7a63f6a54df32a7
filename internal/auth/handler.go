// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/poin-lunak/internal/config"
	"github.com/carterperez-dev/poin-lunak/internal/core"
	"github.com/carterperez-dev/poin-lunak/internal/middleware"
)

type Handler struct {
	service   *Service
	cookie    config.AuthConfig
	validator *validator.Validate
}

func NewHandler(service *Service, cookie config.AuthConfig) *Handler {
	return &Handler{
		service:   service,
		cookie:    cookie,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Post("/refresh", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.GetMe)
			r.Post("/logout", h.Logout)
			r.Post("/logout-all", h.LogoutAll)
			r.Get("/sessions", h.GetSessions)
			r.Delete("/sessions/{sessionID}", h.RevokeSession)
			r.Post("/change-password", h.ChangePassword)
		})
	})
}

// fail renders a session workflow error. Token failures keep their own
// codes so clients can tell "log in again" from "retry".
func fail(w http.ResponseWriter, err error, resource string) {
	var out error
	switch {
	case errors.Is(err, ErrTokenReuse):
		out = core.NewAppError(
			core.ErrTokenRevoked,
			"security alert: token reuse detected, all sessions revoked",
			http.StatusUnauthorized,
			"TOKEN_REUSE_DETECTED",
		)
	case errors.Is(err, ErrInvalidCredentials):
		out = core.UnauthorizedError("invalid email or password")
	case errors.Is(err, ErrEmailExists):
		out = core.DuplicateError("email")
	case errors.Is(err, core.ErrTokenExpired):
		out = core.TokenExpiredError()
	case errors.Is(err, core.ErrTokenRevoked):
		out = core.TokenRevokedError()
	case errors.Is(err, core.ErrTokenInvalid):
		out = core.TokenInvalidError()
	default:
		out = core.MapDomainError(err, resource)
	}
	core.JSONError(w, out)
}

func (h *Handler) writeSessionCookie(w http.ResponseWriter, value string, expires time.Time, maxAge int) {
	if h.cookie.CookieName == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// issue mirrors the access token into an HttpOnly cookie for browser
// clients and writes the token pair.
func (h *Handler) issue(w http.ResponseWriter, status int, resp *AuthResponse) {
	h.writeSessionCookie(w, resp.Tokens.AccessToken, resp.Tokens.ExpiresAt, resp.Tokens.ExpiresIn)
	core.JSON(w, status, core.Response{Success: true, Data: resp})
}

func (h *Handler) endSession(w http.ResponseWriter) {
	h.writeSessionCookie(w, "", time.Unix(0, 0), -1)
	core.NoContent(w)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !core.Bind(w, r, h.validator, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req, r.UserAgent(), middleware.ClientIP(r))
	if err != nil {
		fail(w, err, "user")
		return
	}
	h.issue(w, http.StatusOK, resp)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !core.Bind(w, r, h.validator, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), req, r.UserAgent(), middleware.ClientIP(r))
	if err != nil {
		fail(w, err, "user")
		return
	}
	h.issue(w, http.StatusCreated, resp)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !core.Bind(w, r, h.validator, &req) {
		return
	}

	resp, err := h.service.Refresh(r.Context(), req.RefreshToken, r.UserAgent(), middleware.ClientIP(r))
	if err != nil {
		fail(w, err, "session")
		return
	}
	h.issue(w, http.StatusOK, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		core.Unauthorized(w, "")
		return
	}

	var req LogoutRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			core.BadRequest(w, "invalid request body")
			return
		}
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken, claims); err != nil {
		fail(w, err, "session")
		return
	}
	h.endSession(w)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.LogoutAll(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		fail(w, err, "session")
		return
	}
	h.endSession(w)
}

func (h *Handler) GetSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.GetActiveSessions(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		fail(w, err, "session")
		return
	}
	core.OK(w, SessionsResponse{Sessions: sessions})
}

func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	err := h.service.RevokeSession(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "sessionID"),
	)
	if err != nil {
		fail(w, err, "session")
		return
	}
	core.NoContent(w)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !core.Bind(w, r, h.validator, &req) {
		return
	}

	userID := middleware.GetUserID(r.Context())
	err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, ErrInvalidCredentials) {
		core.Unauthorized(w, "current password is incorrect")
		return
	}
	if err != nil {
		fail(w, err, "user")
		return
	}
	h.endSession(w)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetCurrentUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		fail(w, err, "user")
		return
	}
	core.OK(w, user)
}
