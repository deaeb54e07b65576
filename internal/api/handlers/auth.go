package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	domainauth "github.com/matiasleandrokruk/explorer/internal/domain/auth"
	"github.com/matiasleandrokruk/explorer/internal/infra/logging"
	pkgauth "github.com/matiasleandrokruk/explorer/pkg/auth"
)

// AuthHandler handles register, login, refresh and profile.
type AuthHandler struct {
	authService domainauth.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler backed by the provided AuthService.
func NewAuthHandler(authService domainauth.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logging.OrNop(logger)}
}

// RegisterRequest is the request body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the request body for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ProfileResponse is the body of GET /auth/profile.
type ProfileResponse struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  *string    `json:"full_name"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

// Register handles POST /auth/register.
//
// Response codes:
//   - 200 OK: token pair
//   - 400 Bad Request: invalid body, failed validation, username or email taken
//   - 500 Internal Server Error: unexpected failure
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.Register(r.Context(), domainauth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		switch {
		case errors.Is(err, domainauth.ErrUsernameTaken):
			writeError(w, http.StatusBadRequest, "Username already exists")
		case errors.Is(err, domainauth.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "Email already registered")
		case errors.Is(err, domainauth.ErrInvalidUsername),
			errors.Is(err, domainauth.ErrInvalidEmail),
			errors.Is(err, domainauth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("register failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	writeJSON(w, http.StatusOK, result.Tokens)
}

// Login handles POST /auth/login.
//
// Response codes:
//   - 200 OK: token pair
//   - 400 Bad Request: invalid body or missing fields
//   - 401 Unauthorized: wrong username or password (one message for both)
//   - 500 Internal Server Error: unexpected failure
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := h.authService.Login(r.Context(), domainauth.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, domainauth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, result.Tokens)
}

// Refresh handles POST /auth/refresh: a valid refresh token buys a new pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, domainauth.ErrUserNotFound):
			writeError(w, http.StatusUnauthorized, "User not found")
		case errors.Is(err, pkgauth.ErrTokenExpired),
			errors.Is(err, pkgauth.ErrTokenType),
			errors.Is(err, pkgauth.ErrTokenInvalid):
			writeError(w, http.StatusUnauthorized, pkgauth.Message(err))
		default:
			h.logger.Error("refresh failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	writeJSON(w, http.StatusOK, result.Tokens)
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, domainauth.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}
		h.logger.Error("profile lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		LastLogin: user.LastLogin,
	})
}
