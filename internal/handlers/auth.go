package handlers

import (
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/crucial707/meddevice/internal/middleware"
	"github.com/crucial707/meddevice/internal/models"
	"github.com/crucial707/meddevice/internal/repo"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	UserRepo *repo.UserRepo
	Secret   []byte
	// TokenTTL defaults to 24h.
	TokenTTL time.Duration
}

func (h *AuthHandler) issueToken(u *models.User) (string, error) {
	ttl := h.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return middleware.NewToken(h.Secret, middleware.Claims{
		UserID:       u.ID,
		Username:     u.Username,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
	}, ttl)
}

// ==========================
// Login: 401 for bad credentials, 403 for a locked account
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.Username == "" || input.Password == "" {
		JSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	user, err := h.UserRepo.GetByUsername(r.Context(), input.Username)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if user == nil || user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		JSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !user.Active {
		JSONError(w, "account_locked", http.StatusForbidden)
		return
	}

	signed, err := h.issueToken(user)
	if err != nil {
		JSONError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": signed,
		"user":  user,
	})
}

// ==========================
// Me: the current user, re-read so a locked account is noticed
// ==========================
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserRepo.GetByID(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if user == nil {
		JSONError(w, "invalid_user", http.StatusUnauthorized)
		return
	}
	if !user.Active {
		JSONError(w, "account_locked", http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
