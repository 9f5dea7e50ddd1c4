package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestordeclinica/backend/internal/auth"
	"github.com/gestordeclinica/backend/internal/repo"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

type UserInfo struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	FullName       string  `json:"full_name"`
	Role           string  `json:"role"`
	ProfessionalID *string `json:"professional_id,omitempty"`
}

func userInfo(u *repo.User) UserInfo {
	info := UserInfo{ID: u.ID.String(), Email: u.Email, FullName: u.FullName, Role: u.Role}
	if u.ProfessionalID != nil {
		s := u.ProfessionalID.String()
		info.ProfessionalID = &s
	}
	return info
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}
	u, err := h.Users.ByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			h.Log.Error("login lookup", zap.Error(err))
		}
		genericLoginError(w)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		genericLoginError(w)
		return
	}
	info := userInfo(u)
	ttl := h.Cfg.JWTTTL()
	tok, err := auth.BuildJWT(h.Cfg.JWTSecret, info.ID, u.Role, info.ProfessionalID, ttl)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	uid := u.ID
	h.audit(r.Context(), repo.AuditEvent{Action: "LOGIN", ActorID: &uid})
	writeJSON(w, http.StatusOK, LoginResponse{Token: tok, ExpiresAt: h.clock().Add(ttl).UTC(), User: info})
}

// Mesma resposta para e-mail inexistente e senha errada.
func genericLoginError(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "invalid credentials")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(auth.UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	u, err := h.Users.ByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "user not found")
			return
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userInfo(u))
}
