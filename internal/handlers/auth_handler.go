package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/debriefhub/debriefhub/internal/services"
	"github.com/debriefhub/debriefhub/internal/utils"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if err := h.auth.Register(r.Context(), req.Email, req.Name, req.Password); err != nil {
		if errors.Is(err, services.ErrEmailExists) {
			respondError(w, http.StatusConflict, "email already exists")
			return
		}
		if errors.Is(err, utils.ErrPasswordTooShort) {
			respondError(w, http.StatusBadRequest, utils.ErrPasswordTooShort.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt,
		"user_id":    resp.UserID,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := h.auth.Logout(r.Context(), token); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := h.auth.LogoutAll(r.Context(), token); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out everywhere"})
}
