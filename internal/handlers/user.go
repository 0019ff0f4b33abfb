package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/heartboard/server/internal/database"
	"github.com/heartboard/server/internal/models"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Guest    bool   `json:"guest"`
	Elo      int    `json:"elo,omitempty"`
}

func toResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID.String(), Username: u.Username, Email: u.Email, Guest: u.IsEphemeral, Elo: u.Elo}
}

// CreateUserHandler registers an account and logs it in.
func (s *Server) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	if s.Accounts == nil {
		http.Error(w, "accounts are not available", http.StatusServiceUnavailable)
		return
	}
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		req.Username = strings.SplitN(req.Email, "@", 2)[0]
	}

	user := models.User{Email: req.Email, Password: req.Password, Username: req.Username}
	err := s.Accounts.CreateUser(r.Context(), &user)
	if errors.Is(err, database.ErrEmailTaken) {
		http.Error(w, "email already registered", http.StatusConflict)
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("create user failed")
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}
	if err := s.setSession(w, &user); err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(&user))
}

// LoginHandler checks credentials and sets the auth cookie.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if s.Accounts == nil {
		http.Error(w, "accounts are not available", http.StatusServiceUnavailable)
		return
	}
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	user, err := s.Accounts.AuthenticateUser(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)), req.Password)
	if errors.Is(err, database.ErrInvalidCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("login failed")
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	if err := s.setSession(w, user); err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(user))
}

// GuestHandler returns the caller's identity, issuing a guest one if needed.
func (s *Server) GuestHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.EnsureIdentity(w, r)
	if err != nil {
		s.logger.WithError(err).Error("guest identity failed")
		http.Error(w, "failed to create guest", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: id.UserID, Username: id.Name, Email: id.Email, Guest: id.Email == ""})
}
