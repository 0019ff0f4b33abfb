// internal/handlers/server.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/heartboard/server/internal/auth"
	"github.com/heartboard/server/internal/middleware"
	"github.com/heartboard/server/internal/models"
	"github.com/heartboard/server/internal/room"
	"github.com/sirupsen/logrus"
)

// Accounts is the user store behind the account endpoints.
type Accounts interface {
	CreateUser(ctx context.Context, u *models.User) error
	AuthenticateUser(ctx context.Context, email, password string) (*models.User, error)
}

// Server wires the engine, identity and account store to HTTP.
type Server struct {
	Engine *room.Engine
	Issuer *auth.Issuer
	// Accounts may be nil, in which case guests are not persisted and the account
	// endpoints answer 503.
	Accounts Accounts
	// Debug exposes GET /rooms/{code}.
	Debug bool

	logger *logrus.Logger
	hub    *Hub
}

func NewServer(engine *room.Engine, issuer *auth.Issuer, accounts Accounts, logger *logrus.Logger) *Server {
	return &Server{
		Engine:   engine,
		Issuer:   issuer,
		Accounts: accounts,
		logger:   logger,
		hub:      NewHub(logger),
	}
}

// Hub returns the connection registry.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Routes builds the HTTP mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(s.logger)

	mux.HandleFunc("GET /health", s.HealthHandler)
	mux.Handle("POST /user/create", logged(http.HandlerFunc(s.CreateUserHandler)))
	mux.Handle("POST /user/login", logged(http.HandlerFunc(s.LoginHandler)))
	mux.Handle("POST /user/guest", logged(http.HandlerFunc(s.GuestHandler)))
	mux.Handle("GET /ws", logged(http.HandlerFunc(s.RoomWSHandler)))
	if s.Debug {
		mux.Handle("GET /rooms/{code}", logged(http.HandlerFunc(s.RoomSnapshotHandler)))
	}
	return mux
}

// EnsureIdentity resolves the caller from its token. Callers without a valid token get a
// fresh guest identity and an auth cookie. A name query parameter renames the player.
func (s *Server) EnsureIdentity(w http.ResponseWriter, r *http.Request) (room.Identity, error) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	if tok := tokenFromRequest(r); tok != "" {
		claims, err := s.Issuer.Verify(tok)
		if err == nil {
			id := room.Identity{UserID: claims.UserID(), Name: claims.Name, Email: claims.Email}
			if name != "" {
				id.Name = name
			}
			return id, nil
		}
		s.logger.WithError(err).Debug("discarding invalid token")
	}

	guest := models.User{ID: uuid.New(), Username: name, IsEphemeral: true}
	if guest.Username == "" {
		guest.Username = "Guest-" + guest.ID.String()[:4]
	}
	if s.Accounts != nil {
		if err := s.Accounts.CreateUser(r.Context(), &guest); err != nil {
			return room.Identity{}, fmt.Errorf("failed to create ephemeral user: %w", err)
		}
	}
	if err := s.setSession(w, &guest); err != nil {
		return room.Identity{}, err
	}
	return room.Identity{UserID: guest.ID.String(), Name: guest.Username}, nil
}

// setSession issues a token for u and sets it as the auth cookie.
func (s *Server) setSession(w http.ResponseWriter, u *models.User) error {
	tok, err := s.Issuer.Issue(u.ID.String(), u.Username, u.Email, u.IsEphemeral)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookie,
		Value:    tok,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
