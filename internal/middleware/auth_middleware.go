package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roomledger/roomledger/internal/models"
	"github.com/roomledger/roomledger/internal/repository"
	"github.com/sirupsen/logrus"
)

type UserGetter interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type AuthMiddleware struct {
	users  UserGetter
	logger *logrus.Logger
}

func NewAuthMiddleware(users UserGetter, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		users:  users,
		logger: logger,
	}
}

// RequireAuth admits requests whose session is logged in as a user who may
// still log in, and puts that user in the context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess == nil || !sess.Authenticated() {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Please log in", "/login")
			return
		}

		user, err := m.users.GetByID(r.Context(), sess.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				sess.Logout()
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Please log in", "/login")
				return
			}
			m.logger.WithError(err).WithField("user_id", sess.UserID).Error("Failed to load session user")
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong", "")
			return
		}
		if !user.CanLogin() {
			respondError(w, http.StatusForbidden, "PENDING_APPROVAL", "Your account is waiting for admin approval", "/login")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin is RequireAuth restricted to administrators.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := UserFromContext(r.Context()); user == nil || !user.IsAdmin {
			respondError(w, http.StatusForbidden, "FORBIDDEN", "Administrators only", "/dashboard")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

type errorBody struct {
	Error struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Redirect string `json:"redirect,omitempty"`
	} `json:"error"`
}

func respondError(w http.ResponseWriter, status int, code, message, redirect string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	body.Error.Redirect = redirect

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
