package handlers

import (
	"context"
	"net/http"

	"github.com/roomledger/roomledger/internal/middleware"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/sirupsen/logrus"
)

type OTPFlow interface {
	IssueChallenge(ctx context.Context, sess *models.Session, email string) error
	VerifyChallenge(ctx context.Context, sess *models.Session, code string) (*models.User, error)
}

type PasswordAuthenticator interface {
	PasswordLogin(ctx context.Context, sess *models.Session, username, password string) (*models.User, error)
}

// SessionPersister writes the request's session before the response is sent.
type SessionPersister interface {
	Persist(w http.ResponseWriter, r *http.Request) error
}

type AuthHandlers struct {
	otp      OTPFlow
	password PasswordAuthenticator
	sessions SessionPersister
	logger   *logrus.Logger
}

func NewAuthHandlers(
	otp OTPFlow,
	password PasswordAuthenticator,
	sessions SessionPersister,
	logger *logrus.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		otp:      otp,
		password: password,
		sessions: sessions,
		logger:   logger,
	}
}

const (
	actionPasswordLogin = "password_login"
	actionSendOTP       = "send_otp"
)

type LoginRequest struct {
	Action   string `json:"action"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Email    string `json:"email,omitempty"`
}

type VerifyOTPRequest struct {
	OTP string `json:"otp"`
}

type LoginResponse struct {
	Role     models.Role `json:"role"`
	Redirect string      `json:"redirect"`
}

func landingPage(role models.Role) string {
	if role == models.RoleAdministrator {
		return "/admin/dashboard"
	}
	return "/dashboard"
}

// Login handles both the password form and the request for an emailed code.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", "")
		return
	}
	sess := middleware.SessionFromContext(r.Context())

	switch req.Action {
	case actionPasswordLogin:
		user, err := h.password.PasswordLogin(r.Context(), sess, req.Username, req.Password)
		if err != nil {
			respondWithServiceError(w, h.logger, err)
			return
		}
		if !h.persist(w, r) {
			return
		}
		respondWithJSON(w, http.StatusOK, LoginResponse{Role: user.Role(), Redirect: landingPage(user.Role())})

	case actionSendOTP:
		if err := h.otp.IssueChallenge(r.Context(), sess, req.Email); err != nil {
			respondWithServiceError(w, h.logger, err)
			return
		}
		if !h.persist(w, r) {
			return
		}
		respondWithJSON(w, http.StatusOK, MessageResponse{
			Message:  "A login code was sent to your email",
			Redirect: pageVerifyOTP,
		})

	default:
		respondWithError(w, http.StatusBadRequest, "INVALID_ACTION", "Unknown login action", pageLogin)
	}
}

func (h *AuthHandlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", pageVerifyOTP)
		return
	}
	sess := middleware.SessionFromContext(r.Context())

	user, err := h.otp.VerifyChallenge(r.Context(), sess, req.OTP)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	if !h.persist(w, r) {
		return
	}

	respondWithJSON(w, http.StatusOK, LoginResponse{
		Role:     user.Role(),
		Redirect: landingPage(user.Role()),
	})
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.SessionFromContext(r.Context()).Logout()

	respondWithJSON(w, http.StatusOK, MessageResponse{
		Message:  "Logged out successfully",
		Redirect: pageLogin,
	})
}

func (h *AuthHandlers) persist(w http.ResponseWriter, r *http.Request) bool {
	if err := h.sessions.Persist(w, r); err != nil {
		h.logger.WithError(err).Error("Failed to persist session")
		respondWithError(w, http.StatusInternalServerError, "SESSION_ERROR", "Could not save your session, please try again", pageLogin)
		return false
	}
	return true
}
