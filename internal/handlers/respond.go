package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roomledger/roomledger/internal/service"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

type MessageResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, code, message, redirect string) {
	respondWithJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:     code,
			Message:  message,
			Redirect: redirect,
		},
	})
}

// Entry points a client is sent back to after a failed step.
const (
	pageLogin     = "/login"
	pageVerifyOTP = "/verify-otp"
	pageRegister  = "/register"
)

type errorMapping struct {
	status   int
	code     string
	message  string
	redirect string
}

var serviceErrors = []struct {
	err error
	errorMapping
}{
	{service.ErrUserNotFound, errorMapping{http.StatusNotFound, "USER_NOT_FOUND", "No account uses that email", pageLogin}},
	{service.ErrAmbiguousIdentity, errorMapping{http.StatusConflict, "AMBIGUOUS_IDENTITY", "More than one account uses that email. Log in with your username and password instead", pageLogin}},
	{service.ErrChallengeMissing, errorMapping{http.StatusBadRequest, "CHALLENGE_MISSING", "No login code is pending. Request a new one", pageLogin}},
	{service.ErrChallengeCorrupt, errorMapping{http.StatusBadRequest, "CHALLENGE_CORRUPT", "Your login code could not be read. Request a new one", pageLogin}},
	{service.ErrChallengeExpired, errorMapping{http.StatusUnauthorized, "CHALLENGE_EXPIRED", "Your login code has expired. Request a new one", pageLogin}},
	{service.ErrChallengeMismatch, errorMapping{http.StatusUnauthorized, "CHALLENGE_MISMATCH", "Invalid login code", pageVerifyOTP}},
	{service.ErrChallengeRejected, errorMapping{http.StatusTooManyRequests, "CHALLENGE_REJECTED", "Too many wrong codes. Request a new one", pageLogin}},
	{service.ErrPendingApproval, errorMapping{http.StatusForbidden, "PENDING_APPROVAL", "Your account is waiting for admin approval", pageLogin}},
	{service.ErrDeliveryFailed, errorMapping{http.StatusBadGateway, "DELIVERY_FAILED", "We could not send your login code. Try again later", pageLogin}},
	{service.ErrInvalidCredentials, errorMapping{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", pageLogin}},
	{service.ErrUsernameTaken, errorMapping{http.StatusConflict, "USERNAME_TAKEN", "That username is already taken", pageRegister}},
	{service.ErrRoomFull, errorMapping{http.StatusConflict, "ROOM_FULL", "This room has no vacancies", pageRegister}},
	{service.ErrRoomNotFound, errorMapping{http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found", pageRegister}},
	{service.ErrNoRentPlan, errorMapping{http.StatusConflict, "NO_RENT_PLAN", "Set up a rent plan first", ""}},
	{service.ErrForbidden, errorMapping{http.StatusForbidden, "FORBIDDEN", "You cannot manage that roommate", ""}},
}

// respondWithServiceError maps service outcomes to the error envelope. Input
// errors carry their own message; anything unrecognised is logged as a 500.
func respondWithServiceError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	if errors.Is(err, service.ErrInvalidInput) {
		respondWithError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error(), "")
		return
	}
	for _, e := range serviceErrors {
		if errors.Is(err, e.err) {
			respondWithError(w, e.status, e.code, e.message, e.redirect)
			return
		}
	}
	logger.WithError(err).Error("Request failed")
	respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong", "")
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
