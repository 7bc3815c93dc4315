package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/roomledger/roomledger/internal/middleware"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/roomledger/roomledger/internal/service"
	"github.com/sirupsen/logrus"
)

type AccountManager interface {
	ListRooms(ctx context.Context) ([]models.RoomListing, error)
	RegisterAdmin(ctx context.Context, reg service.AdminRegistration) (*models.User, *models.Room, error)
	RegisterRoommate(ctx context.Context, reg service.RoommateRegistration) (*models.User, error)
	PendingRoommates(ctx context.Context, adminID string) ([]models.User, error)
	Approve(ctx context.Context, adminID, roommateID string) error
	Reject(ctx context.Context, adminID, roommateID string) error
}

type AccountHandlers struct {
	accounts AccountManager
	logger   *logrus.Logger
}

func NewAccountHandlers(accounts AccountManager, logger *logrus.Logger) *AccountHandlers {
	return &AccountHandlers{
		accounts: accounts,
		logger:   logger,
	}
}

type RegisterAdminRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoomName string `json:"room_name"`
	Capacity int    `json:"capacity"`
}

type RegisterRoommateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoomID   string `json:"room_id"`
}

type RegisterAdminResponse struct {
	User     *models.User `json:"user"`
	Room     *models.Room `json:"room"`
	Redirect string       `json:"redirect"`
}

type RegisterRoommateResponse struct {
	User    *models.User `json:"user"`
	Message string       `json:"message"`
}

func (h *AccountHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.accounts.ListRooms(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rooms)
}

func (h *AccountHandlers) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req RegisterAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", pageRegister)
		return
	}

	admin, room, err := h.accounts.RegisterAdmin(r.Context(), service.AdminRegistration{
		Credentials: service.Credentials{Username: req.Username, Email: req.Email, Password: req.Password},
		RoomName:    req.RoomName,
		Capacity:    req.Capacity,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, RegisterAdminResponse{User: admin, Room: room, Redirect: pageLogin})
}

func (h *AccountHandlers) RegisterRoommate(w http.ResponseWriter, r *http.Request) {
	var req RegisterRoommateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", pageRegister)
		return
	}

	roommate, err := h.accounts.RegisterRoommate(r.Context(), service.RoommateRegistration{
		Credentials: service.Credentials{Username: req.Username, Email: req.Email, Password: req.Password},
		RoomID:      req.RoomID,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, RegisterRoommateResponse{
		User:    roommate,
		Message: "Registration received. You can log in once your admin approves you",
	})
}

func (h *AccountHandlers) PendingRoommates(w http.ResponseWriter, r *http.Request) {
	admin := middleware.UserFromContext(r.Context())

	pending, err := h.accounts.PendingRoommates(r.Context(), admin.ID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, pending)
}

func (h *AccountHandlers) Approve(w http.ResponseWriter, r *http.Request) {
	admin := middleware.UserFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.accounts.Approve(r.Context(), admin.ID, id); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Roommate approved"})
}

func (h *AccountHandlers) Reject(w http.ResponseWriter, r *http.Request) {
	admin := middleware.UserFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.accounts.Reject(r.Context(), admin.ID, id); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Roommate rejected"})
}
