package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/roomledger/roomledger/internal/middleware"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/roomledger/roomledger/internal/service"
	"github.com/sirupsen/logrus"
)

type LedgerManager interface {
	SetRentPlan(ctx context.Context, adminID string, in service.RentPlanInput) (*models.RentPlan, error)
	RecordPayment(ctx context.Context, adminID string, in service.PaymentInput) (*models.Payment, error)
	RecordTransaction(ctx context.Context, adminID string, in service.TransactionInput) (*models.Transaction, error)
	AdminDashboard(ctx context.Context, adminID string) (*service.AdminDashboard, error)
	MemberDashboard(ctx context.Context, user *models.User) (*service.MemberDashboard, error)
}

type LedgerHandlers struct {
	ledger LedgerManager
	logger *logrus.Logger
}

func NewLedgerHandlers(ledger LedgerManager, logger *logrus.Logger) *LedgerHandlers {
	return &LedgerHandlers{
		ledger: ledger,
		logger: logger,
	}
}

// Amounts are accepted as JSON numbers or numeric strings.
type RentPlanRequest struct {
	StartDate     string      `json:"start_date"`
	MonthlyAmount json.Number `json:"monthly_amount"`
}

type PaymentRequest struct {
	RoommateID string      `json:"roommate_id"`
	Amount     json.Number `json:"amount_paid"`
	Mode       string      `json:"mode_of_transaction"`
}

type TransactionRequest struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Type        string      `json:"transaction_type"`
	Mode        string      `json:"mode_of_transaction"`
	RoommateID  string      `json:"roommate_id,omitempty"`
}

func (h *LedgerHandlers) invalidBody(w http.ResponseWriter) {
	respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", "")
}

func (h *LedgerHandlers) SetRentPlan(w http.ResponseWriter, r *http.Request) {
	var req RentPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		h.invalidBody(w)
		return
	}
	admin := middleware.UserFromContext(r.Context())

	plan, err := h.ledger.SetRentPlan(r.Context(), admin.ID, service.RentPlanInput{
		StartDate:     req.StartDate,
		MonthlyAmount: req.MonthlyAmount.String(),
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, plan)
}

func (h *LedgerHandlers) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.invalidBody(w)
		return
	}
	admin := middleware.UserFromContext(r.Context())

	payment, err := h.ledger.RecordPayment(r.Context(), admin.ID, service.PaymentInput{
		RoommateID: req.RoommateID,
		Amount:     req.Amount.String(),
		Mode:       req.Mode,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, payment)
}

func (h *LedgerHandlers) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.invalidBody(w)
		return
	}
	admin := middleware.UserFromContext(r.Context())

	txn, err := h.ledger.RecordTransaction(r.Context(), admin.ID, service.TransactionInput{
		Date:        req.Date,
		Description: req.Description,
		Amount:      req.Amount.String(),
		Category:    req.Category,
		Type:        req.Type,
		Mode:        req.Mode,
		RoommateID:  req.RoommateID,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, txn)
}

func (h *LedgerHandlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	admin := middleware.UserFromContext(r.Context())

	dashboard, err := h.ledger.AdminDashboard(r.Context(), admin.ID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dashboard)
}

func (h *LedgerHandlers) MemberDashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	dashboard, err := h.ledger.MemberDashboard(r.Context(), user)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dashboard)
}
