package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/roomledger/roomledger/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// TransactionDateLayout matches the datetime-local form field.
	TransactionDateLayout = "2006-01-02T15:04"
	PlanDateLayout        = "2006-01-02"
	defaultCategory       = "Other"
)

// LedgerService records rent plans, payments and transactions, and builds dashboards.
type LedgerService struct {
	users  UserStore
	ledger LedgerStore
	logger *logrus.Logger
	now    func() time.Time
	newID  func() string
}

func NewLedgerService(users UserStore, store LedgerStore, logger *logrus.Logger) *LedgerService {
	return &LedgerService{
		users:  users,
		ledger: store,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

type RentPlanInput struct {
	StartDate     string
	MonthlyAmount string
}

type PaymentInput struct {
	RoommateID string
	Amount     string
	Mode       string
}

type TransactionInput struct {
	Date        string
	Description string
	Amount      string
	Category    string
	Type        string
	Mode        string
	RoommateID  string
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return d, nil
}

func parseMode(s string) (models.PaymentMode, error) {
	mode := models.PaymentMode(s)
	if !mode.Valid() {
		return "", fmt.Errorf("%w: unknown mode of transaction %q", ErrInvalidInput, s)
	}
	return mode, nil
}

// currentPlan returns nil without error when the admin has no plan yet.
func (s *LedgerService) currentPlan(ctx context.Context, adminID string) (*models.RentPlan, error) {
	plan, err := s.ledger.GetRentPlan(ctx, adminID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return plan, err
}

// SetRentPlan creates the admin's plan or updates it in place, keeping its id
// so earlier payments still count against it.
func (s *LedgerService) SetRentPlan(ctx context.Context, adminID string, in RentPlanInput) (*models.RentPlan, error) {
	start, err := time.Parse(PlanDateLayout, strings.TrimSpace(in.StartDate))
	if err != nil {
		return nil, fmt.Errorf("%w: start date must look like %s", ErrInvalidInput, PlanDateLayout)
	}
	amount, err := parseAmount(in.MonthlyAmount)
	if err != nil {
		return nil, err
	}

	plan, err := s.currentPlan(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		plan = &models.RentPlan{ID: s.newID(), AdminID: adminID}
	}
	plan.StartDate = start
	plan.MonthlyAmount = amount
	plan.UpdatedAt = s.now().UTC()

	if err := s.ledger.PutRentPlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// payer resolves who a payment or roommate-scoped transaction belongs to. The
// admin counts as a payer of their own plan.
func (s *LedgerService) payer(ctx context.Context, adminID, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.ID == adminID {
		return user, nil
	}
	if user.AdminID != adminID {
		return nil, ErrForbidden
	}
	if !user.IsApproved {
		return nil, ErrPendingApproval
	}
	return user, nil
}

// RecordPayment stores a rent payment against the admin's current plan.
func (s *LedgerService) RecordPayment(ctx context.Context, adminID string, in PaymentInput) (*models.Payment, error) {
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	mode, err := parseMode(in.Mode)
	if err != nil {
		return nil, err
	}

	plan, err := s.currentPlan(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrNoRentPlan
	}
	roommate, err := s.payer(ctx, adminID, in.RoommateID)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:         s.newID(),
		AdminID:    adminID,
		RoommateID: roommate.ID,
		RentPlanID: plan.ID,
		AmountPaid: amount,
		Mode:       mode,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.ledger.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"admin_id":    adminID,
		"roommate_id": roommate.ID,
		"amount":      amount.String(),
	}).Info("Payment recorded")
	return payment, nil
}

// RecordTransaction stores an income or expense entry.
func (s *LedgerService) RecordTransaction(ctx context.Context, adminID string, in TransactionInput) (*models.Transaction, error) {
	date, err := time.Parse(TransactionDateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		return nil, fmt.Errorf("%w: date must look like %s", ErrInvalidInput, TransactionDateLayout)
	}
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	typ := models.TransactionType(in.Type)
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: transaction type must be Income or Expense", ErrInvalidInput)
	}
	mode, err := parseMode(in.Mode)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = defaultCategory
	}

	txn := &models.Transaction{
		ID:          s.newID(),
		AdminID:     adminID,
		Date:        date,
		Description: description,
		Amount:      amount,
		Category:    category,
		Type:        typ,
		Mode:        mode,
		CreatedAt:   s.now().UTC(),
	}

	if in.RoommateID != "" {
		plan, err := s.currentPlan(ctx, adminID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, ErrNoRentPlan
		}
		roommate, err := s.payer(ctx, adminID, in.RoommateID)
		if err != nil {
			return nil, err
		}
		txn.RoommateID = roommate.ID
		txn.RentPlanID = plan.ID
	}

	if err := s.ledger.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

type AdminDashboard struct {
	Plan         *models.RentPlan         `json:"rent_plan"`
	Summary      ledger.Summary           `json:"summary"`
	Balances     []ledger.RoommateBalance `json:"balances"`
	Transactions []models.Transaction     `json:"transactions"`
	Payments     []models.Payment         `json:"payments"`
}

// AdminDashboard aggregates everything under adminID. Balances list the admin first.
func (s *LedgerService) AdminDashboard(ctx context.Context, adminID string) (*AdminDashboard, error) {
	admin, err := s.users.GetByID(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	plan, err := s.currentPlan(ctx, adminID)
	if err != nil {
		return nil, err
	}
	roommates, err := s.users.ListRoommates(ctx, adminID)
	if err != nil {
		return nil, err
	}
	approved := approvedOnly(roommates)
	txns, err := s.ledger.ListTransactions(ctx, adminID)
	if err != nil {
		return nil, err
	}
	payments, err := s.ledger.ListPayments(ctx, adminID)
	if err != nil {
		return nil, err
	}

	payers := append([]models.User{*admin}, approved...)
	return &AdminDashboard{
		Plan: plan,
		Summary: ledger.Summarize(ledger.Input{
			Transactions:      txns,
			Payments:          payments,
			Plan:              plan,
			ApprovedRoommates: len(approved),
		}),
		Balances:     ledger.Balances(plan, payers, payments),
		Transactions: txns,
		Payments:     payments,
	}, nil
}

type MemberDashboard struct {
	Plan     *models.RentPlan       `json:"rent_plan"`
	Balance  ledger.RoommateBalance `json:"balance"`
	Payments []models.Payment       `json:"payments"`
}

// MemberDashboard shows a roommate their own standing against the current plan.
func (s *LedgerService) MemberDashboard(ctx context.Context, user *models.User) (*MemberDashboard, error) {
	adminID := user.AdminID
	if user.IsAdmin {
		adminID = user.ID
	}
	plan, err := s.currentPlan(ctx, adminID)
	if err != nil {
		return nil, err
	}
	all, err := s.ledger.ListPayments(ctx, adminID)
	if err != nil {
		return nil, err
	}

	own := make([]models.Payment, 0)
	for _, p := range all {
		if p.RoommateID == user.ID {
			own = append(own, p)
		}
	}
	return &MemberDashboard{
		Plan:     plan,
		Balance:  ledger.Balance(plan, *user, own),
		Payments: own,
	}, nil
}
