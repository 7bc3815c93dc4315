package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "Income"
	TransactionExpense TransactionType = "Expense"
)

func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

type PaymentMode string

const (
	ModeCash         PaymentMode = "Cash"
	ModeBankTransfer PaymentMode = "Bank transfer"
	ModePhonePe      PaymentMode = "PhonePe"
	ModeGpay         PaymentMode = "Gpay"
	ModePaytm        PaymentMode = "Paytm"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case ModeCash, ModeBankTransfer, ModePhonePe, ModeGpay, ModePaytm:
		return true
	}
	return false
}

// RentPlan is the admin's shared monthly rent. One plan per admin.
// Decimal fields are written by the repository as number attributes.
type RentPlan struct {
	ID            string          `json:"id" dynamodbav:"id"`
	AdminID       string          `json:"admin_id" dynamodbav:"admin_id"`
	StartDate     time.Time       `json:"start_date" dynamodbav:"start_date"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount" dynamodbav:"-"`
	UpdatedAt     time.Time       `json:"updated_at" dynamodbav:"updated_at"`
}

func (p *RentPlan) GetPK() string {
	return "ADMIN#" + p.AdminID
}

func (p *RentPlan) GetSK() string {
	return "RENTPLAN"
}

// Payment is a rent payment by a roommate against a plan. CreatedAt is immutable.
type Payment struct {
	ID         string          `json:"id" dynamodbav:"id"`
	AdminID    string          `json:"admin_id" dynamodbav:"admin_id"`
	RoommateID string          `json:"roommate_id" dynamodbav:"roommate_id"`
	RentPlanID string          `json:"rent_plan_id" dynamodbav:"rent_plan_id"`
	AmountPaid decimal.Decimal `json:"amount_paid" dynamodbav:"-"`
	Mode       PaymentMode     `json:"mode_of_transaction" dynamodbav:"mode_of_transaction"`
	CreatedAt  time.Time       `json:"created_at" dynamodbav:"created_at"`
}

func (p *Payment) GetPK() string {
	return "ADMIN#" + p.AdminID
}

func (p *Payment) GetSK() string {
	return "PAYMENT#" + p.CreatedAt.UTC().Format(time.RFC3339Nano) + "#" + p.ID
}

// Transaction is an ad-hoc income or expense. Amount is stored non-negative;
// the sign comes from Type.
type Transaction struct {
	ID          string          `json:"id" dynamodbav:"id"`
	AdminID     string          `json:"admin_id" dynamodbav:"admin_id"`
	RoommateID  string          `json:"roommate_id,omitempty" dynamodbav:"roommate_id,omitempty"`
	RentPlanID  string          `json:"rent_plan_id,omitempty" dynamodbav:"rent_plan_id,omitempty"`
	Date        time.Time       `json:"date" dynamodbav:"date"`
	Description string          `json:"description" dynamodbav:"description"`
	Amount      decimal.Decimal `json:"amount" dynamodbav:"-"`
	Category    string          `json:"category" dynamodbav:"category"`
	Type        TransactionType `json:"transaction_type" dynamodbav:"transaction_type"`
	Mode        PaymentMode     `json:"mode_of_transaction" dynamodbav:"mode_of_transaction"`
	CreatedAt   time.Time       `json:"created_at" dynamodbav:"created_at"`
}

func (t *Transaction) GetPK() string {
	return "ADMIN#" + t.AdminID
}

func (t *Transaction) GetSK() string {
	return "TXN#" + t.Date.UTC().Format(time.RFC3339) + "#" + t.ID
}
