// Package ledger derives household totals from stored transactions and payments.
// Everything here is pure: no I/O, no clock.
package ledger

import (
	"github.com/roomledger/roomledger/internal/models"
	"github.com/shopspring/decimal"
)

// Input is what a dashboard has fetched for one admin.
type Input struct {
	Transactions []models.Transaction
	Payments     []models.Payment
	// Plan is nil when the admin has not set up rent yet.
	Plan *models.RentPlan
	// ApprovedRoommates excludes the admin; the admin is added as a payer.
	ApprovedRoommates int
}

type Summary struct {
	TotalIncome     decimal.Decimal `json:"total_income"`
	TotalExpense    decimal.Decimal `json:"total_expense"`
	AdjustedExpense decimal.Decimal `json:"adjusted_expense"`
	Payers          int             `json:"payers"`
	ExpectedRent    decimal.Decimal `json:"expected_rent"`
	RentCollected   decimal.Decimal `json:"rent_collected"`
	Draft           decimal.Decimal `json:"draft"`
	Savings         decimal.Decimal `json:"savings"`
}

// Payers is the number of people splitting rent: approved roommates plus the admin.
func Payers(approvedRoommates int) int {
	if approvedRoommates < 0 {
		approvedRoommates = 0
	}
	return approvedRoommates + 1
}

// Totals sums income and expense separately.
func Totals(txns []models.Transaction) (income, expense decimal.Decimal) {
	income, expense = decimal.Zero, decimal.Zero
	for _, t := range txns {
		switch t.Type {
		case models.TransactionIncome:
			income = income.Add(t.Amount)
		case models.TransactionExpense:
			expense = expense.Add(t.Amount)
		}
	}
	return income, expense
}

// AdjustedExpense is expense net of income, floored at zero.
func AdjustedExpense(income, expense decimal.Decimal) decimal.Decimal {
	return clampZero(expense.Sub(income))
}

// ExpectedRent is zero without a plan.
func ExpectedRent(plan *models.RentPlan, payers int) decimal.Decimal {
	if plan == nil {
		return decimal.Zero
	}
	return plan.MonthlyAmount.Mul(decimal.NewFromInt(int64(payers)))
}

// RentCollected sums payments made against plan. Payments for other plans are ignored.
func RentCollected(plan *models.RentPlan, payments []models.Payment) decimal.Decimal {
	total := decimal.Zero
	if plan == nil {
		return total
	}
	for _, p := range payments {
		if p.RentPlanID == plan.ID {
			total = total.Add(p.AmountPaid)
		}
	}
	return total
}

// Summarize computes every dashboard figure. Draft is not clamped and goes
// negative on over-collection; savings is floored at zero.
func Summarize(in Input) Summary {
	income, expense := Totals(in.Transactions)
	adjusted := AdjustedExpense(income, expense)
	payers := Payers(in.ApprovedRoommates)
	expected := ExpectedRent(in.Plan, payers)
	collected := RentCollected(in.Plan, in.Payments)

	return Summary{
		TotalIncome:     income,
		TotalExpense:    expense,
		AdjustedExpense: adjusted,
		Payers:          payers,
		ExpectedRent:    expected,
		RentCollected:   collected,
		Draft:           expected.Sub(collected),
		Savings:         clampZero(collected.Sub(adjusted)),
	}
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
