package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/roomledger/roomledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	svc    *LedgerService
	users  *memUsers
	ledger *memLedger
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		users: newMemUsers(
			adminUser,
			approvedMember,
			pendingMember,
			models.User{ID: "u3", Username: "carl", Email: "c@x.com", AdminID: "admin", IsApproved: true},
			models.User{ID: "stranger", Username: "zed", Email: "z@x.com", AdminID: "other-admin", IsApproved: true},
		),
		ledger: newMemLedger(),
	}
	f.svc = NewLedgerService(f.users, f.ledger, quietLogger())
	f.svc.now = func() time.Time { return time.Date(2025, 2, 18, 21, 30, 0, 0, time.UTC) }
	n := 0
	f.svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSetRentPlan_KeepsID(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	first, err := f.svc.SetRentPlan(ctx, "admin", RentPlanInput{StartDate: "2025-02-01", MonthlyAmount: "1000"})
	require.NoError(t, err)

	second, err := f.svc.SetRentPlan(ctx, "admin", RentPlanInput{StartDate: "2025-03-01", MonthlyAmount: "1200.50"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.MonthlyAmount.Equal(dec("1200.50")))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), second.StartDate)
}

func TestSetRentPlan_Invalid(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetRentPlan(ctx, "admin", RentPlanInput{StartDate: "01/02/2025", MonthlyAmount: "1000"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.SetRentPlan(ctx, "admin", RentPlanInput{StartDate: "2025-02-01", MonthlyAmount: "-5"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.SetRentPlan(ctx, "admin", RentPlanInput{StartDate: "2025-02-01", MonthlyAmount: "lots"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecordPayment(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, "admin", PaymentInput{RoommateID: "u1", Amount: "100", Mode: "Cash"})
	assert.ErrorIs(t, err, ErrNoRentPlan)

	plan, err := f.svc.SetRentPlan(ctx, "admin", RentPlanInput{StartDate: "2025-02-01", MonthlyAmount: "1000"})
	require.NoError(t, err)

	p, err := f.svc.RecordPayment(ctx, "admin", PaymentInput{RoommateID: "u1", Amount: "400", Mode: "Gpay"})
	require.NoError(t, err)
	assert.Equal(t, plan.ID, p.RentPlanID)
	assert.Equal(t, models.ModeGpay, p.Mode)
	assert.Len(t, f.ledger.payments, 1)

	_, err = f.svc.RecordPayment(ctx, "admin", PaymentInput{RoommateID: "admin", Amount: "1000", Mode: "Cash"})
	assert.NoError(t, err, "the admin pays too")
}

func TestRecordPayment_Rejections(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	_, err := f.svc.SetRentPlan(ctx, "admin", RentPlanInput{StartDate: "2025-02-01", MonthlyAmount: "1000"})
	require.NoError(t, err)

	cases := []struct {
		name string
		in   PaymentInput
		want error
	}{
		{"pending roommate", PaymentInput{RoommateID: "u2", Amount: "1", Mode: "Cash"}, ErrPendingApproval},
		{"other admin's roommate", PaymentInput{RoommateID: "stranger", Amount: "1", Mode: "Cash"}, ErrForbidden},
		{"unknown roommate", PaymentInput{RoommateID: "ghost", Amount: "1", Mode: "Cash"}, ErrUserNotFound},
		{"bad mode", PaymentInput{RoommateID: "u1", Amount: "1", Mode: "Bitcoin"}, ErrInvalidInput},
		{"negative amount", PaymentInput{RoommateID: "u1", Amount: "-1", Mode: "Cash"}, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RecordPayment(ctx, "admin", tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.ledger.payments)
}

func TestRecordTransaction(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	txn, err := f.svc.RecordTransaction(ctx, "admin", TransactionInput{
		Date:        "2025-02-10T18:45",
		Description: " Groceries ",
		Amount:      "250.75",
		Type:        "Expense",
		Mode:        "PhonePe",
	})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", txn.Description)
	assert.Equal(t, "Other", txn.Category)
	assert.Equal(t, time.Date(2025, 2, 10, 18, 45, 0, 0, time.UTC), txn.Date)
	assert.Empty(t, txn.RoommateID)
}

func TestRecordTransaction_RoommateScoped(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	in := TransactionInput{Date: "2025-02-10T18:45", Description: "Deposit", Amount: "500", Type: "Income", Mode: "Cash", RoommateID: "u1"}

	_, err := f.svc.RecordTransaction(ctx, "admin", in)
	assert.ErrorIs(t, err, ErrNoRentPlan)

	plan, err := f.svc.SetRentPlan(ctx, "admin", RentPlanInput{StartDate: "2025-02-01", MonthlyAmount: "1000"})
	require.NoError(t, err)

	txn, err := f.svc.RecordTransaction(ctx, "admin", in)
	require.NoError(t, err)
	assert.Equal(t, "u1", txn.RoommateID)
	assert.Equal(t, plan.ID, txn.RentPlanID)
}

func TestRecordTransaction_Invalid(t *testing.T) {
	f := newLedgerFixture(t)
	base := TransactionInput{Date: "2025-02-10T18:45", Description: "x", Amount: "1", Type: "Expense", Mode: "Cash"}

	mutate := map[string]func(*TransactionInput){
		"date":        func(in *TransactionInput) { in.Date = "2025-02-10" },
		"type":        func(in *TransactionInput) { in.Type = "Refund" },
		"mode":        func(in *TransactionInput) { in.Mode = "cash" },
		"description": func(in *TransactionInput) { in.Description = "   " },
		"amount":      func(in *TransactionInput) { in.Amount = "" },
	}
	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			in := base
			fn(&in)
			_, err := f.svc.RecordTransaction(context.Background(), "admin", in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestAdminDashboard(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetRentPlan(ctx, "admin", RentPlanInput{StartDate: "2025-02-01", MonthlyAmount: "1000"})
	require.NoError(t, err)
	for _, p := range []PaymentInput{
		{RoommateID: "u1", Amount: "1000", Mode: "Cash"},
		{RoommateID: "u3", Amount: "500", Mode: "Paytm"},
		{RoommateID: "admin", Amount: "1000", Mode: "Bank transfer"},
	} {
		_, err := f.svc.RecordPayment(ctx, "admin", p)
		require.NoError(t, err)
	}
	_, err = f.svc.RecordTransaction(ctx, "admin", TransactionInput{Date: "2025-02-05T10:00", Description: "Rent", Amount: "2000", Type: "Expense", Mode: "Bank transfer"})
	require.NoError(t, err)
	_, err = f.svc.RecordTransaction(ctx, "admin", TransactionInput{Date: "2025-02-06T10:00", Description: "Refund", Amount: "300", Type: "Income", Mode: "Cash"})
	require.NoError(t, err)

	d, err := f.svc.AdminDashboard(ctx, "admin")
	require.NoError(t, err)

	// Two approved roommates plus the admin; pending ben does not count.
	assert.Equal(t, 3, d.Summary.Payers)
	assert.True(t, d.Summary.ExpectedRent.Equal(dec("3000")))
	assert.True(t, d.Summary.RentCollected.Equal(dec("2500")))
	assert.True(t, d.Summary.Draft.Equal(dec("500")))
	assert.True(t, d.Summary.AdjustedExpense.Equal(dec("1700")))
	assert.True(t, d.Summary.Savings.Equal(dec("800")))

	require.Len(t, d.Balances, 3)
	assert.Equal(t, "admin", d.Balances[0].RoommateID)
	for _, b := range d.Balances {
		if b.RoommateID == "u3" {
			assert.True(t, b.Balance.Equal(dec("500")))
		}
	}
	assert.Len(t, d.Transactions, 2)
	assert.Len(t, d.Payments, 3)
}

func TestAdminDashboard_NoPlan(t *testing.T) {
	f := newLedgerFixture(t)

	d, err := f.svc.AdminDashboard(context.Background(), "admin")
	require.NoError(t, err)
	assert.Nil(t, d.Plan)
	assert.True(t, d.Summary.ExpectedRent.IsZero())
	assert.True(t, d.Summary.Savings.IsZero())
}

func TestMemberDashboard(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	_, err := f.svc.SetRentPlan(ctx, "admin", RentPlanInput{StartDate: "2025-02-01", MonthlyAmount: "1000"})
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, "admin", PaymentInput{RoommateID: "u1", Amount: "600", Mode: "Cash"})
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, "admin", PaymentInput{RoommateID: "u3", Amount: "1000", Mode: "Cash"})
	require.NoError(t, err)

	member := approvedMember
	d, err := f.svc.MemberDashboard(ctx, &member)
	require.NoError(t, err)
	require.Len(t, d.Payments, 1)
	assert.True(t, d.Balance.TotalPaid.Equal(dec("600")))
	assert.True(t, d.Balance.Balance.Equal(dec("400")))

	admin := adminUser
	d, err = f.svc.MemberDashboard(ctx, &admin)
	require.NoError(t, err)
	assert.NotNil(t, d.Plan)
	assert.Empty(t, d.Payments)
}
