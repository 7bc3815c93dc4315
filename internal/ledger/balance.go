package ledger

import (
	"github.com/roomledger/roomledger/internal/models"
	"github.com/shopspring/decimal"
)

// RoommateBalance is positive while rent is still owed and negative on credit.
type RoommateBalance struct {
	RoommateID string          `json:"roommate_id"`
	Username   string          `json:"username"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
	Balance    decimal.Decimal `json:"balance"`
}

// Balance computes one roommate's standing against plan.
func Balance(plan *models.RentPlan, roommate models.User, payments []models.Payment) RoommateBalance {
	paid := decimal.Zero
	monthly := decimal.Zero
	if plan != nil {
		monthly = plan.MonthlyAmount
		for _, p := range payments {
			if p.RoommateID == roommate.ID && p.RentPlanID == plan.ID {
				paid = paid.Add(p.AmountPaid)
			}
		}
	}
	return RoommateBalance{
		RoommateID: roommate.ID,
		Username:   roommate.Username,
		TotalPaid:  paid,
		Balance:    monthly.Sub(paid),
	}
}

// Balances returns one entry per roommate, in input order.
func Balances(plan *models.RentPlan, roommates []models.User, payments []models.Payment) []RoommateBalance {
	out := make([]RoommateBalance, 0, len(roommates))
	for _, r := range roommates {
		out = append(out, Balance(plan, r, payments))
	}
	return out
}
