package service

import (
	"context"

	"github.com/roomledger/roomledger/internal/models"
)

// UserStore is the account persistence the services need.
type UserStore interface {
	UserLookup
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListRoommates(ctx context.Context, adminID string) ([]models.User, error)
	SetApproved(ctx context.Context, id string, approved bool) error
	Delete(ctx context.Context, user *models.User) error
}

type RoomStore interface {
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id string) (*models.Room, error)
	GetByAdmin(ctx context.Context, adminID string) (*models.Room, error)
	List(ctx context.Context) ([]models.Room, error)
}

type LedgerStore interface {
	PutRentPlan(ctx context.Context, plan *models.RentPlan) error
	GetRentPlan(ctx context.Context, adminID string) (*models.RentPlan, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	ListPayments(ctx context.Context, adminID string) ([]models.Payment, error)
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	ListTransactions(ctx context.Context, adminID string) ([]models.Transaction, error)
}

func approvedOnly(users []models.User) []models.User {
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.IsApproved {
			out = append(out, u)
		}
	}
	return out
}
