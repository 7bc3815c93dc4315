package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/roomledger/roomledger/internal/models"
	"github.com/roomledger/roomledger/internal/notify"
	"github.com/roomledger/roomledger/internal/repository"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{users: make(map[string]*models.User)}
	for i := range users {
		u := users[i]
		m.users[u.ID] = &u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) {
			return repository.ErrConflict
		}
	}
	u := *user
	m.users[u.ID] = &u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) ListByEmail(_ context.Context, email string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if models.NormalizeEmail(u.Email) == models.NormalizeEmail(email) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) ListRoommates(_ context.Context, adminID string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.AdminID == adminID && !u.IsAdmin {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) SetApproved(_ context.Context, id string, approved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsApproved = approved
	return nil
}

func (m *memUsers) Delete(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, user.ID)
	return nil
}

type memRooms struct {
	rooms map[string]*models.Room
}

func newMemRooms(rooms ...models.Room) *memRooms {
	m := &memRooms{rooms: make(map[string]*models.Room)}
	for i := range rooms {
		r := rooms[i]
		m.rooms[r.ID] = &r
	}
	return m
}

func (m *memRooms) Create(_ context.Context, room *models.Room) error {
	for _, r := range m.rooms {
		if r.AdminID == room.AdminID {
			return repository.ErrConflict
		}
	}
	r := *room
	m.rooms[r.ID] = &r
	return nil
}

func (m *memRooms) GetByID(_ context.Context, id string) (*models.Room, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRooms) GetByAdmin(_ context.Context, adminID string) (*models.Room, error) {
	for _, r := range m.rooms {
		if r.AdminID == adminID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRooms) List(_ context.Context) ([]models.Room, error) {
	var out []models.Room
	for _, r := range m.rooms {
		out = append(out, *r)
	}
	return out, nil
}

type memLedger struct {
	plans        map[string]models.RentPlan
	payments     []models.Payment
	transactions []models.Transaction
}

func newMemLedger() *memLedger {
	return &memLedger{plans: make(map[string]models.RentPlan)}
}

func (m *memLedger) PutRentPlan(_ context.Context, plan *models.RentPlan) error {
	m.plans[plan.AdminID] = *plan
	return nil
}

func (m *memLedger) GetRentPlan(_ context.Context, adminID string) (*models.RentPlan, error) {
	p, ok := m.plans[adminID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *memLedger) CreatePayment(_ context.Context, payment *models.Payment) error {
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *memLedger) ListPayments(_ context.Context, adminID string) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.payments {
		if p.AdminID == adminID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memLedger) CreateTransaction(_ context.Context, txn *models.Transaction) error {
	m.transactions = append(m.transactions, *txn)
	return nil
}

func (m *memLedger) ListTransactions(_ context.Context, adminID string) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range m.transactions {
		if t.AdminID == adminID {
			out = append(out, t)
		}
	}
	return out, nil
}

// recordingNotifier keeps every message and optionally fails.
type recordingNotifier struct {
	sent []notify.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

var errSMTPDown = errors.New("smtp: connection refused")
