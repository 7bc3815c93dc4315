package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/roomledger/roomledger/internal/notify"
	"github.com/roomledger/roomledger/internal/repository"
	"github.com/sirupsen/logrus"
)

const minPasswordLength = 8

// AccountService handles registration, approval and password login.
type AccountService struct {
	users    UserStore
	rooms    RoomStore
	hasher   *PasswordHasher
	notifier notify.Notifier
	from     string
	logger   *logrus.Logger
	newID    func() string
}

func NewAccountService(
	users UserStore,
	rooms RoomStore,
	hasher *PasswordHasher,
	notifier notify.Notifier,
	from string,
	logger *logrus.Logger,
) *AccountService {
	return &AccountService{
		users:    users,
		rooms:    rooms,
		hasher:   hasher,
		notifier: notifier,
		from:     from,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
	}
}

type Credentials struct {
	Username string
	Email    string
	Password string
}

func (c *Credentials) validate() error {
	c.Username = strings.TrimSpace(c.Username)
	c.Email = models.NormalizeEmail(c.Email)
	if c.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(c.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}

type AdminRegistration struct {
	Credentials
	RoomName string
	Capacity int
}

type RoommateRegistration struct {
	Credentials
	RoomID string
}

// RegisterAdmin creates an approved administrator and the room they own.
func (s *AccountService) RegisterAdmin(ctx context.Context, reg AdminRegistration) (*models.User, *models.Room, error) {
	if err := reg.validate(); err != nil {
		return nil, nil, err
	}
	reg.RoomName = strings.TrimSpace(reg.RoomName)
	if reg.RoomName == "" {
		return nil, nil, fmt.Errorf("%w: room name is required", ErrInvalidInput)
	}
	if reg.Capacity < 1 {
		return nil, nil, fmt.Errorf("%w: capacity must be at least 1", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.User{
		ID:           s.newID(),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		IsAdmin:      true,
		IsApproved:   true,
	}
	room := &models.Room{
		ID:       s.newID(),
		AdminID:  admin.ID,
		Name:     reg.RoomName,
		Capacity: reg.Capacity,
	}
	admin.RoomID = room.ID

	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, nil, ErrUsernameTaken
		}
		return nil, nil, err
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, nil, fmt.Errorf("failed to create room: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"admin_id": admin.ID, "room_id": room.ID}).Info("Admin registered")
	return admin, room, nil
}

// RegisterRoommate creates a pending roommate in roomID and tells the room's admin.
func (s *AccountService) RegisterRoommate(ctx context.Context, reg RoommateRegistration) (*models.User, error) {
	if err := reg.validate(); err != nil {
		return nil, err
	}

	room, err := s.rooms.GetByID(ctx, reg.RoomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	vacancies, err := s.vacancies(ctx, room)
	if err != nil {
		return nil, err
	}
	if vacancies <= 0 {
		return nil, ErrRoomFull
	}

	admin, err := s.users.GetByID(ctx, room.AdminID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room admin: %w", err)
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	roommate := &models.User{
		ID:           s.newID(),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		AdminID:      admin.ID,
		RoomID:       room.ID,
	}
	if err := s.users.Create(ctx, roommate); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.notify(ctx, admin.Email, "New roommate request",
		fmt.Sprintf("%s (%s) asked to join %s. Review pending roommates to approve or reject.", roommate.Username, roommate.Email, room.Name))
	return roommate, nil
}

func (s *AccountService) vacancies(ctx context.Context, room *models.Room) (int, error) {
	roommates, err := s.users.ListRoommates(ctx, room.AdminID)
	if err != nil {
		return 0, err
	}
	approved := 0
	for _, r := range roommates {
		if r.IsApproved && r.RoomID == room.ID {
			approved++
		}
	}
	return room.AvailableVacancies(approved), nil
}

// ListRooms returns every room with its open places for the registration page.
func (s *AccountService) ListRooms(ctx context.Context) ([]models.RoomListing, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, err
	}

	listings := make([]models.RoomListing, 0, len(rooms))
	for _, room := range rooms {
		vacancies, err := s.vacancies(ctx, &room)
		if err != nil {
			return nil, err
		}
		listing := models.RoomListing{Room: room, Vacancies: max(vacancies, 0)}
		if admin, err := s.users.GetByID(ctx, room.AdminID); err == nil {
			listing.AdminUsername = admin.Username
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func (s *AccountService) PendingRoommates(ctx context.Context, adminID string) ([]models.User, error) {
	roommates, err := s.users.ListRoommates(ctx, adminID)
	if err != nil {
		return nil, err
	}
	pending := make([]models.User, 0, len(roommates))
	for _, r := range roommates {
		if !r.IsApproved {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

func (s *AccountService) ownedRoommate(ctx context.Context, adminID, roommateID string) (*models.User, error) {
	roommate, err := s.users.GetByID(ctx, roommateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if roommate.IsAdmin || roommate.AdminID != adminID {
		return nil, ErrForbidden
	}
	return roommate, nil
}

// Approve activates a pending roommate if the room still has space.
func (s *AccountService) Approve(ctx context.Context, adminID, roommateID string) error {
	roommate, err := s.ownedRoommate(ctx, adminID, roommateID)
	if err != nil {
		return err
	}
	if roommate.IsApproved {
		return nil
	}

	room, err := s.rooms.GetByID(ctx, roommate.RoomID)
	if err != nil {
		return fmt.Errorf("failed to load room: %w", err)
	}
	vacancies, err := s.vacancies(ctx, room)
	if err != nil {
		return err
	}
	if vacancies <= 0 {
		return ErrRoomFull
	}

	if err := s.users.SetApproved(ctx, roommate.ID, true); err != nil {
		return err
	}

	s.notify(ctx, roommate.Email, "Your roommate request was approved",
		fmt.Sprintf("Hi %s, you can now log in to %s.", roommate.Username, room.Name))
	return nil
}

// Reject deletes a pending roommate.
func (s *AccountService) Reject(ctx context.Context, adminID, roommateID string) error {
	roommate, err := s.ownedRoommate(ctx, adminID, roommateID)
	if err != nil {
		return err
	}
	if roommate.IsApproved {
		return fmt.Errorf("%w: roommate is already approved", ErrInvalidInput)
	}

	if err := s.users.Delete(ctx, roommate); err != nil {
		return err
	}

	s.notify(ctx, roommate.Email, "Your roommate request was rejected",
		fmt.Sprintf("Hi %s, your request to join was declined by the admin.", roommate.Username))
	return nil
}

// PasswordLogin authenticates sess with a username and password. Any pending
// OTP challenge is discarded.
func (s *AccountService) PasswordLogin(ctx context.Context, sess *models.Session, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.CanLogin() {
		return nil, ErrPendingApproval
	}

	sess.ClearChallenge()
	sess.Authenticate(user)
	return user, nil
}

// notify is best effort: roommate notices never fail the request.
func (s *AccountService) notify(ctx context.Context, to, subject, body string) {
	err := s.notifier.Send(ctx, notify.Message{
		Subject: subject,
		Body:    body,
		From:    s.from,
		To:      []string{to},
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"to": to, "subject": subject}).Warn("Failed to send notification")
	}
}
