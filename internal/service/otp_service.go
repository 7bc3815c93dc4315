package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roomledger/roomledger/internal/config"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/roomledger/roomledger/internal/notify"
	"github.com/sirupsen/logrus"
)

// UserLookup resolves login emails to accounts. Emails are not unique.
type UserLookup interface {
	ListByEmail(ctx context.Context, email string) ([]models.User, error)
}

// OTPService runs the emailed-code login:
//
//	no challenge -> issued -> verified | expired | rejected
//
// Expired and rejected challenges are cleared, so the user starts over.
type OTPService struct {
	users        UserLookup
	notifier     notify.Notifier
	cfg          *config.OTPConfig
	from         string
	failSilently bool
	logger       *logrus.Logger

	now      func() time.Time
	generate func(length int) (string, error)
}

func NewOTPService(
	users UserLookup,
	notifier notify.Notifier,
	cfg *config.OTPConfig,
	mail *config.MailConfig,
	logger *logrus.Logger,
) *OTPService {
	return &OTPService{
		users:        users,
		notifier:     notifier,
		cfg:          cfg,
		from:         mail.From,
		failSilently: mail.FailSilently,
		logger:       logger,
		now:          time.Now,
		generate:     generateRandomOTP,
	}
}

// resolveUser requires exactly one account for email.
func (s *OTPService) resolveUser(ctx context.Context, email string) (*models.User, error) {
	users, err := s.users.ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	switch len(users) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return &users[0], nil
	default:
		return nil, ErrAmbiguousIdentity
	}
}

// IssueChallenge replaces any pending challenge with a fresh code for email
// and mails it. The session is left untouched when the email does not resolve
// to exactly one account. If delivery fails the previous challenge, if any,
// is restored.
func (s *OTPService) IssueChallenge(ctx context.Context, sess *models.Session, email string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	if _, err := s.resolveUser(ctx, email); err != nil {
		return err
	}

	code, err := s.generate(s.cfg.Length)
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}

	var prev *models.OTPChallenge
	if c := sess.Challenge(); c != nil {
		saved := *c
		prev = &saved
	}

	now := s.now()
	sess.SetChallenge(models.OTPChallenge{
		CodeHash:  HashOTP(code),
		Email:     email,
		Attempts:  0,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.Expiry),
	})
	sess.MarkModified()

	err = s.notifier.Send(ctx, notify.Message{
		Subject: "Your login code",
		Body:    otpBody(code, s.cfg.Expiry),
		From:    s.from,
		To:      []string{email},
	})
	if err != nil {
		if s.failSilently {
			s.logger.WithError(err).WithField("email", email).Warn("OTP delivery failed, continuing")
			return nil
		}
		// The code already in the user's inbox stays valid.
		if prev != nil {
			sess.SetChallenge(*prev)
		} else {
			sess.ClearChallenge()
		}
		s.logger.WithError(err).WithField("email", email).Error("OTP delivery failed")
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	s.logger.WithField("email", email).Info("OTP issued")
	return nil
}

// VerifyChallenge checks code against the pending challenge. On success the
// challenge is cleared and the session is authenticated as the returned user.
func (s *OTPService) VerifyChallenge(ctx context.Context, sess *models.Session, code string) (*models.User, error) {
	c := sess.Challenge()
	if !c.Complete() {
		return nil, ErrChallengeMissing
	}
	if c.ExpiresAt.IsZero() {
		return nil, ErrChallengeCorrupt
	}

	if c.Expired(s.now()) {
		sess.ClearChallenge()
		return nil, ErrChallengeExpired
	}

	if !OTPEqual(code, c.CodeHash) {
		next := *c
		next.Attempts++
		if s.cfg.MaxAttempts > 0 && next.Attempts >= s.cfg.MaxAttempts {
			sess.ClearChallenge()
			s.logger.WithField("email", c.Email).Warn("OTP challenge rejected after too many attempts")
			return nil, ErrChallengeRejected
		}
		sess.SetChallenge(next)
		return nil, ErrChallengeMismatch
	}

	user, err := s.resolveUser(ctx, c.Email)
	if err != nil {
		return nil, err
	}
	// The challenge stays so the same code works once the admin approves.
	if !user.CanLogin() {
		return nil, ErrPendingApproval
	}

	sess.ClearChallenge()
	sess.Authenticate(user)

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role(),
	}).Info("OTP login succeeded")
	return user, nil
}

func otpBody(code string, expiry time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your login code is %s.\n\n", code)
	fmt.Fprintf(&b, "It expires in %d minutes. If you did not request it, ignore this email.\n", int(expiry.Minutes()))
	return b.String()
}
