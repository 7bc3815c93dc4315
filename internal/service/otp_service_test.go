package service

import (
	"context"
	"testing"
	"time"

	"github.com/roomledger/roomledger/internal/config"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type otpFixture struct {
	svc      *OTPService
	users    *memUsers
	notifier *recordingNotifier
	clock    time.Time
	codes    []string
}

func newOTPFixture(t *testing.T, maxAttempts int, users ...models.User) *otpFixture {
	t.Helper()
	f := &otpFixture{
		users:    newMemUsers(users...),
		notifier: &recordingNotifier{},
		clock:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		codes:    []string{"123456", "654321", "111111"},
	}
	f.svc = NewOTPService(
		f.users,
		f.notifier,
		&config.OTPConfig{Length: 6, Expiry: 5 * time.Minute, MaxAttempts: maxAttempts},
		&config.MailConfig{From: "noreply@roomledger.test"},
		quietLogger(),
	)
	f.svc.now = func() time.Time { return f.clock }
	f.svc.generate = func(int) (string, error) {
		code := f.codes[0]
		f.codes = f.codes[1:]
		return code, nil
	}
	return f
}

func newSession(now time.Time) *models.Session {
	return models.NewSession("sid", now, time.Hour)
}

var (
	approvedMember = models.User{ID: "u1", Username: "asha", Email: "a@x.com", AdminID: "admin", IsApproved: true}
	pendingMember  = models.User{ID: "u2", Username: "ben", Email: "b@x.com", AdminID: "admin"}
	adminUser      = models.User{ID: "admin", Username: "root", Email: "admin@x.com", IsAdmin: true, IsApproved: true}
)

func TestIssueChallenge_StoresChallengeAndNotifies(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	sess := newSession(f.clock)

	require.NoError(t, f.svc.IssueChallenge(context.Background(), sess, " A@X.com "))

	c := sess.Challenge()
	require.NotNil(t, c)
	assert.Equal(t, "a@x.com", c.Email)
	assert.Equal(t, HashOTP("123456"), c.CodeHash)
	assert.Equal(t, 0, c.Attempts)
	assert.Equal(t, f.clock.Add(5*time.Minute), c.ExpiresAt)
	assert.True(t, sess.Modified())

	require.Len(t, f.notifier.sent, 1)
	msg := f.notifier.sent[0]
	assert.Equal(t, []string{"a@x.com"}, msg.To)
	assert.Equal(t, "noreply@roomledger.test", msg.From)
	assert.Contains(t, msg.Body, "123456")
}

func TestIssueChallenge_UnknownEmail(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	sess := newSession(f.clock)

	err := f.svc.IssueChallenge(context.Background(), sess, "nobody@x.com")

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Nil(t, sess.Challenge())
	assert.Empty(t, f.notifier.sent)
}

func TestIssueChallenge_AmbiguousEmailLeavesSessionUntouched(t *testing.T) {
	f := newOTPFixture(t, 0,
		models.User{ID: "d1", Username: "dup1", Email: "dup@x.com", IsApproved: true},
		models.User{ID: "d2", Username: "dup2", Email: "dup@x.com", IsApproved: true},
	)
	sess := newSession(f.clock)

	err := f.svc.IssueChallenge(context.Background(), sess, "dup@x.com")

	assert.ErrorIs(t, err, ErrAmbiguousIdentity)
	assert.Nil(t, sess.Challenge())
	assert.False(t, sess.Modified())
	assert.Empty(t, f.notifier.sent)
}

func TestIssueChallenge_DeliveryFailureRollsBack(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	f.notifier.err = errSMTPDown
	sess := newSession(f.clock)

	err := f.svc.IssueChallenge(context.Background(), sess, "a@x.com")

	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Nil(t, sess.Challenge())
}

func TestIssueChallenge_FailedResendKeepsEarlierCode(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	sess := newSession(f.clock)
	ctx := context.Background()
	require.NoError(t, f.svc.IssueChallenge(ctx, sess, "a@x.com"))
	issued := *sess.Challenge()

	f.notifier.err = errSMTPDown
	err := f.svc.IssueChallenge(ctx, sess, "a@x.com")
	require.ErrorIs(t, err, ErrDeliveryFailed)

	require.NotNil(t, sess.Challenge())
	assert.Equal(t, issued, *sess.Challenge())

	user, err := f.svc.VerifyChallenge(ctx, sess, "123456")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
}

func TestIssueChallenge_DeliveryFailureFailSilently(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	f.svc.failSilently = true
	f.notifier.err = errSMTPDown
	sess := newSession(f.clock)

	require.NoError(t, f.svc.IssueChallenge(context.Background(), sess, "a@x.com"))
	assert.NotNil(t, sess.Challenge())
}

func TestIssueChallenge_EmptyEmail(t *testing.T) {
	f := newOTPFixture(t, 0)

	err := f.svc.IssueChallenge(context.Background(), newSession(f.clock), "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerifyChallenge_SucceedsExactlyOnce(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	sess := newSession(f.clock)
	ctx := context.Background()
	require.NoError(t, f.svc.IssueChallenge(ctx, sess, "a@x.com"))

	user, err := f.svc.VerifyChallenge(ctx, sess, "123456")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, models.RoleMember, user.Role())
	assert.Nil(t, sess.Challenge())
	assert.True(t, sess.Authenticated())
	assert.Equal(t, models.RoleMember, sess.Role)
	assert.True(t, sess.NeedsRotation())

	_, err = f.svc.VerifyChallenge(ctx, sess, "123456")
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestVerifyChallenge_AdministratorRole(t *testing.T) {
	f := newOTPFixture(t, 0, adminUser)
	sess := newSession(f.clock)
	ctx := context.Background()
	require.NoError(t, f.svc.IssueChallenge(ctx, sess, "admin@x.com"))

	user, err := f.svc.VerifyChallenge(ctx, sess, "123456")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdministrator, user.Role())
}

func TestVerifyChallenge_AtExactExpiryIsValid(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	sess := newSession(f.clock)
	ctx := context.Background()
	require.NoError(t, f.svc.IssueChallenge(ctx, sess, "a@x.com"))

	f.clock = f.clock.Add(5 * time.Minute)
	_, err := f.svc.VerifyChallenge(ctx, sess, "123456")
	assert.NoError(t, err)
}

func TestVerifyChallenge_ExpiredClearsChallenge(t *testing.T) {
	for _, code := range []string{"123456", "000000"} {
		t.Run(code, func(t *testing.T) {
			f := newOTPFixture(t, 0, approvedMember)
			sess := newSession(f.clock)
			ctx := context.Background()
			require.NoError(t, f.svc.IssueChallenge(ctx, sess, "a@x.com"))

			f.clock = f.clock.Add(5*time.Minute + time.Nanosecond)
			_, err := f.svc.VerifyChallenge(ctx, sess, code)
			assert.ErrorIs(t, err, ErrChallengeExpired)
			assert.Nil(t, sess.Challenge())
			assert.False(t, sess.Authenticated())

			_, err = f.svc.VerifyChallenge(ctx, sess, "123456")
			assert.ErrorIs(t, err, ErrChallengeMissing)
		})
	}
}

func TestVerifyChallenge_MismatchKeepsChallenge(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	sess := newSession(f.clock)
	ctx := context.Background()
	require.NoError(t, f.svc.IssueChallenge(ctx, sess, "a@x.com"))

	for i := 1; i <= 10; i++ {
		_, err := f.svc.VerifyChallenge(ctx, sess, "999999")
		assert.ErrorIs(t, err, ErrChallengeMismatch)
		require.NotNil(t, sess.Challenge())
		assert.Equal(t, i, sess.Challenge().Attempts)
	}

	_, err := f.svc.VerifyChallenge(ctx, sess, "123456")
	assert.NoError(t, err, "unlimited retries when max attempts is zero")
}

func TestVerifyChallenge_NoTrimming(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	sess := newSession(f.clock)
	ctx := context.Background()
	require.NoError(t, f.svc.IssueChallenge(ctx, sess, "a@x.com"))

	_, err := f.svc.VerifyChallenge(ctx, sess, " 123456")
	assert.ErrorIs(t, err, ErrChallengeMismatch)
}

func TestVerifyChallenge_MaxAttemptsRejects(t *testing.T) {
	f := newOTPFixture(t, 3, approvedMember)
	sess := newSession(f.clock)
	ctx := context.Background()
	require.NoError(t, f.svc.IssueChallenge(ctx, sess, "a@x.com"))

	_, err := f.svc.VerifyChallenge(ctx, sess, "000000")
	assert.ErrorIs(t, err, ErrChallengeMismatch)
	_, err = f.svc.VerifyChallenge(ctx, sess, "000000")
	assert.ErrorIs(t, err, ErrChallengeMismatch)
	_, err = f.svc.VerifyChallenge(ctx, sess, "000000")
	assert.ErrorIs(t, err, ErrChallengeRejected)
	assert.Nil(t, sess.Challenge())

	_, err = f.svc.VerifyChallenge(ctx, sess, "123456")
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestIssueChallenge_SecondReplacesFirst(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	sess := newSession(f.clock)
	ctx := context.Background()

	require.NoError(t, f.svc.IssueChallenge(ctx, sess, "a@x.com"))
	_, err := f.svc.VerifyChallenge(ctx, sess, "000000")
	require.ErrorIs(t, err, ErrChallengeMismatch)
	require.Equal(t, 1, sess.Challenge().Attempts)

	f.clock = f.clock.Add(time.Minute)
	require.NoError(t, f.svc.IssueChallenge(ctx, sess, "a@x.com"))
	assert.Equal(t, 0, sess.Challenge().Attempts)
	assert.Equal(t, f.clock.Add(5*time.Minute), sess.Challenge().ExpiresAt)

	_, err = f.svc.VerifyChallenge(ctx, sess, "123456")
	assert.ErrorIs(t, err, ErrChallengeMismatch, "old code must not verify")

	_, err = f.svc.VerifyChallenge(ctx, sess, "654321")
	assert.NoError(t, err)
}

func TestVerifyChallenge_PendingApprovalKeepsChallenge(t *testing.T) {
	f := newOTPFixture(t, 0, pendingMember)
	sess := newSession(f.clock)
	ctx := context.Background()
	require.NoError(t, f.svc.IssueChallenge(ctx, sess, "b@x.com"))

	_, err := f.svc.VerifyChallenge(ctx, sess, "123456")
	assert.ErrorIs(t, err, ErrPendingApproval)
	assert.NotNil(t, sess.Challenge())
	assert.False(t, sess.Authenticated())

	require.NoError(t, f.users.SetApproved(ctx, "u2", true))
	f.clock = f.clock.Add(4 * time.Minute)

	user, err := f.svc.VerifyChallenge(ctx, sess, "123456")
	require.NoError(t, err)
	assert.Equal(t, "u2", user.ID)
}

func TestVerifyChallenge_UserDeletedAfterIssue(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	sess := newSession(f.clock)
	ctx := context.Background()
	require.NoError(t, f.svc.IssueChallenge(ctx, sess, "a@x.com"))

	require.NoError(t, f.users.Delete(ctx, &approvedMember))
	_, err := f.svc.VerifyChallenge(ctx, sess, "123456")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestVerifyChallenge_BecameAmbiguousAfterIssue(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	sess := newSession(f.clock)
	ctx := context.Background()
	require.NoError(t, f.svc.IssueChallenge(ctx, sess, "a@x.com"))

	require.NoError(t, f.users.Create(ctx, &models.User{ID: "u9", Username: "other", Email: "a@x.com"}))
	_, err := f.svc.VerifyChallenge(ctx, sess, "123456")
	assert.ErrorIs(t, err, ErrAmbiguousIdentity)
}

func TestVerifyChallenge_NoChallenge(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)

	_, err := f.svc.VerifyChallenge(context.Background(), newSession(f.clock), "123456")
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestVerifyChallenge_PartialChallengeIsMissing(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	sess := newSession(f.clock)
	sess.SetChallenge(models.OTPChallenge{CodeHash: HashOTP("123456"), ExpiresAt: f.clock.Add(time.Minute)})

	_, err := f.svc.VerifyChallenge(context.Background(), sess, "123456")
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestVerifyChallenge_Corrupt(t *testing.T) {
	f := newOTPFixture(t, 0, approvedMember)
	sess := newSession(f.clock)
	sess.SetChallenge(models.OTPChallenge{CodeHash: HashOTP("123456"), Email: "a@x.com"})

	_, err := f.svc.VerifyChallenge(context.Background(), sess, "123456")
	assert.ErrorIs(t, err, ErrChallengeCorrupt)
}

func TestGenerateRandomOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		otp, err := generateRandomOTP(6)
		require.NoError(t, err)
		require.Len(t, otp, 6)
		for _, c := range otp {
			assert.True(t, c >= '0' && c <= '9', "non-digit %q", c)
		}
		seen[otp] = true
	}
	assert.Greater(t, len(seen), 40)
}

func TestOTPEqual(t *testing.T) {
	stored := HashOTP("123456")

	assert.True(t, OTPEqual("123456", stored))
	assert.False(t, OTPEqual("654321", stored))
	assert.False(t, OTPEqual("123456 ", stored))
	assert.False(t, OTPEqual("", stored))
	assert.False(t, OTPEqual("123456", ""))
}
