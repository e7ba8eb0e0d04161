package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/auth"
	"greendrake/freight/internal/models"
	"greendrake/freight/internal/schema"
)

const strongPassword = "Str0ng&Secret"

func setupUsers(t *testing.T) (*memDB, *fakeMailer, IUserService) {
	t.Helper()
	mem := newMemDB()
	mailer := &fakeMailer{}
	return mem, mailer, NewUserService(mem.store(), &memTx{db: mem}, mailer, testConfig())
}

func assertValidationMessage(t *testing.T, err error, message string) {
	t.Helper()
	var verr *auctionerrors.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	assert.Equal(t, message, verr.Message)
}

func registerVerified(t *testing.T, mem *memDB, mailer *fakeMailer, svc IUserService, email string) *models.User {
	t.Helper()
	ctx := context.Background()
	user, err := svc.Register(ctx, schema.RegisterRequest{Email: email, Password: strongPassword})
	require.NoError(t, err)
	code := mailer.last().data["verificationCode"].(string)
	require.NoError(t, svc.VerifyEmail(ctx, schema.VerifyEmailRequest{Email: email, VerificationCode: code}))
	return user
}

func TestRegister(t *testing.T) {
	mem, mailer, svc := setupUsers(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, schema.RegisterRequest{Email: " Owner@Example.com ", Password: strongPassword, FullName: "Ana Souza"})
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", user.Email)
	assert.False(t, user.IsVerified)
	assert.True(t, auth.CheckPasswordHash(strongPassword, user.PasswordHash))

	sent := mailer.last()
	assert.Equal(t, "owner@example.com", sent.to)
	assert.Equal(t, models.TemplateVerifyEmail, sent.templateID)
	assert.Equal(t, "Ana Souza", sent.data["userFullName"])
	assert.Equal(t, "Freight Co", sent.data["companyName"])
	code, err := strconv.Atoi(sent.data["verificationCode"].(string))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, code, 100000)
	assert.Equal(t, sent.data["verificationCode"], mem.users[user.ID].VerificationToken)

	_, err = svc.Register(ctx, schema.RegisterRequest{Email: "owner@example.com", Password: strongPassword})
	assertValidationMessage(t, err, MsgUserExists)
}

func TestRegister_WeakPasswordRejected(t *testing.T) {
	_, mailer, svc := setupUsers(t)
	_, err := svc.Register(context.Background(), schema.RegisterRequest{Email: "a@example.com", Password: "password"})
	assert.True(t, errors.Is(err, auctionerrors.ErrValidation))
	assert.Empty(t, mailer.sent)
}

func TestRegister_MailFailureKeepsUser(t *testing.T) {
	mem, mailer, svc := setupUsers(t)
	mailer.err = errors.New("redis down")

	user, err := svc.Register(context.Background(), schema.RegisterRequest{Email: "a@example.com", Password: strongPassword})
	assert.ErrorIs(t, err, ErrMailDelivery)
	require.NotNil(t, user)
	assert.Contains(t, mem.users, user.ID)
}

func TestVerifyEmail(t *testing.T) {
	mem, mailer, svc := setupUsers(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, schema.RegisterRequest{Email: "a@example.com", Password: strongPassword})
	require.NoError(t, err)
	code := mailer.last().data["verificationCode"].(string)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	err = svc.VerifyEmail(ctx, schema.VerifyEmailRequest{Email: "a@example.com", VerificationCode: wrong})
	assertValidationMessage(t, err, MsgInvalidVerification)

	err = svc.VerifyEmail(ctx, schema.VerifyEmailRequest{Email: "nobody@example.com", VerificationCode: code})
	assertValidationMessage(t, err, MsgInvalidVerification)

	require.NoError(t, svc.VerifyEmail(ctx, schema.VerifyEmailRequest{Email: "a@example.com", VerificationCode: code}))
	stored := mem.users[user.ID]
	assert.True(t, stored.IsVerified)
	assert.NotNil(t, stored.VerifiedSince)
	assert.Empty(t, stored.VerificationToken)

	err = svc.VerifyEmail(ctx, schema.VerifyEmailRequest{Email: "a@example.com", VerificationCode: code})
	assertValidationMessage(t, err, MsgAlreadyVerified)
}

func TestVerifyEmail_ExpiredCode(t *testing.T) {
	mem, mailer, svc := setupUsers(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, schema.RegisterRequest{Email: "a@example.com", Password: strongPassword})
	require.NoError(t, err)
	code := mailer.last().data["verificationCode"].(string)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, memUsers{mem}.SetVerificationToken(ctx, user.ID, code, past))

	err = svc.VerifyEmail(ctx, schema.VerifyEmailRequest{Email: "a@example.com", VerificationCode: code})
	assertValidationMessage(t, err, MsgInvalidVerification)
}

func TestLogin(t *testing.T) {
	mem, mailer, svc := setupUsers(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, schema.RegisterRequest{Email: "pending@example.com", Password: strongPassword})
	require.NoError(t, err)
	_, err = svc.Login(ctx, schema.LoginRequest{Email: "pending@example.com", Password: strongPassword})
	assert.True(t, errors.Is(err, auctionerrors.ErrUnauthorized), "unverified users cannot log in")

	user := registerVerified(t, mem, mailer, svc, "owner@example.com")
	res, err := svc.Login(ctx, schema.LoginRequest{Email: "owner@example.com", Password: strongPassword})
	require.NoError(t, err)
	claims, err := auth.ValidateJWT(res.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = svc.Login(ctx, schema.LoginRequest{Email: "owner@example.com", Password: "Wr0ng&Password"})
	assert.True(t, errors.Is(err, auctionerrors.ErrUnauthorized))
	_, err = svc.Login(ctx, schema.LoginRequest{Email: "ghost@example.com", Password: strongPassword})
	assert.True(t, errors.Is(err, auctionerrors.ErrUnauthorized))
}

func TestForgotAndResetPassword(t *testing.T) {
	mem, mailer, svc := setupUsers(t)
	ctx := context.Background()
	user := registerVerified(t, mem, mailer, svc, "owner@example.com")

	require.NoError(t, svc.ForgotPassword(ctx, schema.ForgotPasswordRequest{Email: "ghost@example.com"}))
	require.Len(t, mailer.sent, 1, "unknown emails get no mail")

	require.NoError(t, svc.ForgotPassword(ctx, schema.ForgotPasswordRequest{Email: "owner@example.com"}))
	sent := mailer.last()
	assert.Equal(t, models.TemplatePasswordReset, sent.templateID)
	code := sent.data["verificationCode"].(string)

	const newPassword = "N3w&Password99"
	err := svc.ResetPassword(ctx, schema.ResetPasswordRequest{Email: "owner@example.com", VerificationCode: "12ab56", NewPassword: newPassword})
	assertValidationMessage(t, err, MsgInvalidCodeFormat)

	err = svc.ResetPassword(ctx, schema.ResetPasswordRequest{Email: "ghost@example.com", VerificationCode: code, NewPassword: newPassword})
	assertValidationMessage(t, err, MsgInvalidEmailOrCode)

	err = svc.ResetPassword(ctx, schema.ResetPasswordRequest{Email: "owner@example.com", VerificationCode: code, NewPassword: "weak"})
	assertValidationMessage(t, err, auth.PasswordPolicyMessage)

	require.NoError(t, svc.ResetPassword(ctx, schema.ResetPasswordRequest{Email: "owner@example.com", VerificationCode: code, NewPassword: newPassword}))
	assert.True(t, auth.CheckPasswordHash(newPassword, mem.users[user.ID].PasswordHash))

	for _, r := range mem.resets {
		require.NotNil(t, r.TokenValidUntil)
		require.NotNil(t, r.TokenLockedUntil)
		assert.WithinDuration(t, r.TokenValidUntil.Add(24*time.Hour), *r.TokenLockedUntil, time.Second)
	}

	err = svc.ResetPassword(ctx, schema.ResetPasswordRequest{Email: "owner@example.com", VerificationCode: code, NewPassword: newPassword})
	assertValidationMessage(t, err, MsgInvalidResetCode)
}

func TestProfile(t *testing.T) {
	mem, mailer, svc := setupUsers(t)
	user := registerVerified(t, mem, mailer, svc, "owner@example.com")

	p, err := svc.Profile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", p.Email)
	assert.True(t, p.IsVerified)
	assert.True(t, p.IsActive)

	_, err = svc.Profile(context.Background(), 424242)
	assert.True(t, errors.Is(err, auctionerrors.ErrNotFound))
}

// racingResets consumes the reset right after it is found, as a second
// request redeeming the same code would.
type racingResets struct {
	memResets
}

func (r racingResets) FindValid(ctx context.Context, userID int64, token int, now time.Time) (*models.PasswordReset, error) {
	reset, err := r.memResets.FindValid(ctx, userID, token, now)
	if err != nil {
		return nil, err
	}
	if err := r.memResets.Invalidate(ctx, reset.ID, now, now.Add(24*time.Hour)); err != nil {
		return nil, err
	}
	return reset, nil
}

func TestResetPassword_CodeConsumedConcurrently(t *testing.T) {
	mem, mailer, plain := setupUsers(t)
	ctx := context.Background()
	user := registerVerified(t, mem, mailer, plain, "owner@example.com")
	oldHash := mem.users[user.ID].PasswordHash

	require.NoError(t, plain.ForgotPassword(ctx, schema.ForgotPasswordRequest{Email: "owner@example.com"}))
	code := mailer.last().data["verificationCode"].(string)

	store := mem.store()
	store.PasswordResets = racingResets{memResets{mem}}
	svc := NewUserService(store, &memTx{db: mem}, mailer, testConfig())

	err := svc.ResetPassword(ctx, schema.ResetPasswordRequest{Email: "owner@example.com", VerificationCode: code, NewPassword: "N3w&Password99"})
	assertValidationMessage(t, err, MsgInvalidResetCode)
	assert.Equal(t, oldHash, mem.users[user.ID].PasswordHash)
}
