package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/auth"
	"greendrake/freight/internal/config"
	"greendrake/freight/internal/db"
	"greendrake/freight/internal/models"
	"greendrake/freight/internal/repository"
	"greendrake/freight/internal/schema"
	"greendrake/freight/internal/utils"
)

// User-facing messages of the account flows.
const (
	MsgUserCreated            = "User created successfully"
	MsgUserExists             = "User already exists"
	MsgVerificationMailFailed = "User created but failed to send verification email"
	MsgInvalidVerification    = "Invalid or expired verification code. Please request a new verification code."
	MsgAlreadyVerified        = "Email is already verified. Please proceed to login."
	MsgEmailVerified          = "Email verified successfully"
	MsgInvalidCredentials     = "Invalid email or password"
	MsgResetRequested         = "If the email exists, you will receive reset instructions"
	MsgInvalidCodeFormat      = "Invalid verification code format"
	MsgInvalidEmailOrCode     = "Invalid email or verification code"
	MsgInvalidResetCode       = "Invalid or expired verification code"
	MsgPasswordReset          = "Password has been reset successfully"
)

// ErrMailDelivery is returned when an account was stored but its email could not be queued.
var ErrMailDelivery = errors.New(MsgVerificationMailFailed)

// LoginResult carries a session token for an authenticated user.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Profile is what a user sees about their own account.
type Profile struct {
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"createdAt"`
	IsVerified bool      `json:"isVerified"`
	IsActive   bool      `json:"isActive"`
}

// IUserService covers registration, verification, login and password reset.
type IUserService interface {
	Register(ctx context.Context, in schema.RegisterRequest) (*models.User, error)
	VerifyEmail(ctx context.Context, in schema.VerifyEmailRequest) error
	Login(ctx context.Context, in schema.LoginRequest) (*LoginResult, error)
	ForgotPassword(ctx context.Context, in schema.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, in schema.ResetPasswordRequest) error
	Profile(ctx context.Context, userID int64) (*Profile, error)
}

type userService struct {
	users  repository.UserRepository
	resets repository.PasswordResetRepository
	tx     db.Transactor
	mailer IMailer
	cfg    *config.Config
	now    func() time.Time
}

// NewUserService creates a new IUserService.
func NewUserService(store *repository.Store, tx db.Transactor, mailer IMailer, cfg *config.Config) IUserService {
	return &userService{
		users:  store.Users,
		resets: store.PasswordResets,
		tx:     tx,
		mailer: mailer,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, in schema.RegisterRequest) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := schema.Validate(in); err != nil {
		return nil, err
	}
	email := in.Email

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, auctionerrors.NewValidationError(MsgUserExists)
	} else if !errors.Is(err, auctionerrors.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	code, err := auth.GenerateVerificationCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	expires := now.Add(s.cfg.VerificationCodeTTL)
	user := &models.User{
		Email:                    email,
		FullName:                 strings.TrimSpace(in.FullName),
		PasswordHash:             hash,
		VerificationToken:        strconv.Itoa(code),
		VerificationTokenExpires: &expires,
		IsActive:                 true,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, auctionerrors.NewValidationError(MsgUserExists)
		}
		return nil, err
	}

	if err := s.mailer.Send(ctx, user.Email, models.TemplateVerifyEmail, s.mailData(user, strconv.Itoa(code))); err != nil {
		utils.Error("failed to queue verification email", map[string]any{"user_id": user.ID, "error": err.Error()})
		return user, ErrMailDelivery
	}
	utils.Info("user registered", map[string]any{"user_id": user.ID})
	return user, nil
}

func (s *userService) VerifyEmail(ctx context.Context, in schema.VerifyEmailRequest) error {
	in.Email = normalizeEmail(in.Email)
	if err := schema.Validate(in); err != nil {
		return err
	}
	user, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return auctionerrors.NewValidationError(MsgInvalidVerification)
	}
	if err != nil {
		return err
	}
	if user.IsVerified {
		return auctionerrors.NewValidationError(MsgAlreadyVerified)
	}

	now := s.now()
	if user.VerificationToken == "" || user.VerificationToken != in.VerificationCode ||
		user.VerificationTokenExpires == nil || !user.VerificationTokenExpires.After(now) {
		return auctionerrors.NewValidationError(MsgInvalidVerification)
	}
	if err := s.users.MarkVerified(ctx, user.ID, now); err != nil {
		return err
	}
	utils.Info("email verified", map[string]any{"user_id": user.ID})
	return nil
}

// Login checks credentials of an active, verified user. Every failure is
// reported the same way.
func (s *userService) Login(ctx context.Context, in schema.LoginRequest) (*LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := schema.Validate(in); err != nil {
		return nil, err
	}
	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrNotFound) {
			return nil, &auctionerrors.AuthError{Reason: MsgInvalidCredentials}
		}
		return nil, err
	}
	if !user.IsActive || !user.IsVerified || !auth.CheckPasswordHash(in.Password, user.PasswordHash) {
		return nil, &auctionerrors.AuthError{Reason: MsgInvalidCredentials}
	}

	token, expiresAt, err := auth.GenerateJWT(user.ID, user.Email, s.cfg.JwtSecret, s.cfg.JwtTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ForgotPassword never reveals whether the email is registered.
func (s *userService) ForgotPassword(ctx context.Context, in schema.ForgotPasswordRequest) error {
	in.Email = normalizeEmail(in.Email)
	if err := schema.Validate(in); err != nil {
		return err
	}
	user, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	code, err := auth.GenerateVerificationCode()
	if err != nil {
		return err
	}
	now := s.now()
	reset := &models.PasswordReset{
		UserID:         user.ID,
		Token:          code,
		TokenExpiresAt: now.Add(s.cfg.PasswordResetTTL),
		CreatedAt:      now,
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, user.Email, models.TemplatePasswordReset, s.mailData(user, strconv.Itoa(code))); err != nil {
		utils.Error("failed to queue password reset email", map[string]any{"user_id": user.ID, "error": err.Error()})
	}
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, in schema.ResetPasswordRequest) error {
	in.Email = normalizeEmail(in.Email)
	if err := schema.Validate(in); err != nil {
		return err
	}
	code, err := strconv.Atoi(strings.TrimSpace(in.VerificationCode))
	if err != nil {
		return auctionerrors.NewValidationError(MsgInvalidCodeFormat)
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return auctionerrors.NewValidationError(MsgInvalidEmailOrCode)
	}
	if err != nil {
		return err
	}

	now := s.now()
	reset, err := s.resets.FindValid(ctx, user.ID, code, now)
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return auctionerrors.NewValidationError(MsgInvalidResetCode)
	}
	if err != nil {
		return err
	}

	if !auth.MeetsPolicy(in.NewPassword) {
		return auctionerrors.NewValidationError(auth.PasswordPolicyMessage,
			auctionerrors.FieldError{Field: "newPassword", Message: auth.PasswordPolicyMessage, Code: "password_policy"})
	}
	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}

	// A code already consumed by a concurrent reset fails here and rolls back.
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.resets.Invalidate(txCtx, reset.ID, now, now.Add(s.cfg.PasswordResetLock)); err != nil {
			return err
		}
		return s.users.UpdatePassword(txCtx, user.ID, hash, now)
	})
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return auctionerrors.NewValidationError(MsgInvalidResetCode)
	}
	if err != nil {
		return auctionerrors.NewPersistence("reset password", err)
	}
	utils.Info("password reset", map[string]any{"user_id": user.ID})
	return nil
}

func (s *userService) Profile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		FullName:   user.FullName,
		Email:      user.Email,
		CreatedAt:  user.CreatedAt,
		IsVerified: user.IsVerified,
		IsActive:   user.IsActive,
	}, nil
}

// mailData is the template data shared by account emails.
func (s *userService) mailData(user *models.User, code string) map[string]any {
	return map[string]any{
		"userFullName":        user.DisplayName(),
		"verificationCode":    code,
		"companyName":         s.cfg.CompanyName,
		"companyAddressLine1": s.cfg.CompanyAddressLine1,
		"companyAddressLine2": s.cfg.CompanyAddressLine2,
		"currentYear":         strconv.Itoa(s.now().Year()),
		"privacyPolicyUrl":    s.cfg.PrivacyPolicyURL,
		"termsUrl":            s.cfg.TermsURL,
		"unsubscribeUrl":      s.cfg.UnsubscribeURL,
		"preferencesUrl":      s.cfg.PreferencesURL,
	}
}
