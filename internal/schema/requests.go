package schema

import "greendrake/freight/internal/models"

// AssignParticipantsRequest is the body of POST /auctions/:id/participants.
// An empty list passes the schema and is rejected by the eligibility check.
type AssignParticipantsRequest struct {
	ParticipantIDs []int64 `json:"participantIds" validate:"required,dive,gt=0"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password_policy"`
	FullName string `json:"fullName,omitempty"`
}

type VerifyEmailRequest struct {
	Email            string `json:"email" validate:"required,email"`
	VerificationCode string `json:"verificationCode" validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest leaves code format checks to the service so that a
// non-numeric code gets its own message.
type ResetPasswordRequest struct {
	Email            string `json:"email" validate:"required,email"`
	VerificationCode string `json:"verificationCode" validate:"required"`
	NewPassword      string `json:"newPassword" validate:"required"`
}

type ParticipantCreate struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	ContactName string `json:"contactName" validate:"required"`
	Phone       string `json:"phone" validate:"required,phone"`
}

// ParticipantUpdate is a partial update; nil fields are left untouched.
type ParticipantUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitnil,min=1"`
	Email       *string `json:"email,omitempty" validate:"omitnil,email"`
	ContactName *string `json:"contactName,omitempty" validate:"omitnil,min=1"`
	Phone       *string `json:"phone,omitempty" validate:"omitnil,phone"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u ParticipantUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.ContactName == nil && u.Phone == nil && u.IsActive == nil
}

// AuctionWrite is the body of auction create and update.
type AuctionWrite = models.AuctionDetail
