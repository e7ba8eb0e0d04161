package models

import (
	"time"
)

// User represents an account that owns auctions.
type User struct {
	Base                     `bson:",inline"`
	Email                    string     `bson:"email" json:"email"`
	FullName                 string     `bson:"full_name" json:"fullName"`
	PasswordHash             string     `bson:"password" json:"-"`
	IsVerified               bool       `bson:"is_verified" json:"isVerified"`
	VerifiedSince            *time.Time `bson:"verified_since,omitempty" json:"verifiedSince,omitempty"`
	VerificationToken        string     `bson:"verification_token,omitempty" json:"-"`
	VerificationTokenExpires *time.Time `bson:"verification_token_expires,omitempty" json:"-"`
	IsActive                 bool       `bson:"is_active" json:"isActive"`
	CreatedAt                time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt                time.Time  `bson:"updated_at" json:"updatedAt"`
}

// DisplayName falls back to the local part of the email address.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	for i := 0; i < len(u.Email); i++ {
		if u.Email[i] == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}

// PasswordReset is a one-time code allowing a password change.
// A consumed reset has TokenValidUntil set.
type PasswordReset struct {
	Base             `bson:",inline"`
	UserID           int64      `bson:"user_id" json:"userId"`
	Token            int        `bson:"token" json:"-"`
	TokenExpiresAt   time.Time  `bson:"token_expires_at" json:"tokenExpiresAt"`
	TokenValidUntil  *time.Time `bson:"token_valid_until,omitempty" json:"tokenValidUntil,omitempty"`
	TokenLockedUntil *time.Time `bson:"token_locked_until,omitempty" json:"tokenLockedUntil,omitempty"`
	CreatedAt        time.Time  `bson:"created_at" json:"createdAt"`
}

// Usable reports whether the reset can still be redeemed at now.
func (r *PasswordReset) Usable(now time.Time) bool {
	return r.TokenValidUntil == nil && r.TokenExpiresAt.After(now)
}
