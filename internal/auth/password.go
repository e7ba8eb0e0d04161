package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost matches the work factor used for existing account hashes.
const PasswordCost = 12

const (
	passwordMinLength = 12
	passwordSpecials  = "@$!%*?&"
)

// PasswordPolicyMessage is shown when a password fails MeetsPolicy.
const PasswordPolicyMessage = "Password must be at least 12 characters and include uppercase, lowercase, number, and special character"

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// MeetsPolicy reports whether password has at least 12 characters drawn from
// ASCII letters, digits and @$!%*?&, with at least one of each class.
func MeetsPolicy(password string) bool {
	if len(password) < passwordMinLength {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return false
		case 'a' <= r && r <= 'z':
			lower = true
		case 'A' <= r && r <= 'Z':
			upper = true
		case '0' <= r && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}
