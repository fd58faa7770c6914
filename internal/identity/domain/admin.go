// Package domain holds the admin account aggregate used to authenticate
// dashboard and management API sessions.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrAdminNotFound indicates no admin matches the given email or id.
	ErrAdminNotFound = errors.New("admin not found")

	// ErrInvalidCredentials indicates the email or password did not match.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountInactive indicates the admin account is disabled.
	ErrAccountInactive = errors.New("account is inactive")
)

// Admin is an administrator account. Passwords are stored as bcrypt hashes.
type Admin struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	IsActive     bool       `json:"is_active"`
}

// NewAdmin creates an active admin account with a freshly hashed password.
func NewAdmin(email, password, role string) (*Admin, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = "admin"
	}
	return &Admin{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}, nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func (a *Admin) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

// HashPassword hashes a plaintext password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
