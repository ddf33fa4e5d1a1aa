package users

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role represents the authorization level of an account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is the persistent identity record. An account may carry password
// credentials, a federated (OAuth2) binding, or both. At most one refresh
// token is outstanding per account: RefreshToken and RefreshTokenExpiry are
// always set or cleared together.
type User struct {
	ID                 string     `json:"id,omitempty" db:"id"`
	Username           string     `json:"username,omitempty" db:"username"`
	Email              string     `json:"email,omitempty" db:"email"`
	PasswordHash       *string    `json:"-" db:"password_hash"` // nil for federated-only accounts
	Role               Role       `json:"role,omitempty" db:"role"`
	OAuthProvider      *string    `json:"oauth_provider,omitempty" db:"oauth_provider"`
	OAuthID            *string    `json:"-" db:"oauth_id"`
	ProfilePictureURL  *string    `json:"profile_picture_url,omitempty" db:"profile_picture_url"`
	CreatedAt          time.Time  `json:"created_at,omitempty" db:"created_at"`
	RefreshToken       *string    `json:"-" db:"refresh_token"`
	RefreshTokenExpiry *time.Time `json:"-" db:"refresh_token_expiry"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasFederatedIdentity reports whether a provider is already bound.
func (u *User) HasFederatedIdentity() bool {
	return u.OAuthProvider != nil && *u.OAuthProvider != ""
}

// ValidateNewUser checks registration input:
// - username between 2 and 30 characters
// - password at least 6 characters
// - well-formed email address
func ValidateNewUser(username, email, password string) error {
	if l := len(strings.TrimSpace(username)); l < 2 || l > 30 {
		return fmt.Errorf("username should be from 2 to 30 characters")
	}
	if len(password) < 6 {
		return fmt.Errorf("password should be at least 6 characters")
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return nil
}

func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("email should be valid")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
