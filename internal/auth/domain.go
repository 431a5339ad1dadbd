package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is an account that can sign in.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Permissions  []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Claims is the JWT payload. Permissions ride in the token so request
// authorization does not hit the database.
type Claims struct {
	UserID      int64    `json:"uid"`
	Username    string   `json:"username"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}
