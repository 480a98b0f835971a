package auth

import (
	"time"

	"github.com/farmlink/farmlink-backend/internal/users"
)

// RegisterRequest is the self sign-up payload.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email,max=254"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Name     string  `json:"name" validate:"required,max=120"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role     string  `json:"role" validate:"required,oneof=buyer farmer"`
}

// LoginRequest carries user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned to the client; the token is also set as a cookie.
type LoginResponse struct {
	AccessToken string         `json:"accessToken"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	User        *users.UserDTO `json:"user"`

	// AccessID is the jti, kept server side for logout.
	AccessID string `json:"-"`
}
