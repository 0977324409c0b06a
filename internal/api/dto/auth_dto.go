package dto

import (
	"time"

	"github.com/spec-kit/ims-service/internal/domain"
)

// LoginRequest payload for login. Accepted as JSON or form fields.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Message   string          `json:"message"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      *domain.Account `json:"user"`
}

// SessionResponse describes the caller of an authenticated request.
type SessionResponse struct {
	UserID    string          `json:"userId"`
	Role      string          `json:"role"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      *domain.Account `json:"user"`
}
