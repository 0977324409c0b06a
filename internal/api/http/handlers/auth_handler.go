package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ims-service/internal/api/dto"
	"github.com/spec-kit/ims-service/internal/auth"
	"github.com/spec-kit/ims-service/internal/service"
	apperrors "github.com/spec-kit/ims-service/pkg/util/errorutil"
)

// AuthHandler exposes login and session endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.LoginResponse{
		Message:   "Login successful",
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.Account,
	})
}

// Session handles GET /api/auth/session. The auth middleware has already verified the token.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing session")
	}

	res, err := h.auth.SessionAccount(c.UserContext(), session)
	if err != nil {
		return err
	}

	return c.JSON(dto.SessionResponse{
		UserID:    res.Session.AccountID,
		Role:      res.Session.RoleName,
		ExpiresAt: res.Session.ExpiresAt,
		User:      res.Account,
	})
}
