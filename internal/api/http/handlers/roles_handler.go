package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ims-service/internal/domain"
	"github.com/spec-kit/ims-service/internal/service"
)

// RolesHandler serves role and class reference data.
type RolesHandler struct {
	roles *service.RoleService
}

// NewRolesHandler constructs handler.
func NewRolesHandler(roles *service.RoleService) *RolesHandler {
	return &RolesHandler{roles: roles}
}

// ListRoles handles GET /api/roles. ?exclude=<name> drops one role by name.
func (h *RolesHandler) ListRoles(c *fiber.Ctx) error {
	var (
		roles []domain.Role
		err   error
	)
	if exclude := c.Query("exclude"); exclude != "" {
		roles, err = h.roles.ListRolesExcluding(c.UserContext(), exclude)
	} else {
		roles, err = h.roles.ListRoles(c.UserContext())
	}
	if err != nil {
		return err
	}
	return c.JSON(roles)
}

// ListClasses handles GET /api/classes.
func (h *RolesHandler) ListClasses(c *fiber.Ctx) error {
	classes, err := h.roles.ListClasses(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(classes)
}
