package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velodepot/bikeshop/internal/auth"
	"github.com/velodepot/bikeshop/internal/repository"
)

// AdminHandler manages role assignments.  Every mutation invalidates
// the affected user's cached grants so the change is effective on the
// next request instead of after cache expiry.
type AdminHandler struct {
	Roles *repository.RoleRepo
	Cache *auth.RoleCache
}

func NewAdminHandler(roles *repository.RoleRepo, cache *auth.RoleCache) *AdminHandler {
	return &AdminHandler{Roles: roles, Cache: cache}
}

type roleChangeReq struct {
	UserID uint64 `json:"user_id"`
	Role   string `json:"role"`
}

// ListRoles returns every defined role.
func (h *AdminHandler) ListRoles(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	roles, err := h.Roles.ListRoles(ctx)
	if err != nil {
		return writeServiceError(c, err)
	}
	data := make([]echo.Map, 0, len(roles))
	for _, r := range roles {
		data = append(data, echo.Map{"id": r.ID, "name": r.Name})
	}
	return c.JSON(http.StatusOK, data)
}

// AssignRole grants a role to a user.
func (h *AdminHandler) AssignRole(c echo.Context) error {
	var req roleChangeReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.Role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and role required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.GetByName(ctx, req.Role)
	if err != nil {
		if err == repository.ErrRoleNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
		}
		return writeServiceError(c, err)
	}
	if err := h.Roles.Assign(ctx, req.UserID, role.ID); err != nil {
		return writeServiceError(c, err)
	}
	h.Cache.Invalidate(req.UserID)
	return c.JSON(http.StatusOK, echo.Map{"message": "role assigned"})
}

// RevokeRole removes a role from a user.
func (h *AdminHandler) RevokeRole(c echo.Context) error {
	var req roleChangeReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.Role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and role required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.GetByName(ctx, req.Role)
	if err != nil {
		if err == repository.ErrRoleNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
		}
		return writeServiceError(c, err)
	}
	if err := h.Roles.Revoke(ctx, req.UserID, role.ID); err != nil {
		return writeServiceError(c, err)
	}
	h.Cache.Invalidate(req.UserID)
	return c.JSON(http.StatusOK, echo.Map{"message": "role revoked"})
}

// FlushAuthCache drops all cached grants, forcing fresh authorization
// lookups.  Useful after direct database changes.
func (h *AdminHandler) FlushAuthCache(c echo.Context) error {
	h.Cache.InvalidateAll()
	return c.JSON(http.StatusOK, echo.Map{"message": "auth cache flushed"})
}
