package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/learnit/learnit-api/internal/config"
	"github.com/learnit/learnit-api/internal/model"
	"github.com/learnit/learnit-api/internal/repository"
)

// UserHandler owns the admin roster endpoints plus the member's own
// profile updates.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo) *UserHandler {
	if u == nil {
		panic("nil repository passed to NewUserHandler")
	}
	return &UserHandler{Cfg: cfg, Users: u}
}

// rosterEntry strips the password hash from the user row.
type rosterEntry struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Role        string  `json:"role"`
	IsActive    bool    `json:"is_active"`
	LastLoginAt *string `json:"last_login_at"`
	CreatedAt   string  `json:"created_at"`
}

func toRosterEntry(u model.User) rosterEntry {
	e := rosterEntry{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if u.LastLoginAt != nil {
		s := u.LastLoginAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		e.LastLoginAt = &s
	}
	return e
}

// List handles GET /v1/admin/users.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load users"})
	}
	items := make([]rosterEntry, 0, len(users))
	for _, u := range users {
		items = append(items, toRosterEntry(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type roleReq struct {
	Role string `json:"role"`
}

// SetRole handles PATCH /v1/admin/users/:id/role. An admin cannot
// demote themselves, which guarantees at least one admin remains.
func (h *UserHandler) SetRole(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Role != model.RoleMember && req.Role != model.RoleAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}
	if self, err := getUserID(c); err == nil && self == id && req.Role != model.RoleAdmin {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot demote yourself"})
	}
	if err := h.Users.SetRole(c.Request().Context(), id, req.Role); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update role failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "role": req.Role})
}

type activeReq struct {
	IsActive bool `json:"is_active"`
}

// SetActive handles PATCH /v1/admin/users/:id/active. Deactivated
// users fail login; their sessions die with their refresh tokens.
func (h *UserHandler) SetActive(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req activeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if self, err := getUserID(c); err == nil && self == id && !req.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot deactivate yourself"})
	}
	if err := h.Users.SetActive(c.Request().Context(), id, req.IsActive); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_active": req.IsActive})
}

// Delete handles DELETE /v1/admin/users/:id. Bookings and
// certifications cascade with the row.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if self, err := getUserID(c); err == nil && self == id {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot delete yourself"})
	}
	if err := h.Users.Delete(c.Request().Context(), id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete user failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- member self-service -----

type profileReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateProfile handles PATCH /v1/me. Empty fields are left unchanged.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Users.UpdateProfile(c.Request().Context(), userID, req.Name, req.Email); err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update profile failed"})
	}
	u, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": toRosterEntry(u)})
}

type passwordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles PATCH /v1/me/password. The current password
// must verify before the new one is stored.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req passwordReq
	if err := c.Bind(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current_password and new_password required"})
	}
	err = h.Users.ChangePassword(c.Request().Context(), userID, req.CurrentPassword, req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrForbidden {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "current password is wrong"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
