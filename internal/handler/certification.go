package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/learnit/learnit-api/internal/queue"
	"github.com/learnit/learnit-api/internal/repository"
	queuepub "github.com/learnit/learnit-api/internal/service"
)

// manualGrantScore marks certifications granted by an admin without a
// quiz attempt.
const manualGrantScore = -1

// CertificationHandler serves the member's certification wallet and
// the admin grant/revoke endpoints.
type CertificationHandler struct {
	Certs    *repository.CertificationRepo
	Machines *repository.MachineRepo
	Users    *repository.UserRepo
}

func NewCertificationHandler(ce *repository.CertificationRepo, m *repository.MachineRepo, u *repository.UserRepo) *CertificationHandler {
	if ce == nil || m == nil || u == nil {
		panic("nil repository passed to NewCertificationHandler")
	}
	return &CertificationHandler{Certs: ce, Machines: m, Users: u}
}

// Mine handles GET /v1/certifications. Certifications whose machine
// was deleted are pruned before the read so the wallet never shows a
// grant for a machine that no longer exists.
func (h *CertificationHandler) Mine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Certs.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load certifications"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// ListForUser handles GET /v1/admin/users/:id/certifications.
func (h *CertificationHandler) ListForUser(c echo.Context) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	details, err := h.Certs.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load certifications"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

type grantReq struct {
	UserID    uint64 `json:"user_id"`
	MachineID uint64 `json:"machine_id"`
}

// Grant handles POST /v1/admin/certifications, the manual grant path
// for walk-in inductions. The grant is idempotent; granting an already
// certified pair reports created=false and changes nothing.
func (h *CertificationHandler) Grant(c echo.Context) error {
	var req grantReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.MachineID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and machine_id required"})
	}
	ctx := c.Request().Context()

	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	machine, err := h.Machines.GetByID(ctx, req.MachineID)
	if err != nil {
		if err == repository.ErrMachineNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "machine not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	created, err := h.Certs.Grant(ctx, req.UserID, req.MachineID, manualGrantScore)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant failed"})
	}
	if created {
		go func(ev queue.CertificationGrantedEvent) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = queuepub.PublishCertificationGranted(ctx, ev)
		}(queue.CertificationGrantedEvent{
			UserID:      req.UserID,
			MachineID:   req.MachineID,
			MachineName: machine.Name,
			Score:       manualGrantScore,
			Manual:      true,
			IssuedAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"user_id":    req.UserID,
		"machine_id": req.MachineID,
		"created":    created,
	})
}

// Revoke handles DELETE /v1/admin/certifications. Revoking the safety
// certification re-locks every gated machine for the user on their
// next eligibility evaluation; no booking cleanup happens here.
func (h *CertificationHandler) Revoke(c echo.Context) error {
	var req grantReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.MachineID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and machine_id required"})
	}
	err := h.Certs.Revoke(c.Request().Context(), req.UserID, req.MachineID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "certification not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
