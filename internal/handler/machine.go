package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/learnit/learnit-api/internal/model"
	"github.com/learnit/learnit-api/internal/repository"
	"github.com/learnit/learnit-api/internal/rules"
)

// MachineHandler groups the repositories needed to list machines with
// per-user eligibility, expose slot availability and run the admin
// machine CRUD. Eligibility is always computed through the rules
// package; handlers never re-derive gating logic.
type MachineHandler struct {
	Machines *repository.MachineRepo
	Courses  *repository.CourseRepo
	Certs    *repository.CertificationRepo
	Bookings *repository.BookingRepo
}

func NewMachineHandler(m *repository.MachineRepo, co *repository.CourseRepo, ce *repository.CertificationRepo, b *repository.BookingRepo) *MachineHandler {
	if m == nil || co == nil || ce == nil || b == nil {
		panic("nil repository passed to NewMachineHandler")
	}
	return &MachineHandler{Machines: m, Courses: co, Certs: ce, Bookings: b}
}

// machineResp is the member-facing machine representation. Eligibility
// is the caller's own access level for the machine.
type machineResp struct {
	ID              uint64            `json:"id"`
	Name            string            `json:"name"`
	Type            string            `json:"type"`
	Description     string            `json:"description"`
	Status          string            `json:"status"`
	MaintenanceNote *string           `json:"maintenance_note,omitempty"`
	CourseID        *uint64           `json:"course_id,omitempty"`
	QuizID          *uint64           `json:"quiz_id,omitempty"`
	RequiresCert    bool              `json:"requires_certification"`
	Eligibility     rules.Eligibility `json:"eligibility"`
}

func toMachineResp(m model.Machine, elig rules.Eligibility) machineResp {
	return machineResp{
		ID:              m.ID,
		Name:            m.Name,
		Type:            m.Type,
		Description:     m.Description,
		Status:          m.Status,
		MaintenanceNote: m.MaintenanceNote,
		CourseID:        m.CourseID,
		QuizID:          m.QuizID,
		RequiresCert:    m.RequiresCertification,
		Eligibility:     elig,
	}
}

// List handles GET /v1/machines. Every machine is returned annotated
// with the caller's eligibility; locked machines stay visible so the
// client can render the lock state, but their course/quiz links are
// withheld.
func (h *MachineHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	machines, err := h.Machines.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load machines"})
	}
	ec := loadEligibilityContext(ctx, isAdmin(c), userID, h.Machines, h.Certs, h.Courses)

	items := make([]machineResp, 0, len(machines))
	for i := range machines {
		elig := ec.evaluate(&machines[i])
		resp := toMachineResp(machines[i], elig)
		if elig == rules.Locked {
			resp.CourseID = nil
			resp.QuizID = nil
		}
		items = append(items, resp)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/machines/:id.
func (h *MachineHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid machine id"})
	}
	ctx := c.Request().Context()

	m, err := h.Machines.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrMachineNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "machine not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	ec := loadEligibilityContext(ctx, isAdmin(c), userID, h.Machines, h.Certs, h.Courses)
	return c.JSON(http.StatusOK, echo.Map{"item": toMachineResp(m, ec.evaluate(&m))})
}

// Availability handles GET /v1/machines/:id/availability?date=YYYY-MM-DD.
// It returns the free slot labels for the machine on that date, i.e.
// the fixed daily template minus slots held by PENDING or APPROVED
// bookings.
func (h *MachineHandler) Availability(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid machine id"})
	}
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	ctx := c.Request().Context()

	if _, err := h.Machines.GetByID(ctx, id); err != nil {
		if err == repository.ErrMachineNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "machine not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	occupied, err := h.Bookings.OccupiedSlots(ctx, id, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":       date.Format("2006-01-02"),
		"slots":      rules.Slots(),
		"free_slots": rules.FreeSlots(occupied),
	})
}

// ----- admin operations -----

type machineCreateReq struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Description  string  `json:"description"`
	CourseID     *uint64 `json:"course_id"`
	QuizID       *uint64 `json:"quiz_id"`
	RequiresCert bool    `json:"requires_certification"`
}

func validMachineType(t string) bool {
	switch t {
	case model.MachineTypeMachine, model.MachineTypeSafetyCabinet,
		model.MachineTypeSafetyCourse, model.MachineTypeEquipment:
		return true
	}
	return false
}

// Create handles POST /v1/admin/machines.
func (h *MachineHandler) Create(c echo.Context) error {
	var req machineCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if !validMachineType(req.Type) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid machine type"})
	}

	m := model.Machine{
		Name:                  req.Name,
		Type:                  req.Type,
		Description:           req.Description,
		Status:                model.MachineStatusAvailable,
		CourseID:              req.CourseID,
		QuizID:                req.QuizID,
		RequiresCertification: req.RequiresCert,
	}
	if err := h.Machines.Create(c.Request().Context(), &m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create machine failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": toMachineResp(m, rules.Certified)})
}

type machineUpdateReq struct {
	Name         *string `json:"name"`
	Type         *string `json:"type"`
	Description  *string `json:"description"`
	CourseID     *uint64 `json:"course_id"`
	QuizID       *uint64 `json:"quiz_id"`
	RequiresCert *bool   `json:"requires_certification"`
}

// Update handles PUT /v1/admin/machines/:id with partial semantics:
// absent fields are left unchanged.
func (h *MachineHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid machine id"})
	}
	var req machineUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Type != nil && !validMachineType(*req.Type) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid machine type"})
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
	}
	ctx := c.Request().Context()
	err = h.Machines.Update(ctx, id, req.Name, req.Type, req.Description, req.CourseID, req.QuizID, req.RequiresCert)
	if err != nil {
		if err == repository.ErrMachineNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "machine not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update machine failed"})
	}
	m, err := h.Machines.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": toMachineResp(m, rules.Certified)})
}

type machineStatusReq struct {
	Status          string  `json:"status"`
	MaintenanceNote *string `json:"maintenance_note"`
}

// UpdateStatus handles PATCH /v1/admin/machines/:id/status, the admin
// status override. Last writer wins; there is no concurrency token on
// the machine row.
func (h *MachineHandler) UpdateStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid machine id"})
	}
	var req machineStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	switch req.Status {
	case model.MachineStatusAvailable, model.MachineStatusMaintenance, model.MachineStatusInUse:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	if req.Status != model.MachineStatusMaintenance {
		// Notes only make sense on maintenance; clear otherwise.
		req.MaintenanceNote = nil
	}
	err = h.Machines.UpdateStatus(c.Request().Context(), id, req.Status, req.MaintenanceNote)
	if err != nil {
		if err == repository.ErrMachineNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "machine not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update status failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}

// Delete handles DELETE /v1/admin/machines/:id. Machines with PENDING
// or APPROVED bookings cannot be deleted.
func (h *MachineHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid machine id"})
	}
	err = h.Machines.Delete(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrMachineNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "machine not found"})
		}
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "machine has active bookings"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete machine failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
