package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/learnit/learnit-api/internal/model"
	"github.com/learnit/learnit-api/internal/queue"
	"github.com/learnit/learnit-api/internal/repository"
	"github.com/learnit/learnit-api/internal/rules"
	queuepub "github.com/learnit/learnit-api/internal/service"
)

// BookingHandler owns slot reservation and the booking review queue.
// The availability check and the insert run inside one transaction so
// two members submitting the same (machine, date, slot) triple can
// never both succeed; the unique index on the bookings table backstops
// the race.
type BookingHandler struct {
	Bookings *repository.BookingRepo
	Machines *repository.MachineRepo
	Courses  *repository.CourseRepo
	Certs    *repository.CertificationRepo
}

func NewBookingHandler(b *repository.BookingRepo, m *repository.MachineRepo, co *repository.CourseRepo, ce *repository.CertificationRepo) *BookingHandler {
	if b == nil || m == nil || co == nil || ce == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: b, Machines: m, Courses: co, Certs: ce}
}

type bookingCreateReq struct {
	MachineID uint64 `json:"machine_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	TimeSlot  string `json:"time_slot"`
}

// Create handles POST /v1/bookings. The request is validated in
// order: slot label, date, machine existence, machine operational
// status, then eligibility (must be Certified). Only then does the
// reserve-if-free transaction run. The new booking starts PENDING and
// waits for admin review.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookingCreateReq
	if err := c.Bind(&req); err != nil || req.MachineID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "machine_id, date and time_slot required"})
	}
	if !rules.ValidSlot(req.TimeSlot) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time slot"})
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	if repository.DateOnly(date).Before(repository.DateOnly(time.Now())) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is in the past"})
	}
	ctx := c.Request().Context()

	machine, err := h.Machines.GetByID(ctx, req.MachineID)
	if err != nil {
		if err == repository.ErrMachineNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "machine not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if machine.Status != model.MachineStatusAvailable {
		return c.JSON(http.StatusConflict, echo.Map{"error": "machine is not available", "status": machine.Status})
	}

	ec := loadEligibilityContext(ctx, isAdmin(c), userID, h.Machines, h.Certs, h.Courses)
	if elig := ec.evaluate(&machine); elig != rules.Certified {
		return c.JSON(http.StatusConflict, echo.Map{"error": "not certified for this machine", "eligibility": elig})
	}

	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rec := repository.BookingRecord{
		Reference:   uuid.NewString(),
		UserID:      userID,
		MachineID:   machine.ID,
		BookingDate: date,
		TimeSlot:    req.TimeSlot,
	}
	if err := h.Bookings.ReserveTx(ctx, tx, &rec); err != nil {
		if err == repository.ErrSlotTaken {
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot already booked"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	go func(ev queue.BookingCreatedEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queuepub.PublishBookingCreated(ctx, ev)
	}(queue.BookingCreatedEvent{
		BookingID:   rec.ID,
		Reference:   rec.Reference,
		UserID:      userID,
		MachineID:   machine.ID,
		MachineName: machine.Name,
		BookingDate: repository.DateOnly(date).Format("2006-01-02"),
		TimeSlot:    req.TimeSlot,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"id":        rec.ID,
		"reference": rec.Reference,
		"machine":   machine.Name,
		"date":      repository.DateOnly(date).Format("2006-01-02"),
		"time_slot": req.TimeSlot,
		"status":    rec.Status,
	})
}

// Mine handles GET /v1/bookings. Bookings whose machine was deleted
// are dropped by the join rather than surfaced as errors.
func (h *BookingHandler) Mine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// Cancel handles DELETE /v1/bookings/:id. Members may only cancel
// their own booking while it is still PENDING; cancellation releases
// the slot for re-booking.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()

	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rec, err := h.Bookings.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if rec.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Bookings.TransitionTx(ctx, tx, rec, model.BookingStatusCanceled, false); err != nil {
		if err == repository.ErrInvalidTransition {
			return c.JSON(http.StatusConflict, echo.Map{"error": "only pending bookings can be canceled"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel booking failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publishDecision(rec, model.BookingStatusCanceled, userID)
	return c.NoContent(http.StatusNoContent)
}

// ----- admin operations -----

// ListAll handles GET /v1/admin/bookings with optional machine_id,
// date and status filters.
func (h *BookingHandler) ListAll(c echo.Context) error {
	var machineID uint64
	if raw := c.QueryParam("machine_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid machine_id"})
		}
		machineID = id
	}
	var date *time.Time
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		date = &d
	}
	status := c.QueryParam("status")
	if status != "" && !validBookingStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	details, err := h.Bookings.ListAll(c.Request().Context(), machineID, date, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

type decideReq struct {
	Status string `json:"status"`
}

// Decide handles PATCH /v1/admin/bookings/:id/status. The status
// machine is enforced under a row lock so two admins cannot race to
// contradictory decisions; an illegal transition is a 409, not a 500.
func (h *BookingHandler) Decide(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req decideReq
	if err := c.Bind(&req); err != nil || !validBookingStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	ctx := c.Request().Context()

	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rec, err := h.Bookings.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.Bookings.TransitionTx(ctx, tx, rec, req.Status, true); err != nil {
		if err == repository.ErrInvalidTransition {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "invalid transition",
				"from":  rec.Status,
				"to":    req.Status,
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update booking failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publishDecision(rec, req.Status, adminID)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}

func (h *BookingHandler) publishDecision(rec repository.BookingRecord, to string, byID uint64) {
	go func(ev queue.BookingDecidedEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queuepub.PublishBookingDecided(ctx, ev)
	}(queue.BookingDecidedEvent{
		BookingID:   rec.ID,
		Reference:   rec.Reference,
		UserID:      rec.UserID,
		MachineID:   rec.MachineID,
		FromStatus:  rec.Status,
		ToStatus:    to,
		DecidedByID: byID,
		DecidedAt:   time.Now().UTC().Format(time.RFC3339),
	})
}

func validBookingStatus(s string) bool {
	switch s {
	case model.BookingStatusPending, model.BookingStatusApproved, model.BookingStatusRejected,
		model.BookingStatusCompleted, model.BookingStatusCanceled:
		return true
	}
	return false
}
