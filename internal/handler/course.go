package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/learnit/learnit-api/internal/model"
	"github.com/learnit/learnit-api/internal/repository"
)

// CourseHandler serves safety-course content to members and the course
// CRUD to admins. Completing a course is what opens the quiz gate for
// the linked machine.
type CourseHandler struct {
	Courses *repository.CourseRepo
}

func NewCourseHandler(co *repository.CourseRepo) *CourseHandler {
	if co == nil {
		panic("nil repository passed to NewCourseHandler")
	}
	return &CourseHandler{Courses: co}
}

// courseResp carries the course with slides decoded to raw JSON so the
// client receives an array, not a quoted string.
type courseResp struct {
	ID        uint64          `json:"id"`
	MachineID *uint64         `json:"machine_id,omitempty"`
	Title     string          `json:"title"`
	Slides    json.RawMessage `json:"slides"`
	Published bool            `json:"published"`
}

func toCourseResp(c model.Course) courseResp {
	slides := json.RawMessage(c.Slides)
	if !json.Valid(slides) {
		slides = json.RawMessage("[]")
	}
	return courseResp{ID: c.ID, MachineID: c.MachineID, Title: c.Title, Slides: slides, Published: c.Published}
}

// List handles GET /v1/courses. Members see only published courses;
// admins see drafts too.
func (h *CourseHandler) List(c echo.Context) error {
	courses, err := h.Courses.List(c.Request().Context(), !isAdmin(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load courses"})
	}
	items := make([]courseResp, 0, len(courses))
	for _, crs := range courses {
		items = append(items, toCourseResp(crs))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/courses/:id. Unpublished courses are hidden from
// members as if they did not exist.
func (h *CourseHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}
	crs, err := h.Courses.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrCourseNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !crs.Published && !isAdmin(c) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": toCourseResp(crs)})
}

// Complete handles POST /v1/courses/:id/complete. The completion
// record is idempotent: re-reading a course and completing it again is
// a no-op, and the original completion date is kept.
func (h *CourseHandler) Complete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}
	ctx := c.Request().Context()

	crs, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrCourseNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !crs.Published && !isAdmin(c) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
	}
	if err := h.Courses.MarkComplete(ctx, userID, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record completion failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"course_id": id, "completed": true})
}

// ----- admin operations -----

type courseCreateReq struct {
	MachineID *uint64         `json:"machine_id"`
	Title     string          `json:"title"`
	Slides    json.RawMessage `json:"slides"`
	Published bool            `json:"published"`
}

// Create handles POST /v1/admin/courses.
func (h *CourseHandler) Create(c echo.Context) error {
	var req courseCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	slides := string(req.Slides)
	if slides == "" {
		slides = "[]"
	}
	if !json.Valid([]byte(slides)) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slides must be valid JSON"})
	}

	crs := model.Course{MachineID: req.MachineID, Title: req.Title, Slides: slides, Published: req.Published}
	if err := h.Courses.Create(c.Request().Context(), &crs); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create course failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": toCourseResp(crs)})
}

type courseUpdateReq struct {
	MachineID *uint64         `json:"machine_id"`
	Title     *string         `json:"title"`
	Slides    json.RawMessage `json:"slides"`
	Published *bool           `json:"published"`
}

// Update handles PUT /v1/admin/courses/:id with partial semantics.
func (h *CourseHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}
	var req courseUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title cannot be empty"})
	}
	var slides *string
	if len(req.Slides) > 0 {
		if !json.Valid(req.Slides) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "slides must be valid JSON"})
		}
		s := string(req.Slides)
		slides = &s
	}
	ctx := c.Request().Context()
	if err := h.Courses.Update(ctx, id, req.Title, slides, req.MachineID, req.Published); err != nil {
		if err == repository.ErrCourseNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update course failed"})
	}
	crs, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": toCourseResp(crs)})
}

// Delete handles DELETE /v1/admin/courses/:id.
func (h *CourseHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}
	if err := h.Courses.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrCourseNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete course failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
