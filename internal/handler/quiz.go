package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/learnit/learnit-api/internal/model"
	"github.com/learnit/learnit-api/internal/queue"
	"github.com/learnit/learnit-api/internal/repository"
	"github.com/learnit/learnit-api/internal/rules"
	queuepub "github.com/learnit/learnit-api/internal/service"
)

// QuizHandler serves sanitized quizzes to members and owns the submit
// flow: grading and the certification grant happen inside one
// transaction so a passed quiz can never leave a member uncertified.
type QuizHandler struct {
	Quizzes  *repository.QuizRepo
	Courses  *repository.CourseRepo
	Machines *repository.MachineRepo
	Certs    *repository.CertificationRepo
}

func NewQuizHandler(q *repository.QuizRepo, co *repository.CourseRepo, m *repository.MachineRepo, ce *repository.CertificationRepo) *QuizHandler {
	if q == nil || co == nil || m == nil || ce == nil {
		panic("nil repository passed to NewQuizHandler")
	}
	return &QuizHandler{Quizzes: q, Courses: co, Machines: m, Certs: ce}
}

// questionResp is the member-facing question shape. The correct index
// is deliberately absent; grading happens server-side only.
type questionResp struct {
	ID       uint64          `json:"id"`
	Position uint32          `json:"position"`
	Prompt   string          `json:"prompt"`
	Options  json.RawMessage `json:"options"`
}

// Get handles GET /v1/quizzes/:id. Members must have completed the
// quiz's course before they can read it; the quiz gate only opens
// after the course.
func (h *QuizHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid quiz id"})
	}
	ctx := c.Request().Context()

	quiz, err := h.Quizzes.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrQuizNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "quiz not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !isAdmin(c) {
		if ok := h.courseCompleted(ctx, userID, quiz.CourseID); !ok {
			return c.JSON(http.StatusConflict, echo.Map{"error": "complete the course first"})
		}
	}
	questions, err := h.Quizzes.ListQuestions(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load questions"})
	}
	items := make([]questionResp, 0, len(questions))
	for _, q := range questions {
		opts := json.RawMessage(q.Options)
		if !json.Valid(opts) {
			opts = json.RawMessage("[]")
		}
		items = append(items, questionResp{ID: q.ID, Position: q.Position, Prompt: q.Prompt, Options: opts})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":        quiz.ID,
		"course_id": quiz.CourseID,
		"title":     quiz.Title,
		"questions": items,
	})
}

type submitReq struct {
	Answers []int `json:"answers"`
}

// Submit handles POST /v1/quizzes/:id/submit. The full answer vector
// is graded by exact index match in one shot; no attempt state is
// stored, so a failed member may retry indefinitely. On a pass the
// machine certification is granted inside the same transaction that
// read the correct answers, so there is no window where the quiz is
// passed but the grant is missing. The grant is idempotent: passing
// again changes nothing.
func (h *QuizHandler) Submit(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid quiz id"})
	}
	var req submitReq
	if err := c.Bind(&req); err != nil || req.Answers == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "answers array required"})
	}
	ctx := c.Request().Context()

	quiz, err := h.Quizzes.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrQuizNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "quiz not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !isAdmin(c) {
		if ok := h.courseCompleted(ctx, userID, quiz.CourseID); !ok {
			return c.JSON(http.StatusConflict, echo.Map{"error": "complete the course first"})
		}
	}

	// Which machine does this quiz certify for? No linked machine means
	// the quiz is informational; passing grants nothing.
	var machine *model.Machine
	if m, err := h.Machines.GetByQuiz(ctx, id); err == nil {
		machine = &m
	} else if err != repository.ErrMachineNotFound {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	tx, err := h.Quizzes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	correct, err := h.Quizzes.CorrectVectorTx(ctx, tx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load answers"})
	}
	if len(correct) == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "quiz has no questions"})
	}

	n := rules.Grade(req.Answers, correct)
	score := rules.Score(n, len(correct))
	passed := rules.Passed(score, quiz.PassingScore)

	granted := false
	if passed && machine != nil {
		granted, err = h.Certs.GrantTx(ctx, tx, userID, machine.ID, score)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant certification failed"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	if granted {
		go func(ev queue.CertificationGrantedEvent) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = queuepub.PublishCertificationGranted(ctx, ev)
		}(queue.CertificationGrantedEvent{
			UserID:      userID,
			MachineID:   machine.ID,
			MachineName: machine.Name,
			Score:       score,
			IssuedAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"score":                 score,
		"passed":                passed,
		"correct":               n,
		"total":                 len(correct),
		"certification_granted": granted,
	})
}

// courseCompleted reports whether the user completed the given course.
// Load failures count as not completed (fail closed).
func (h *QuizHandler) courseCompleted(ctx context.Context, userID, courseID uint64) bool {
	done, err := h.Courses.CompletedSet(ctx, userID)
	if err != nil {
		return false
	}
	return done[courseID]
}

// ----- admin operations -----

type questionReq struct {
	Prompt       string          `json:"prompt"`
	Options      json.RawMessage `json:"options"`
	CorrectIndex int             `json:"correct_index"`
}

type quizCreateReq struct {
	CourseID     uint64        `json:"course_id"`
	Title        string        `json:"title"`
	PassingScore int           `json:"passing_score"`
	Questions    []questionReq `json:"questions"`
}

func buildQuestions(reqs []questionReq) ([]model.QuizQuestion, string) {
	questions := make([]model.QuizQuestion, 0, len(reqs))
	for _, q := range reqs {
		if strings.TrimSpace(q.Prompt) == "" {
			return nil, "question prompt is required"
		}
		var opts []string
		if err := json.Unmarshal(q.Options, &opts); err != nil || len(opts) < 2 {
			return nil, "options must be a JSON array of at least two strings"
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(opts) {
			return nil, "correct_index out of range"
		}
		questions = append(questions, model.QuizQuestion{
			Prompt:       q.Prompt,
			Options:      string(q.Options),
			CorrectIndex: q.CorrectIndex,
		})
	}
	return questions, ""
}

// Create handles POST /v1/admin/quizzes.
func (h *QuizHandler) Create(c echo.Context) error {
	var req quizCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.CourseID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and course_id are required"})
	}
	if req.PassingScore < 0 || req.PassingScore > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passing_score must be 0-100"})
	}
	questions, msg := buildQuestions(req.Questions)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	quiz := model.Quiz{CourseID: req.CourseID, Title: req.Title, PassingScore: req.PassingScore}
	if err := h.Quizzes.Create(c.Request().Context(), &quiz, questions); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create quiz failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": quiz.ID, "title": quiz.Title})
}

type quizUpdateReq struct {
	Title        *string       `json:"title"`
	PassingScore *int          `json:"passing_score"`
	Questions    []questionReq `json:"questions"`
}

// Update handles PUT /v1/admin/quizzes/:id. When questions are
// supplied, the whole question set is replaced.
func (h *QuizHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid quiz id"})
	}
	var req quizUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.PassingScore != nil && (*req.PassingScore < 0 || *req.PassingScore > 100) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passing_score must be 0-100"})
	}
	if _, err := h.Quizzes.GetByID(c.Request().Context(), id); err != nil {
		if err == repository.ErrQuizNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "quiz not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	var questions []model.QuizQuestion
	if req.Questions != nil {
		var msg string
		questions, msg = buildQuestions(req.Questions)
		if msg != "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
		}
	}
	if err := h.Quizzes.Update(c.Request().Context(), id, req.Title, req.PassingScore, questions); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update quiz failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}

// Delete handles DELETE /v1/admin/quizzes/:id.
func (h *QuizHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid quiz id"})
	}
	if err := h.Quizzes.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrQuizNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "quiz not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete quiz failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
