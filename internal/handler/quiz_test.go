package handler

import (
	"database/sql"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnit/learnit-api/internal/model"
	"github.com/learnit/learnit-api/internal/repository"
)

func newQuizHandler(db *sql.DB) *QuizHandler {
	return NewQuizHandler(
		repository.NewQuizRepo(db),
		repository.NewCourseRepo(db),
		repository.NewMachineRepo(db),
		repository.NewCertificationRepo(db),
	)
}

const (
	quizByIDQ      = `SELECT id, course_id, title, passing_score, created_at, updated_at FROM quizzes WHERE id=? LIMIT 1`
	machineByQuizQ = `SELECT id, name, type, description, status, maintenance_note, course_id, quiz_id, requires_certification, created_at, updated_at FROM machines WHERE quiz_id=? ORDER BY id ASC LIMIT 1`
	correctVecQ    = `SELECT correct_index FROM quiz_questions WHERE quiz_id=? ORDER BY position ASC`
)

func quizRow(id, courseID uint64, passing int) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "course_id", "title", "passing_score", "created_at", "updated_at"}).
		AddRow(id, courseID, "Laser Safety", passing, now, now)
}

func correctRows(indices ...int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"correct_index"})
	for _, i := range indices {
		rows.AddRow(i)
	}
	return rows
}

func TestQuizSubmit_FailBelowThreshold(t *testing.T) {
	db, mock := newTestDB(t)
	h := newQuizHandler(db)

	mock.ExpectQuery(regexp.QuoteMeta(quizByIDQ)).
		WithArgs(uint64(4)).WillReturnRows(quizRow(4, 10, 0)) // 0 -> default threshold 70
	mock.ExpectQuery(regexp.QuoteMeta(machineByQuizQ)).
		WithArgs(uint64(4)).WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(correctVecQ)).
		WithArgs(uint64(4)).
		WillReturnRows(correctRows(0, 1, 2, 0, 1, 2, 0, 1, 2, 0))
	mock.ExpectCommit()

	// 6 of 10 correct -> 60, below the default 70.
	c, rec := request(http.MethodPost, "/v1/quizzes/4/submit",
		`{"answers":[0,1,2,0,1,2,9,9,9,9]}`, 1, model.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues("4")
	require.NoError(t, h.Submit(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"score":60`)
	assert.Contains(t, rec.Body.String(), `"passed":false`)
	assert.Contains(t, rec.Body.String(), `"certification_granted":false`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizSubmit_PassBoundary(t *testing.T) {
	db, mock := newTestDB(t)
	h := newQuizHandler(db)

	mock.ExpectQuery(regexp.QuoteMeta(quizByIDQ)).
		WithArgs(uint64(4)).WillReturnRows(quizRow(4, 10, 70))
	// No machine examines with this quiz, so passing grants nothing.
	mock.ExpectQuery(regexp.QuoteMeta(machineByQuizQ)).
		WithArgs(uint64(4)).WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(correctVecQ)).
		WithArgs(uint64(4)).
		WillReturnRows(correctRows(0, 1, 2, 0, 1, 2, 0, 1, 2, 0))
	mock.ExpectCommit()

	// Exactly 7 of 10 -> 70, meeting the threshold passes.
	c, rec := request(http.MethodPost, "/v1/quizzes/4/submit",
		`{"answers":[0,1,2,0,1,2,0,9,9,9]}`, 1, model.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues("4")
	require.NoError(t, h.Submit(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"score":70`)
	assert.Contains(t, rec.Body.String(), `"passed":true`)
	assert.Contains(t, rec.Body.String(), `"certification_granted":false`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizGet_SanitizesCorrectIndex(t *testing.T) {
	db, mock := newTestDB(t)
	h := newQuizHandler(db)

	mock.ExpectQuery(regexp.QuoteMeta(quizByIDQ)).
		WithArgs(uint64(4)).WillReturnRows(quizRow(4, 10, 70))
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, quiz_id, position, prompt, options, correct_index FROM quiz_questions WHERE quiz_id=? ORDER BY position ASC`)).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quiz_id", "position", "prompt", "options", "correct_index"}).
			AddRow(1, 4, 1, "Which beam?", `["red","green"]`, 1))

	c, rec := request(http.MethodGet, "/v1/quizzes/4", "", 1, model.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues("4")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Which beam?")
	assert.NotContains(t, rec.Body.String(), "correct")
	assert.NoError(t, mock.ExpectationsWereMet())
}
