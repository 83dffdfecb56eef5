package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/learnit/learnit-api/internal/model"
)

// ErrQuizNotFound is returned when a quiz lookup matches no row.
var ErrQuizNotFound = errors.New("quiz not found")

// QuizRepo provides CRUD operations for quizzes and their questions.
// Questions carry the correct answer index; only the grading path and
// admin endpoints may read it, so the repository exposes the correct
// indices separately from the question rows handed to members.
type QuizRepo struct {
	db *sql.DB
}

// NewQuizRepo returns a new QuizRepo bound to the given database.
func NewQuizRepo(db *sql.DB) *QuizRepo { return &QuizRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// that grade a submission and grant a certification atomically.
func (r *QuizRepo) DB() *sql.DB { return r.db }

// GetByID fetches a quiz by id. Returns ErrQuizNotFound when no row
// matches.
func (r *QuizRepo) GetByID(ctx context.Context, id uint64) (model.Quiz, error) {
	var q model.Quiz
	err := r.db.QueryRowContext(ctx,
		`SELECT id, course_id, title, passing_score, created_at, updated_at
		 FROM quizzes WHERE id=? LIMIT 1`, id).
		Scan(&q.ID, &q.CourseID, &q.Title, &q.PassingScore, &q.CreatedAt, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return q, ErrQuizNotFound
	}
	return q, err
}

// ListQuestions returns the quiz's questions in display order. The
// CorrectIndex field is populated; handlers serving members must not
// serialize it.
func (r *QuizRepo) ListQuestions(ctx context.Context, quizID uint64) ([]model.QuizQuestion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, quiz_id, position, prompt, options, correct_index
		 FROM quiz_questions WHERE quiz_id=? ORDER BY position ASC`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	questions := make([]model.QuizQuestion, 0)
	for rows.Next() {
		var q model.QuizQuestion
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Position, &q.Prompt, &q.Options, &q.CorrectIndex); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CorrectVectorTx returns the ordered correct-answer indices for a
// quiz within a transaction, so grading and the certification grant
// see a consistent snapshot even if an admin edits the quiz
// concurrently.
func (r *QuizRepo) CorrectVectorTx(ctx context.Context, tx *sql.Tx, quizID uint64) ([]int, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT correct_index FROM quiz_questions WHERE quiz_id=? ORDER BY position ASC", quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vec []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		vec = append(vec, idx)
	}
	return vec, rows.Err()
}

// Create inserts a quiz together with its questions in one
// transaction and populates the generated IDs.
func (r *QuizRepo) Create(ctx context.Context, quiz *model.Quiz, questions []model.QuizQuestion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO quizzes (course_id, title, passing_score) VALUES (?,?,?)",
		quiz.CourseID, quiz.Title, quiz.PassingScore)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	quiz.ID = uint64(id)
	if err := insertQuestionsTx(ctx, tx, quiz.ID, questions); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Update rewrites quiz metadata and, when questions is non-nil,
// replaces the whole question set. Passing an empty non-nil slice
// clears the quiz.
func (r *QuizRepo) Update(ctx context.Context, id uint64, title *string, passingScore *int, questions []model.QuizQuestion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if title != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE quizzes SET title=? WHERE id=?", *title, id); err != nil {
			return err
		}
	}
	if passingScore != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE quizzes SET passing_score=? WHERE id=?", *passingScore, id); err != nil {
			return err
		}
	}
	if questions != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM quiz_questions WHERE quiz_id=?", id); err != nil {
			return err
		}
		if err := insertQuestionsTx(ctx, tx, id, questions); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes a quiz and its questions (cascade via FK).
func (r *QuizRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM quizzes WHERE id=?", id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err == sql.ErrNoRows {
		return ErrQuizNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// insertQuestionsTx bulk-inserts question rows for a quiz. Positions
// are rewritten to the slice order. Passing an empty slice has no
// effect and returns nil.
func insertQuestionsTx(ctx context.Context, tx *sql.Tx, quizID uint64, questions []model.QuizQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	query := "INSERT INTO quiz_questions (quiz_id, position, prompt, options, correct_index) VALUES "
	args := make([]interface{}, 0, len(questions)*5)
	for i, q := range questions {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, quizID, i+1, q.Prompt, q.Options, q.CorrectIndex)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
