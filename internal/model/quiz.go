package model

import "time"

// Quiz mirrors the `quizzes` table. Each quiz belongs to a course
// and carries its own passing score threshold (percent). Attempt
// state is never persisted: a member submits a full answer vector
// in one request and may retry indefinitely on failure.
//
// Fields:
//  ID           – primary key identifier.
//  CourseID     – course this quiz examines.
//  Title        – quiz title.
//  PassingScore – minimum percent score required to pass (0 means "use default").
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Quiz struct {
	ID           uint64    // quizzes.id
	CourseID     uint64    // quizzes.course_id
	Title        string    // quizzes.title
	PassingScore int       // quizzes.passing_score
	CreatedAt    time.Time // quizzes.created_at
	UpdatedAt    time.Time // quizzes.updated_at
}

// QuizQuestion mirrors the `quiz_questions` table. Options are a
// JSON array of answer strings; CorrectIndex is the zero-based
// index of the right option and must never be serialized to
// member-facing responses.
//
// Fields:
//  ID           – primary key identifier.
//  QuizID       – owning quiz.
//  Position     – display order within the quiz.
//  Prompt       – question text.
//  Options      – raw JSON array of option strings.
//  CorrectIndex – zero-based index of the correct option.
type QuizQuestion struct {
	ID           uint64 // quiz_questions.id
	QuizID       uint64 // quiz_questions.quiz_id
	Position     uint32 // quiz_questions.position
	Prompt       string // quiz_questions.prompt
	Options      string // quiz_questions.options (JSON)
	CorrectIndex int    // quiz_questions.correct_index
}
