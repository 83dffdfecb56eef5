package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/learnit/learnit-api/internal/model"
)

// ErrCourseNotFound is returned when a course lookup matches no row.
var ErrCourseNotFound = errors.New("course not found")

// CourseRepo provides CRUD operations for safety courses and their
// completion records. Completions are one row per (user, course);
// marking completion is idempotent so a client retry never fails.
type CourseRepo struct {
	db *sql.DB
}

// NewCourseRepo returns a new CourseRepo bound to the given database.
func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{db: db} }

const courseCols = "id, machine_id, title, slides, published, created_at, updated_at"

func scanCourse(row interface{ Scan(...interface{}) error }) (model.Course, error) {
	var c model.Course
	var machineID sql.NullInt64
	err := row.Scan(&c.ID, &machineID, &c.Title, &c.Slides, &c.Published, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	if machineID.Valid {
		id := uint64(machineID.Int64)
		c.MachineID = &id
	}
	return c, nil
}

// Create inserts a course and populates the generated ID.
func (r *CourseRepo) Create(ctx context.Context, c *model.Course) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO courses (machine_id, title, slides, published) VALUES (?,?,?,?)",
		c.MachineID, c.Title, c.Slides, c.Published)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	got, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = got
	return nil
}

// GetByID fetches a course by id. Returns ErrCourseNotFound when no
// row matches.
func (r *CourseRepo) GetByID(ctx context.Context, id uint64) (model.Course, error) {
	c, err := scanCourse(r.db.QueryRowContext(ctx,
		"SELECT "+courseCols+" FROM courses WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return c, ErrCourseNotFound
	}
	return c, err
}

// List returns courses ordered by title. When publishedOnly is true,
// unpublished drafts are excluded (the member-facing view).
func (r *CourseRepo) List(ctx context.Context, publishedOnly bool) ([]model.Course, error) {
	q := "SELECT " + courseCols + " FROM courses"
	if publishedOnly {
		q += " WHERE published = 1"
	}
	q += " ORDER BY title ASC"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	courses := make([]model.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Update applies a partial update to title, slides, machine link or
// published flag. Nil pointers leave columns unchanged.
func (r *CourseRepo) Update(ctx context.Context, id uint64, title, slides *string, machineID *uint64, published *bool) error {
	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	if title != nil {
		sets = append(sets, "title=?")
		args = append(args, *title)
	}
	if slides != nil {
		sets = append(sets, "slides=?")
		args = append(args, *slides)
	}
	if machineID != nil {
		sets = append(sets, "machine_id=?")
		args = append(args, nullableID(*machineID))
	}
	if published != nil {
		sets = append(sets, "published=?")
		args = append(args, *published)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		"UPDATE courses SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return err
	}
	if err := requireRow(res); err == sql.ErrNoRows {
		return ErrCourseNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// Delete removes a course. Completion records cascade via FK;
// machines referencing the course keep a dangling course_id that the
// eligibility path treats as "no course".
func (r *CourseRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM courses WHERE id=?", id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err == sql.ErrNoRows {
		return ErrCourseNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// MarkComplete records that a user finished a course. The insert is
// idempotent: a second completion leaves the original completed_at
// untouched.
func (r *CourseRepo) MarkComplete(ctx context.Context, userID, courseID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO course_completions (user_id, course_id)
		 VALUES (?,?) ON DUPLICATE KEY UPDATE user_id = user_id`,
		userID, courseID)
	return err
}

// CompletedSet returns the set of course IDs the user has completed.
// Callers feed this into the rules package; on query failure they
// must fall back to an empty set (fail closed).
func (r *CourseRepo) CompletedSet(ctx context.Context, userID uint64) (map[uint64]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT course_id FROM course_completions WHERE user_id=?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	set := make(map[uint64]bool)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		set[id] = true
	}
	return set, rows.Err()
}
