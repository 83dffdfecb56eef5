package model

import "time"

// Course mirrors the `courses` table. A course is the slide deck a
// member reads before attempting the machine's quiz. Slides are
// stored as a JSON array of {title, body, image_url} objects so
// admins can edit content without schema changes.
//
// Fields:
//  ID        – primary key identifier.
//  MachineID – machine this course certifies for (nullable for general content).
//  Title     – course title.
//  Slides    – raw JSON array of slide objects.
//  Published – whether the course is visible to members.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Course struct {
	ID        uint64    // courses.id
	MachineID *uint64   // courses.machine_id (nullable)
	Title     string    // courses.title
	Slides    string    // courses.slides (JSON)
	Published bool      // courses.published
	CreatedAt time.Time // courses.created_at
	UpdatedAt time.Time // courses.updated_at
}

// CourseCompletion mirrors the `course_completions` table. One row
// per (user, course); marking a course complete twice is a no-op.
//
// Fields:
//  UserID      – member who completed the course.
//  CourseID    – course that was completed.
//  CompletedAt – when the course was first marked complete.
type CourseCompletion struct {
	UserID      uint64    // course_completions.user_id
	CourseID    uint64    // course_completions.course_id
	CompletedAt time.Time // course_completions.completed_at
}
