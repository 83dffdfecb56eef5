package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/learnit/learnit-api/internal/model"
)

// ErrMachineNotFound is returned when a machine lookup matches no row.
var ErrMachineNotFound = errors.New("machine not found")

// MachineRepo provides CRUD operations for machines. Machines are the
// bookable resources of the workshop; the safety cabinet / safety
// course rows double as the certification gate. All timestamp fields
// are stored in UTC.
type MachineRepo struct {
	db *sql.DB
}

// NewMachineRepo returns a new MachineRepo bound to the given database.
func NewMachineRepo(db *sql.DB) *MachineRepo { return &MachineRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *MachineRepo) DB() *sql.DB { return r.db }

const machineCols = `id, name, type, description, status, maintenance_note,
	course_id, quiz_id, requires_certification, created_at, updated_at`

func scanMachine(row interface{ Scan(...interface{}) error }) (model.Machine, error) {
	var m model.Machine
	var note sql.NullString
	var courseID, quizID sql.NullInt64
	err := row.Scan(&m.ID, &m.Name, &m.Type, &m.Description, &m.Status, &note,
		&courseID, &quizID, &m.RequiresCertification, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return m, err
	}
	if note.Valid {
		s := note.String
		m.MaintenanceNote = &s
	}
	if courseID.Valid {
		id := uint64(courseID.Int64)
		m.CourseID = &id
	}
	if quizID.Valid {
		id := uint64(quizID.Int64)
		m.QuizID = &id
	}
	return m, nil
}

// Create inserts a machine and populates its generated ID and
// timestamps on the provided record.
func (r *MachineRepo) Create(ctx context.Context, m *model.Machine) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO machines (name, type, description, status, maintenance_note,
		 course_id, quiz_id, requires_certification) VALUES (?,?,?,?,?,?,?,?)`,
		m.Name, m.Type, m.Description, m.Status, m.MaintenanceNote,
		m.CourseID, m.QuizID, m.RequiresCertification)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	got, err := r.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	*m = got
	return nil
}

// GetByID fetches a machine by id. Returns ErrMachineNotFound when no
// row matches.
func (r *MachineRepo) GetByID(ctx context.Context, id uint64) (model.Machine, error) {
	m, err := scanMachine(r.db.QueryRowContext(ctx,
		"SELECT "+machineCols+" FROM machines WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return m, ErrMachineNotFound
	}
	return m, err
}

// List returns all machines ordered by name.
func (r *MachineRepo) List(ctx context.Context) ([]model.Machine, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+machineCols+" FROM machines ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	machines := make([]model.Machine, 0)
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, err
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

// GetByQuiz returns the machine whose quiz_id links to the given
// quiz. Returns ErrMachineNotFound when no machine examines with this
// quiz; passing then still reports success but grants nothing.
func (r *MachineRepo) GetByQuiz(ctx context.Context, quizID uint64) (model.Machine, error) {
	m, err := scanMachine(r.db.QueryRowContext(ctx,
		"SELECT "+machineCols+" FROM machines WHERE quiz_id=? ORDER BY id ASC LIMIT 1", quizID))
	if err == sql.ErrNoRows {
		return m, ErrMachineNotFound
	}
	return m, err
}

// GetSafetyGate returns the designated safety cabinet / safety course
// machine. When several exist the lowest id wins; when none exists
// ErrMachineNotFound is returned and all gating collapses to Locked.
func (r *MachineRepo) GetSafetyGate(ctx context.Context) (model.Machine, error) {
	m, err := scanMachine(r.db.QueryRowContext(ctx,
		"SELECT "+machineCols+` FROM machines
		 WHERE type IN (?,?) ORDER BY id ASC LIMIT 1`,
		model.MachineTypeSafetyCabinet, model.MachineTypeSafetyCourse))
	if err == sql.ErrNoRows {
		return m, ErrMachineNotFound
	}
	return m, err
}

// Update applies a partial update. Nil pointers leave columns
// unchanged; explicit empty strings clear text columns.
func (r *MachineRepo) Update(ctx context.Context, id uint64, name, mtype, description *string, courseID, quizID *uint64, requiresCert *bool) error {
	sets := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	if name != nil {
		sets = append(sets, "name=?")
		args = append(args, strings.TrimSpace(*name))
	}
	if mtype != nil {
		sets = append(sets, "type=?")
		args = append(args, *mtype)
	}
	if description != nil {
		sets = append(sets, "description=?")
		args = append(args, *description)
	}
	if courseID != nil {
		sets = append(sets, "course_id=?")
		args = append(args, nullableID(*courseID))
	}
	if quizID != nil {
		sets = append(sets, "quiz_id=?")
		args = append(args, nullableID(*quizID))
	}
	if requiresCert != nil {
		sets = append(sets, "requires_certification=?")
		args = append(args, *requiresCert)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		"UPDATE machines SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return err
	}
	if err := requireRow(res); err == sql.ErrNoRows {
		return ErrMachineNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// UpdateStatus applies the admin status override: one of available,
// maintenance or in-use plus an optional maintenance note. The note is
// cleared when nil. Last writer wins; there is no concurrency token.
func (r *MachineRepo) UpdateStatus(ctx context.Context, id uint64, status string, note *string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE machines SET status=?, maintenance_note=? WHERE id=?",
		status, note, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err == sql.ErrNoRows {
		return ErrMachineNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// Delete removes a machine. Machines with blocking bookings cannot be
// deleted; certifications referencing the machine are left behind and
// pruned opportunistically when the holder's list is next read.
func (r *MachineRepo) Delete(ctx context.Context, id uint64) error {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE machine_id=? AND status IN ('PENDING','APPROVED')",
		id).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM machines WHERE id=?", id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err == sql.ErrNoRows {
		return ErrMachineNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// nullableID converts 0 to NULL for optional foreign keys.
func nullableID(id uint64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}
