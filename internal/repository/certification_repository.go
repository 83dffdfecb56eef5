package repository

import (
	"context"
	"database/sql"
	"time"
)

// CertificationRepo provides access to the certifications table.
// Certifications are first-class (user, machine) grants carrying the
// earning score and issue date. The table has a unique key on
// (user_id, machine_id) so granting is idempotent by construction:
// issuing the same grant twice leaves exactly one row with the
// original issue date.
type CertificationRepo struct {
	db *sql.DB
}

// NewCertificationRepo returns a new CertificationRepo bound to the
// given database.
func NewCertificationRepo(db *sql.DB) *CertificationRepo { return &CertificationRepo{db: db} }

// CertificationDetail is a certification joined with its machine's
// display fields, returned to the holder.
type CertificationDetail struct {
	ID          uint64    `json:"id"`
	MachineID   uint64    `json:"machine_id"`
	MachineName string    `json:"machine_name"`
	MachineType string    `json:"machine_type"`
	Score       int       `json:"score"`
	IssuedAt    time.Time `json:"issued_at"`
}

// GrantTx grants a certification within an existing transaction. The
// insert is idempotent: when the (user, machine) pair already holds a
// certification the statement is a no-op and created is false. The
// caller must commit or roll back the transaction.
func (r *CertificationRepo) GrantTx(ctx context.Context, tx *sql.Tx, userID, machineID uint64, score int) (created bool, err error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO certifications (user_id, machine_id, score)
		 VALUES (?,?,?) ON DUPLICATE KEY UPDATE user_id = user_id`,
		userID, machineID, score)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// MySQL reports 1 for a fresh insert and 0 for the duplicate no-op.
	return n == 1, nil
}

// Grant is the non-transactional variant used by the admin manual
// grant endpoint.
func (r *CertificationRepo) Grant(ctx context.Context, userID, machineID uint64, score int) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	created, err := r.GrantTx(ctx, tx, userID, machineID, score)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return created, nil
}

// Revoke removes a certification. Returns sql.ErrNoRows when the user
// does not hold one for the machine.
func (r *CertificationRepo) Revoke(ctx context.Context, userID, machineID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM certifications WHERE user_id=? AND machine_id=?", userID, machineID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// HeldSet returns the set of machine IDs the user is certified for.
// Callers feed this into the rules package; on query failure they
// must fall back to an empty set so gating fails closed.
func (r *CertificationRepo) HeldSet(ctx context.Context, userID uint64) (map[uint64]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT machine_id FROM certifications WHERE user_id=?", userID)
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

// PruneStale deletes the user's certifications whose machine no
// longer exists. Machines are deleted without touching certification
// rows, so the prune runs opportunistically whenever the holder's
// list is read. Returns the number of rows removed.
func (r *CertificationRepo) PruneStale(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE c FROM certifications c
		 LEFT JOIN machines m ON m.id = c.machine_id
		 WHERE c.user_id = ? AND m.id IS NULL`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByUser returns the user's certifications joined with machine
// details, newest first. Stale rows are pruned before the read.
func (r *CertificationRepo) ListByUser(ctx context.Context, userID uint64) ([]CertificationDetail, error) {
	if _, err := r.PruneStale(ctx, userID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.machine_id, m.name, m.type, c.score, c.issued_at
		 FROM certifications c
		 JOIN machines m ON m.id = c.machine_id
		 WHERE c.user_id = ?
		 ORDER BY c.issued_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]CertificationDetail, 0)
	for rows.Next() {
		var d CertificationDetail
		if err := rows.Scan(&d.ID, &d.MachineID, &d.MachineName, &d.MachineType, &d.Score, &d.IssuedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// HoldsForMachine reports whether the user holds a certification for
// one specific machine.
func (r *CertificationRepo) HoldsForMachine(ctx context.Context, userID, machineID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM certifications WHERE user_id=? AND machine_id=?",
		userID, machineID).Scan(&n)
	return n > 0, err
}
