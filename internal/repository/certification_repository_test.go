package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const grantQ = `INSERT INTO certifications (user_id, machine_id, score) VALUES (?,?,?) ON DUPLICATE KEY UPDATE user_id = user_id`

func TestCertificationRepo_GrantTx_Idempotent(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewCertificationRepo(db)

	// First grant inserts a row.
	tx := beginTx(t, db, mock)
	mock.ExpectExec(regexp.QuoteMeta(grantQ)).
		WithArgs(uint64(4), uint64(2), 100).
		WillReturnResult(sqlmock.NewResult(11, 1))
	created, err := repo.GrantTx(context.Background(), tx, 4, 2, 100)
	require.NoError(t, err)
	assert.True(t, created)

	// Issuing the identical grant again is a no-op: MySQL reports zero
	// affected rows for the duplicate and exactly one row remains.
	tx2 := beginTx(t, db, mock)
	mock.ExpectExec(regexp.QuoteMeta(grantQ)).
		WithArgs(uint64(4), uint64(2), 100).
		WillReturnResult(sqlmock.NewResult(0, 0))
	created, err = repo.GrantTx(context.Background(), tx2, 4, 2, 100)
	require.NoError(t, err)
	assert.False(t, created)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificationRepo_PruneStale(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewCertificationRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(
		`DELETE c FROM certifications c LEFT JOIN machines m ON m.id = c.machine_id WHERE c.user_id = ? AND m.id IS NULL`)).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	removed, err := repo.PruneStale(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificationRepo_HeldSet(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewCertificationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT machine_id FROM certifications WHERE user_id=?`)).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"machine_id"}).AddRow(1).AddRow(3))

	set, err := repo.HeldSet(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{1: true, 3: true}, set)
}
