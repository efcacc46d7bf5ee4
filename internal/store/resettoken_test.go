package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pinvent/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resetTokenColumns = []string{"id", "user_id", "token_hash", "created_at", "expires_at"}

func TestResetTokenCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO reset_tokens").
		WithArgs(1, "digest", now, now.Add(30*time.Minute)).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(5))

	repo := NewResetTokenRepository(db)
	ticket, err := repo.Create(context.Background(), types.ResetToken{
		UserID:    1,
		TokenHash: "digest",
		CreatedAt: now,
		ExpiresAt: now.Add(30 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, ticket.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTokenGetValidByHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT id, user_id, token_hash, created_at, expires_at").
		WithArgs("digest", sqlmock.AnyArg()).
		WillReturnRows(mock.NewRows(resetTokenColumns).
			AddRow(5, 1, "digest", now, now.Add(10*time.Minute)))

	repo := NewResetTokenRepository(db)
	ticket, err := repo.GetValidByHash(context.Background(), "digest", now)
	require.NoError(t, err)
	assert.Equal(t, 5, ticket.ID)
	assert.Equal(t, 1, ticket.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTokenGetValidByHashMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Expired rows are filtered by the query itself, so a stale digest
	// comes back as an empty result set.
	mock.ExpectQuery("SELECT id, user_id, token_hash, created_at, expires_at").
		WithArgs("stale-digest", sqlmock.AnyArg()).
		WillReturnRows(mock.NewRows(resetTokenColumns))

	repo := NewResetTokenRepository(db)
	_, err = repo.GetValidByHash(context.Background(), "stale-digest", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTokenDeleteByUserZeroRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM reset_tokens WHERE user_id").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewResetTokenRepository(db)
	assert.NoError(t, repo.DeleteByUser(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTokenDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM reset_tokens WHERE id").
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM reset_tokens WHERE id").
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewResetTokenRepository(db)
	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.ErrorIs(t, repo.Delete(context.Background(), 5), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
