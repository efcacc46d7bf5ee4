package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pinvent/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{
	"id", "name", "email", "password_hash", "photo", "phone", "bio", "created_at", "updated_at",
}

func userRow(mock sqlmock.Sqlmock, user types.User) *sqlmock.Rows {
	return mock.NewRows(userColumns).AddRow(
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Photo,
		user.Phone,
		user.Bio,
		user.CreatedAt,
		user.UpdatedAt,
	)
}

func TestUserGetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	want := types.User{
		ID:           1,
		Name:         "Alice",
		Email:        "alice@x.com",
		PasswordHash: "$2a$10$hash",
		Photo:        types.DefaultPhoto,
		Phone:        types.DefaultPhone,
		Bio:          types.DefaultBio,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	mock.ExpectQuery("SELECT id, name, email, password_hash, photo, phone, bio, created_at, updated_at").
		WithArgs("alice@x.com").
		WillReturnRows(userRow(mock, want))

	repo := NewUserRepository(db)
	got, err := repo.GetByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Email, got.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, email, password_hash").
		WithArgs(99).
		WillReturnRows(mock.NewRows(userColumns))

	repo := NewUserRepository(db)
	_, err = repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(
			"Alice", "alice@x.com", "$2a$10$hash",
			types.DefaultPhoto, types.DefaultPhone, types.DefaultBio,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(7))

	repo := NewUserRepository(db)
	user, err := repo.Create(context.Background(), types.User{
		Name:         "Alice",
		Email:        "alice@x.com",
		PasswordHash: "$2a$10$hash",
		Photo:        types.DefaultPhoto,
		Phone:        types.DefaultPhone,
		Bio:          types.DefaultBio,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	repo := NewUserRepository(db)
	_, err = repo.Create(context.Background(), types.User{
		Name:         "Alice",
		Email:        "alice@x.com",
		PasswordHash: "$2a$10$hash",
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdateProfileLeavesPasswordAlone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The statement carries exactly the profile fields plus updated_at
	// and id; password_hash never appears.
	mock.ExpectExec("UPDATE users").
		WithArgs("Alice", "https://x/photo.png", "+49", "new bio", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewUserRepository(db)
	_, err = repo.UpdateProfile(context.Background(), types.User{
		ID:    1,
		Name:  "Alice",
		Photo: "https://x/photo.png",
		Phone: "+49",
		Bio:   "new bio",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdateProfileNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewUserRepository(db)
	_, err = repo.UpdateProfile(context.Background(), types.User{ID: 99, Name: "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdatePassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users").
		WithArgs("$2a$10$newhash", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewUserRepository(db)
	require.NoError(t, repo.UpdatePassword(context.Background(), 1, "$2a$10$newhash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
