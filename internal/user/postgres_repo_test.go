package user

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "5b9f7a2e-1c44-4d36-a1b2-9e8f0c3d4e5f"

func newRepoFixture(t *testing.T) (*PostgresRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepo(mock, time.Second), mock
}

func TestPostgresRepo_Create(t *testing.T) {
	t.Run("assigns id and default role", func(t *testing.T) {
		repo, mock := newRepoFixture(t)
		now := time.Now()

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("alice", "alice@example.com", "hashed", "").
			WillReturnRows(pgxmock.NewRows([]string{"id", "role", "created_at", "updated_at"}).
				AddRow(testUserID, "USER", now, now))

		u := User{Username: "alice", Email: "alice@example.com", Password: "hashed"}
		err := repo.Create(context.Background(), &u)

		require.NoError(t, err)
		assert.Equal(t, testUserID, u.ID)
		assert.Equal(t, "USER", u.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo, mock := newRepoFixture(t)

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("alice", "alice@example.com", "hashed", "").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

		u := User{Username: "alice", Email: "alice@example.com", Password: "hashed"}
		err := repo.Create(context.Background(), &u)

		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestPostgresRepo_GetByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoFixture(t)
		now := time.Now()

		mock.ExpectQuery("FROM users").
			WithArgs("alice@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "password", "role", "created_at", "updated_at"}).
				AddRow(testUserID, "alice", "alice@example.com", "hashed", "USER", now, now))

		u, err := repo.GetByEmail(context.Background(), "alice@example.com")

		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "hashed", u.Password)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoFixture(t)

		mock.ExpectQuery("FROM users").
			WithArgs("nobody@example.com").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresRepo_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoFixture(t)
		now := time.Now()

		mock.ExpectQuery("FROM users").
			WithArgs(testUserID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "password", "role", "created_at", "updated_at"}).
				AddRow(testUserID, "alice", "alice@example.com", "hashed", "USER", now, now))

		u, err := repo.GetByID(context.Background(), testUserID)

		require.NoError(t, err)
		assert.Equal(t, testUserID, u.ID)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		repo, _ := newRepoFixture(t)

		_, err := repo.GetByID(context.Background(), "42")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
