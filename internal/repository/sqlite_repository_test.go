package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/client/internal/repository"
)

func setupRepo(t *testing.T) (repository.LocalStorage, sqlmock.Sqlmock) {
	db, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mockDB.ExpectationsWereMet())
		_ = db.Close()
	})
	return repository.NewSQLiteRepository(db), mockDB
}

func TestSQLiteRepository_Get(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("SELECT value FROM local_storage WHERE key = ?")

	t.Run("Found", func(t *testing.T) {
		repo, mockDB := setupRepo(t)
		mockDB.ExpectQuery(query).WithArgs("ragchat_user").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("alice"))

		value, err := repo.Get(ctx, "ragchat_user")
		require.NoError(t, err)
		assert.Equal(t, "alice", value)
	})

	t.Run("Missing key", func(t *testing.T) {
		repo, mockDB := setupRepo(t)
		mockDB.ExpectQuery(query).WithArgs("nope").WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(ctx, "nope")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("Database error", func(t *testing.T) {
		repo, mockDB := setupRepo(t)
		mockDB.ExpectQuery(query).WithArgs("k").WillReturnError(errors.New("disk I/O error"))

		_, err := repo.Get(ctx, "k")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestSQLiteRepository_Set(t *testing.T) {
	repo, mockDB := setupRepo(t)
	mockDB.ExpectExec(regexp.QuoteMeta("INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)")).
		WithArgs("ragchat_user", "alice", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Set(context.Background(), "ragchat_user", "alice"))
}

func TestSQLiteRepository_Delete(t *testing.T) {
	ctx := context.Background()
	stmt := regexp.QuoteMeta("DELETE FROM local_storage WHERE key = ?")

	t.Run("All keys in one transaction", func(t *testing.T) {
		repo, mockDB := setupRepo(t)
		mockDB.ExpectBegin()
		prep := mockDB.ExpectPrepare(stmt)
		prep.ExpectExec().WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WithArgs("b").WillReturnResult(sqlmock.NewResult(0, 0))
		mockDB.ExpectCommit()

		require.NoError(t, repo.Delete(ctx, "a", "b"))
	})

	t.Run("Failure rolls back", func(t *testing.T) {
		repo, mockDB := setupRepo(t)
		mockDB.ExpectBegin()
		prep := mockDB.ExpectPrepare(stmt)
		prep.ExpectExec().WithArgs("a").WillReturnError(errors.New("locked"))
		mockDB.ExpectRollback()

		assert.Error(t, repo.Delete(ctx, "a", "b"))
	})

	t.Run("No keys", func(t *testing.T) {
		repo, _ := setupRepo(t)
		require.NoError(t, repo.Delete(ctx))
	})
}
