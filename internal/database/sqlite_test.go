package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/client/internal/repository"
)

func TestInitDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "local.db")

	db, err := InitDB(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	ctx := context.Background()
	repo := repository.NewSQLiteRepository(db)

	_, err = repo.Get(ctx, "ragchat_user")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Set(ctx, "ragchat_user", "alice"))
	require.NoError(t, repo.Set(ctx, "ragchat_user", "bob"))
	value, err := repo.Get(ctx, "ragchat_user")
	require.NoError(t, err)
	assert.Equal(t, "bob", value)

	require.NoError(t, repo.Delete(ctx, "ragchat_user", "missing"))
	_, err = repo.Get(ctx, "ragchat_user")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInitDB_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")
	for i := 0; i < 2; i++ {
		db, err := InitDB(path)
		require.NoError(t, err)
		require.NoError(t, db.Close())
	}
}
