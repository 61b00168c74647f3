package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a LocalStorage backed by the local_storage table.
func NewSQLiteRepository(db *sql.DB) LocalStorage {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) Get(ctx context.Context, key string) (string, error) {
	query := "SELECT value FROM local_storage WHERE key = ?"
	var value string
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("could not read key %q: %w", key, err)
	}
	return value, nil
}

func (r *sqliteRepository) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("could not write key %q: %w", key, err)
	}
	return nil
}

// Delete removes all given keys in one transaction.
func (r *sqliteRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM local_storage WHERE key = ?")
	if err != nil {
		return fmt.Errorf("could not prepare delete: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, key); err != nil {
			return fmt.Errorf("could not delete key %q: %w", key, err)
		}
	}
	return tx.Commit()
}
