package db

import (
	"database/sql"
	"errors"
	"time"
)

// APIKey is a stored API key. Only the secret's hash is kept.
type APIKey struct {
	ID        int64
	Prefix    string
	Hash      []byte
	Label     *string
	CreatedAt int64
	RevokedAt *int64
}

// CreateAPIKey inserts a new API key and returns its ID.
func CreateAPIKey(d *sql.DB, prefix string, hash []byte, label string) (int64, error) {
	var labelArg any
	if label != "" {
		labelArg = label
	}
	result, err := d.Exec(
		"INSERT INTO api_keys (key_prefix, key_hash, label, created_at) VALUES (?, ?, ?, ?)",
		prefix, hash, labelArg, time.Now().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetAPIKeyByPrefix returns nil, nil when no key has that prefix.
func GetAPIKeyByPrefix(d *sql.DB, prefix string) (*APIKey, error) {
	row := d.QueryRow(
		"SELECT id, key_prefix, key_hash, label, created_at, revoked_at FROM api_keys WHERE key_prefix = ?",
		prefix,
	)
	var key APIKey
	err := row.Scan(&key.ID, &key.Prefix, &key.Hash, &key.Label, &key.CreatedAt, &key.RevokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func ListAPIKeys(d *sql.DB) ([]APIKey, error) {
	rows, err := d.Query(
		"SELECT id, key_prefix, key_hash, label, created_at, revoked_at FROM api_keys ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var key APIKey
		if err := rows.Scan(&key.ID, &key.Prefix, &key.Hash, &key.Label, &key.CreatedAt, &key.RevokedAt); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// RevokeAPIKey marks the key revoked. It reports false if no active key
// has that prefix.
func RevokeAPIKey(d *sql.DB, prefix string) (bool, error) {
	result, err := d.Exec(
		"UPDATE api_keys SET revoked_at = ? WHERE key_prefix = ? AND revoked_at IS NULL",
		time.Now().Unix(), prefix,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// CountAPIKeys returns the number of non-revoked API keys.
func CountAPIKeys(d *sql.DB) (int, error) {
	var count int
	err := d.QueryRow("SELECT COUNT(*) FROM api_keys WHERE revoked_at IS NULL").Scan(&count)
	return count, err
}
