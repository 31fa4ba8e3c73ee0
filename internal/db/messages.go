package db

import (
	"database/sql"
	"time"
)

// Message is an operator message accepted by the API for sending to the
// cluster.
type Message struct {
	ID        int64
	APIKeyID  *int64
	Body      string
	CreatedAt int64
}

func RecordMessage(d *sql.DB, apiKeyID int64, body string) (int64, error) {
	var keyArg any
	if apiKeyID != 0 {
		keyArg = apiKeyID
	}
	result, err := d.Exec(
		"INSERT INTO messages (api_key_id, body, created_at) VALUES (?, ?, ?)",
		keyArg, body, time.Now().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListMessages returns up to limit messages, newest first.
func ListMessages(d *sql.DB, limit int) ([]Message, error) {
	rows, err := d.Query(
		"SELECT id, api_key_id, body, created_at FROM messages ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.APIKeyID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
