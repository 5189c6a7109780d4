package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Message is a single chat turn. The ID is assigned by SQLite on insert and
// increases monotonically with insertion order.
type Message struct {
	ID                int64
	Content           string
	IsFromUser        bool
	Timestamp         time.Time
	IsStreaming       bool
	StreamingComplete bool
	HasError          bool
	ErrorMessage      string
}

// InsertMessage persists a message and returns its assigned ID. When the
// message carries a zero timestamp, the current time is used.
func (s *Store) InsertMessage(ctx context.Context, msg *Message) (int64, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (content, is_from_user, timestamp, is_streaming, streaming_complete, has_error, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.Content,
		msg.IsFromUser,
		msg.Timestamp.UTC().Format(time.RFC3339Nano),
		msg.IsStreaming,
		msg.StreamingComplete,
		msg.HasError,
		nullIfEmpty(msg.ErrorMessage),
	)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("message insert id: %w", err)
	}
	msg.ID = id
	return id, nil
}

// UpdateMessage rewrites a stored message in place. Used while a streamed
// assistant message accumulates content, and once more on finalization.
func (s *Store) UpdateMessage(ctx context.Context, msg *Message) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET content = ?, timestamp = ?, is_streaming = ?, streaming_complete = ?, has_error = ?, error_message = ?
		WHERE id = ?`,
		msg.Content,
		msg.Timestamp.UTC().Format(time.RFC3339Nano),
		msg.IsStreaming,
		msg.StreamingComplete,
		msg.HasError,
		nullIfEmpty(msg.ErrorMessage),
		msg.ID,
	)
	if err != nil {
		return fmt.Errorf("update message %d: %w", msg.ID, err)
	}
	return nil
}

// GetAllMessages returns every message ordered by timestamp ascending, with
// the insertion ID as a tiebreak so same-instant turns keep their order.
func (s *Store) GetAllMessages(ctx context.Context) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, is_from_user, timestamp, is_streaming, streaming_complete, has_error, error_message
		FROM messages
		ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// DeleteAllMessages removes the entire message history. Memory facts are
// untouched.
func (s *Store) DeleteAllMessages(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages"); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

func scanMessage(rows *sql.Rows) (Message, error) {
	var (
		msg          Message
		timestampStr string
		errMsg       sql.NullString
	)
	err := rows.Scan(
		&msg.ID,
		&msg.Content,
		&msg.IsFromUser,
		&timestampStr,
		&msg.IsStreaming,
		&msg.StreamingComplete,
		&msg.HasError,
		&errMsg,
	)
	if err != nil {
		return Message{}, fmt.Errorf("scan message: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, timestampStr)
	if err != nil {
		return Message{}, fmt.Errorf("parse message timestamp: %w", err)
	}
	msg.Timestamp = t
	msg.ErrorMessage = errMsg.String
	return msg, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
