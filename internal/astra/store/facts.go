package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports that the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// MemoryFact is a durable key/value assertion about the user, e.g.
// ("favorite color", "blue"). Keys are not unique: several facts may share
// a key and retrieval scores each one independently.
type MemoryFact struct {
	ID        int64
	Key       string
	Value     string
	Timestamp time.Time
}

// InsertMemoryFact persists a fact and returns its assigned ID.
func (s *Store) InsertMemoryFact(ctx context.Context, fact *MemoryFact) (int64, error) {
	if fact.Timestamp.IsZero() {
		fact.Timestamp = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_facts (key, value, timestamp)
		VALUES (?, ?, ?)`,
		fact.Key,
		fact.Value,
		fact.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert memory fact: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("memory fact insert id: %w", err)
	}
	fact.ID = id
	return id, nil
}

// UpdateMemoryFact rewrites a fact's key and value and bumps its timestamp.
// Returns ErrNotFound when no fact has the given ID.
func (s *Store) UpdateMemoryFact(ctx context.Context, fact *MemoryFact) error {
	fact.Timestamp = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE memory_facts SET key = ?, value = ?, timestamp = ? WHERE id = ?`,
		fact.Key,
		fact.Value,
		fact.Timestamp.UTC().Format(time.RFC3339Nano),
		fact.ID,
	)
	if err != nil {
		return fmt.Errorf("update memory fact %d: %w", fact.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update memory fact %d: %w", fact.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update memory fact %d: %w", fact.ID, ErrNotFound)
	}
	return nil
}

// GetAllMemoryFacts returns all facts ordered newest first.
func (s *Store) GetAllMemoryFacts(ctx context.Context) ([]MemoryFact, error) {
	return s.queryFacts(ctx, `
		SELECT id, key, value, timestamp
		FROM memory_facts
		ORDER BY timestamp DESC, id DESC`)
}

// SearchMemoryFacts returns facts whose key or value contains the given
// substring, newest first.
func (s *Store) SearchMemoryFacts(ctx context.Context, query string) ([]MemoryFact, error) {
	pattern := "%" + query + "%"
	return s.queryFacts(ctx, `
		SELECT id, key, value, timestamp
		FROM memory_facts
		WHERE key LIKE ? OR value LIKE ?
		ORDER BY timestamp DESC, id DESC`, pattern, pattern)
}

// DeleteMemoryFact removes a single fact by ID.
func (s *Store) DeleteMemoryFact(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM memory_facts WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete memory fact %d: %w", id, err)
	}
	return nil
}

// DeleteAllMemoryFacts removes every stored fact.
func (s *Store) DeleteAllMemoryFacts(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM memory_facts"); err != nil {
		return fmt.Errorf("delete memory facts: %w", err)
	}
	return nil
}

func (s *Store) queryFacts(ctx context.Context, query string, args ...any) ([]MemoryFact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memory facts: %w", err)
	}
	defer rows.Close()

	var facts []MemoryFact
	for rows.Next() {
		var (
			fact         MemoryFact
			timestampStr string
		)
		if err := rows.Scan(&fact.ID, &fact.Key, &fact.Value, &timestampStr); err != nil {
			return nil, fmt.Errorf("scan memory fact: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, timestampStr)
		if err != nil {
			return nil, fmt.Errorf("parse fact timestamp: %w", err)
		}
		fact.Timestamp = t
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory facts: %w", err)
	}
	return facts, nil
}
