package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// sequence numbers every event across the session, attempt and LLM tables
// so that history can be replayed in the order it happened, e.g. a scoring
// request and the attempt it produced.
type sequence struct {
	mu sync.Mutex
	db *sql.DB
}

func newSequence(db *sql.DB) (*sequence, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id       INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}
	return &sequence{db: db}, nil
}

// Next claims the next number. The first call on an empty table yields 1.
func (s *sequence) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO global_sequence (id, next_val) VALUES (1, 2)
		ON CONFLICT (id) DO UPDATE SET next_val = next_val + 1
		RETURNING next_val - 1`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n, nil
}
