package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhisek/cclprep/internal/dialogue"
)

// PGSource reads the dialogue catalogue straight from the backend's
// Postgres database.
type PGSource struct {
	db *pgxpool.Pool
}

// NewPGSource connects to databaseURL.
func NewPGSource(ctx context.Context, databaseURL string) (*PGSource, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PGSource{db: pool}, nil
}

// Close releases the connection pool.
func (s *PGSource) Close() {
	s.db.Close()
}

const dialogueColumns = `
	d.id::text, d.title, COALESCE(d.description, ''), COALESCE(d.duration, ''),
	COALESCE(d.difficulty, ''), COALESCE(d.participants, ''), COALESCE(d.language, ''),
	COALESCE(dm.id::text, ''), COALESCE(dm.title, ''), COALESCE(dm.color, '')`

// dialogueQuery builds the listing query for f with positional arguments.
func dialogueQuery(f dialogue.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Difficulty != "" {
		args = append(args, string(f.Difficulty))
		where = append(where, fmt.Sprintf("d.difficulty = $%d", len(args)))
	}
	if f.Language != "" {
		args = append(args, f.Language)
		where = append(where, fmt.Sprintf("lower(d.language) = lower($%d)", len(args)))
	}
	if f.DomainID != "" {
		args = append(args, f.DomainID)
		where = append(where, fmt.Sprintf("d.domain_id::text = $%d", len(args)))
	}

	q := "SELECT" + dialogueColumns + "\n\tFROM dialogues d\n\tLEFT JOIN domains dm ON dm.id = d.domain_id"
	if len(where) > 0 {
		q += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	q += "\n\tORDER BY d.title"
	return q, args
}

func scanDialogue(row pgx.Row) (dialogue.Dialogue, error) {
	var (
		d          dialogue.Dialogue
		difficulty string
	)
	err := row.Scan(
		&d.ID, &d.Title, &d.Description, &d.Duration,
		&difficulty, &d.Participants, &d.Language,
		&d.Domain.ID, &d.Domain.Title, &d.Domain.Color,
	)
	d.Difficulty = dialogue.Difficulty(difficulty)
	return d, err
}

// ListDialogues returns dialogues matching f, ordered by title.
func (s *PGSource) ListDialogues(ctx context.Context, f dialogue.Filter) ([]dialogue.Dialogue, error) {
	q, args := dialogueQuery(f)
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list dialogues: %w", err)
	}
	defer rows.Close()

	var out []dialogue.Dialogue
	for rows.Next() {
		d, err := scanDialogue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dialogue: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDialogue returns one dialogue or dialogue.ErrNotFound.
func (s *PGSource) GetDialogue(ctx context.Context, id string) (*dialogue.Dialogue, error) {
	row := s.db.QueryRow(ctx, "SELECT"+dialogueColumns+`
	FROM dialogues d
	LEFT JOIN domains dm ON dm.id = d.domain_id
	WHERE d.id::text = $1`, id)

	d, err := scanDialogue(row)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("dialogue %s: %w", id, dialogue.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get dialogue: %w", err)
	}
	return &d, nil
}

// GetDialogueSegments returns the dialogue's segments in segment_order.
func (s *PGSource) GetDialogueSegments(ctx context.Context, dialogueID string) ([]dialogue.Segment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, dialogue_id::text, segment_order, COALESCE(text_content, ''),
		       COALESCE(translation, ''), COALESCE(audio_url, ''), COALESCE(speaker, ''),
		       start_time, end_time
		FROM dialogue_segments
		WHERE dialogue_id::text = $1
		ORDER BY segment_order
	`, dialogueID)
	if err != nil {
		return nil, fmt.Errorf("get dialogue segments: %w", err)
	}
	defer rows.Close()

	var out []dialogue.Segment
	for rows.Next() {
		var seg dialogue.Segment
		if err := rows.Scan(
			&seg.ID, &seg.DialogueID, &seg.Order, &seg.Text,
			&seg.Translation, &seg.AudioPath, &seg.Speaker,
			&seg.StartTime, &seg.EndTime,
		); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}
