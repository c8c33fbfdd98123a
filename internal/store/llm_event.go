package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LLMQuery narrows QueryLLMEvents.
type LLMQuery struct {
	QueryOpts

	// Purpose matches exactly when set.
	Purpose string

	// SessionID keeps calls made for one practice session.
	SessionID string
}

func (q LLMQuery) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Purpose != "" {
		conds = append(conds, "purpose = ?")
		args = append(args, q.Purpose)
	}
	if q.SessionID != "" {
		conds = append(conds, "subject LIKE ? ESCAPE '\\'")
		args = append(args, likePrefix(q.SessionID)+"/%")
	}
	return q.QueryOpts.where(conds, args)
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO llm_requests
		(sequence, timestamp, provider, model, purpose, subject, input_tokens, output_tokens,
		 latency_ms, success, error_message, attachment_bytes, request_body, response_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seq, time.Now().UnixMilli(), data.Provider, data.Model, data.Purpose, data.Subject,
		data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success, data.ErrorMessage,
		data.AttachmentBytes, data.RequestBody, data.ResponseBody,
	)
	if err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

const llmColumns = `id, sequence, timestamp, provider, model, purpose, subject, input_tokens,
	output_tokens, latency_ms, success, error_message, attachment_bytes, request_body, response_body`

func scanLLMEvent(row interface{ Scan(...any) error }) (LLMEventRecord, error) {
	var (
		rec LLMEventRecord
		ms  int64
	)
	err := row.Scan(&rec.ID, &rec.Sequence, &ms, &rec.Provider, &rec.Model, &rec.Purpose, &rec.Subject,
		&rec.InputTokens, &rec.OutputTokens, &rec.LatencyMs, &rec.Success, &rec.ErrorMessage,
		&rec.AttachmentBytes, &rec.RequestBody, &rec.ResponseBody)
	rec.Timestamp = time.UnixMilli(ms)
	return rec, err
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, q LLMQuery) ([]LLMEventRecord, error) {
	where, args := q.where()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+llmColumns+` FROM llm_requests`+where+` ORDER BY sequence DESC`+q.limit(), args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMEventRecord
	for rows.Next() {
		rec, err := scanLLMEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan LLM event: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMEventRecord, error) {
	rec, err := scanLLMEvent(r.db.QueryRowContext(ctx,
		`SELECT `+llmColumns+` FROM llm_requests WHERE id = ?`, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get LLM event: %w", err)
	}
	return &rec, nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT purpose, COUNT(*),
		COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
		CAST(COALESCE(AVG(latency_ms), 0) AS INTEGER)
		FROM llm_requests GROUP BY purpose ORDER BY purpose`)
	if err != nil {
		return nil, fmt.Errorf("query usage by purpose: %w", err)
	}
	defer rows.Close()

	var out []PurposeUsage
	for rows.Next() {
		var u PurposeUsage
		if err := rows.Scan(&u.Purpose, &u.Calls, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context, sessionID string) ([]ModelUsage, error) {
	q := LLMQuery{SessionID: sessionID}
	where, args := q.where()
	rows, err := r.db.QueryContext(ctx, `SELECT model, COUNT(*),
		COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM llm_requests`+where+` GROUP BY model ORDER BY model`, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage by model: %w", err)
	}
	defer rows.Close()

	var out []ModelUsage
	for rows.Next() {
		var u ModelUsage
		if err := rows.Scan(&u.Model, &u.Calls, &u.InputTokens, &u.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// likePrefix escapes LIKE wildcards in s.
func likePrefix(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
